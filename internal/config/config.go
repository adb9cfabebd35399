package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultTemperature = 0.3

type Config struct {
	Server struct {
		Port           int           `yaml:"port"`
		ReadTimeout    time.Duration `yaml:"readTimeout"`
		WriteTimeout   time.Duration `yaml:"writeTimeout"`
		AllowedOrigins []string      `yaml:"allowedOrigins"`
		MaxBodyBytes   int64         `yaml:"maxBodyBytes"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json | console
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | "" (no SQL audit sink)
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey         string        `yaml:"apiKey"`
		BaseURL        string        `yaml:"baseURL"`
		Model          string        `yaml:"model"`
		EmbeddingModel string        `yaml:"embeddingModel"`
		Temperature    *float32      `yaml:"temperature"` // unset means 0.3; 0 is deterministic
		MaxTokens      int           `yaml:"maxTokens"`
		RequestTimeout time.Duration `yaml:"requestTimeout"`
	} `yaml:"openai"`

	Knowledge struct {
		Store      string `yaml:"store"` // memory | milvus
		RetrievalK int    `yaml:"retrievalK"`
	} `yaml:"knowledge"`

	Milvus struct {
		Address    string `yaml:"address"`
		Collection string `yaml:"collection"`
		Dimension  int    `yaml:"dimension"`
		NList      int    `yaml:"nlist"`
		NProbe     int    `yaml:"nprobe"`
	} `yaml:"milvus"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`
}

// Load reads a YAML config file, applies defaults and environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Defaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Defaults fills every unset value that has a sensible default.
func (c *Config) Defaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	// three sequential generation calls
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 5 * time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.OpenAI.Temperature == nil {
		t := float32(defaultTemperature)
		c.OpenAI.Temperature = &t
	}
	if c.OpenAI.RequestTimeout == 0 {
		c.OpenAI.RequestTimeout = 90 * time.Second
	}
	if c.Knowledge.Store == "" {
		c.Knowledge.Store = "memory"
	}
	if c.Knowledge.RetrievalK == 0 {
		c.Knowledge.RetrievalK = 3
	}
	if c.Milvus.Dimension == 0 {
		c.Milvus.Dimension = 1536 // text-embedding-3-small
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 7 * 24 * time.Hour
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 20
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 1
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	switch c.Knowledge.Store {
	case "memory":
	case "milvus":
		if c.Milvus.Address == "" {
			return fmt.Errorf("config: milvus.address is required for the milvus knowledge store")
		}
	default:
		return fmt.Errorf("config: unknown knowledge store %q", c.Knowledge.Store)
	}
	if t := c.GenerationTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("config: openai.temperature %v is outside [0, 2]", t)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq URL DSN.
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// GenerationTemperature is the configured sampling temperature, 0.3 when unset.
func (c *Config) GenerationTemperature() float32 {
	if c.OpenAI.Temperature == nil {
		return defaultTemperature
	}
	return *c.OpenAI.Temperature
}

// MinioEnabled reports whether raw stage outputs should be archived.
func (c *Config) MinioEnabled() bool {
	return strings.TrimSpace(c.Minio.Endpoint) != "" && c.Minio.BucketName != ""
}
