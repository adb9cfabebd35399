package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bryanwahyu/automaton-sar/internal/domain/knowledge"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultPrefix = "sar:emb:"
	defaultTTL    = 7 * 24 * time.Hour
)

// Embedder caches vectors from Next in Redis, keyed by model and text hash.
// Redis problems degrade to calling Next; they are never returned.
type Embedder struct {
	Next   knowledge.Embedder
	Redis  redis.Cmdable
	Model  string
	Prefix string
	TTL    time.Duration
	Log    *zap.Logger
}

func New(next knowledge.Embedder, rdb redis.Cmdable, model string, ttl time.Duration, log *zap.Logger) *Embedder {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{Next: next, Redis: rdb, Model: model, Prefix: defaultPrefix, TTL: ttl, Log: log}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.Key(text)

	data, err := e.Redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		vec, derr := Decode(data)
		if derr == nil {
			return vec, nil
		}
		e.Log.Warn("discarding corrupt cached embedding", zap.String("key", key), zap.Error(derr))
	case !errors.Is(err, redis.Nil):
		e.Log.Warn("embedding cache read failed", zap.String("key", key), zap.Error(err))
	}

	vec, err := e.Next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.Redis.Set(ctx, key, Encode(vec), e.TTL).Err(); err != nil {
		e.Log.Warn("embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
	return vec, nil
}

// Key is the cache key for text under the configured model.
func (e *Embedder) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.Prefix + e.Model + ":" + hex.EncodeToString(sum[:])
}

// Encode packs a vector as little-endian float32s.
func Encode(vec []float32) []byte {
	out := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func Decode(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding payload has %d bytes", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out, nil
}
