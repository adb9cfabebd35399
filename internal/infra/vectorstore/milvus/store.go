package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bryanwahyu/automaton-sar/internal/domain/knowledge"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"
)

const (
	fieldID        = "id"
	fieldText      = "text"
	fieldTags      = "tags"
	fieldEmbedding = "embedding"

	maxIDLength   = 256
	maxTextLength = 65535
	maxTagsLength = 4096
)

// API is the part of client.Client the store uses.
type API interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName string, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, name string, async bool, opts ...client.LoadCollectionOption) error
	GetCollectionStatistics(ctx context.Context, name string) (map[string]string, error)
	Upsert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
}

type Config struct {
	Collection string
	Dimension  int
	NList      int
	NProbe     int
}

// Store keeps knowledge documents in one Milvus collection, searched by L2
// distance over an IVF_FLAT index.
type Store struct {
	api API
	cfg Config
	log *zap.Logger
}

// Connect dials Milvus at addr.
func Connect(ctx context.Context, addr string) (client.Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", addr, err)
	}
	return c, nil
}

// Open ensures the collection, its index and its load state, then returns the store.
func Open(ctx context.Context, api API, cfg Config, log *zap.Logger) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = "sar_knowledge_base"
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("milvus: embedding dimension is required")
	}
	if cfg.NList <= 0 {
		cfg.NList = 128
	}
	if cfg.NProbe <= 0 {
		cfg.NProbe = 16
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{api: api, cfg: cfg, log: log}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureCollection(ctx context.Context) error {
	name := s.cfg.Collection
	exists, err := s.api.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("milvus: check collection %s: %w", name, err)
	}
	if !exists {
		if err := s.api.CreateCollection(ctx, s.schema(), 2); err != nil {
			return fmt.Errorf("milvus: create collection %s: %w", name, err)
		}
		idx, err := entity.NewIndexIvfFlat(entity.L2, s.cfg.NList)
		if err != nil {
			return fmt.Errorf("milvus: build index: %w", err)
		}
		if err := s.api.CreateIndex(ctx, name, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("milvus: create index on %s: %w", name, err)
		}
		s.log.Info("milvus collection created", zap.String("collection", name), zap.Int("dim", s.cfg.Dimension))
	}
	if err := s.api.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("milvus: load collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) schema() *entity.Schema {
	return &entity.Schema{
		CollectionName: s.cfg.Collection,
		Description:    "SAR templates, guidelines, typologies and approved narratives",
		Fields: []*entity.Field{
			{Name: fieldID, DataType: entity.FieldTypeVarChar, PrimaryKey: true, AutoID: false,
				TypeParams: map[string]string{entity.TypeParamMaxLength: strconv.Itoa(maxIDLength)}},
			{Name: fieldText, DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{entity.TypeParamMaxLength: strconv.Itoa(maxTextLength)}},
			{Name: fieldTags, DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{entity.TypeParamMaxLength: strconv.Itoa(maxTagsLength)}},
			{Name: fieldEmbedding, DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{entity.TypeParamDim: strconv.Itoa(s.cfg.Dimension)}},
		},
	}
}

// Count reads row_count from collection statistics. Rows still in growing
// segments may not be counted yet; re-seeding is safe because Upsert is by id.
func (s *Store) Count(ctx context.Context) (int64, error) {
	stats, err := s.api.GetCollectionStatistics(ctx, s.cfg.Collection)
	if err != nil {
		return 0, fmt.Errorf("milvus: statistics: %w", err)
	}
	raw, ok := stats["row_count"]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("milvus: row_count %q: %w", raw, err)
	}
	return n, nil
}

func (s *Store) Upsert(ctx context.Context, docs ...knowledge.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	texts := make([]string, len(docs))
	tags := make([]string, len(docs))
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		if len(d.Embedding) != s.cfg.Dimension {
			return fmt.Errorf("milvus: document %s has dimension %d, want %d", d.ID, len(d.Embedding), s.cfg.Dimension)
		}
		raw, err := json.Marshal(d.Tags)
		if err != nil {
			return fmt.Errorf("milvus: encode tags for %s: %w", d.ID, err)
		}
		ids[i], texts[i], tags[i], vectors[i] = d.ID, d.Text, string(raw), d.Embedding
	}

	_, err := s.api.Upsert(ctx, s.cfg.Collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldTags, tags),
		entity.NewColumnFloatVector(fieldEmbedding, s.cfg.Dimension, vectors),
	)
	if err != nil {
		return fmt.Errorf("milvus: upsert %d documents: %w", len(docs), err)
	}
	return nil
}

func (s *Store) Nearest(ctx context.Context, vector []float32, k int) ([]knowledge.Document, error) {
	if k <= 0 {
		return nil, nil
	}
	sp, err := entity.NewIndexIvfFlatSearchParam(s.cfg.NProbe)
	if err != nil {
		return nil, fmt.Errorf("milvus: search param: %w", err)
	}
	results, err := s.api.Search(ctx, s.cfg.Collection, nil, "",
		[]string{fieldText, fieldTags},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding, entity.L2, k, sp)
	if err != nil {
		return nil, fmt.Errorf("milvus: search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	res := results[0]
	if res.Err != nil {
		return nil, fmt.Errorf("milvus: search: %w", res.Err)
	}

	textCol := res.Fields.GetColumn(fieldText)
	tagCol := res.Fields.GetColumn(fieldTags)
	docs := make([]knowledge.Document, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		id, err := res.IDs.GetAsString(i)
		if err != nil {
			return nil, fmt.Errorf("milvus: result id %d: %w", i, err)
		}
		d := knowledge.Document{ID: id}
		if i < len(res.Scores) {
			d.Distance = res.Scores[i]
		}
		if textCol != nil {
			if d.Text, err = textCol.GetAsString(i); err != nil {
				return nil, fmt.Errorf("milvus: result text %d: %w", i, err)
			}
		}
		if tagCol != nil {
			if raw, err := tagCol.GetAsString(i); err == nil && raw != "" {
				if err := json.Unmarshal([]byte(raw), &d.Tags); err != nil {
					s.log.Warn("milvus: undecodable tags", zap.String("id", id), zap.Error(err))
				}
			}
		}
		docs = append(docs, d)
	}
	return docs, nil
}
