package milvus

import (
	"context"
	"errors"
	"testing"

	"github.com/bryanwahyu/automaton-sar/internal/domain/knowledge"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	exists      bool
	created     *entity.Schema
	indexField  string
	loaded      bool
	stats       map[string]string
	upserted    []entity.Column
	searchTopK  int
	searchField string
	searchOut   []string
	results     []client.SearchResult
	err         error
}

func (f *fakeAPI) HasCollection(context.Context, string) (bool, error) { return f.exists, f.err }

func (f *fakeAPI) CreateCollection(_ context.Context, schema *entity.Schema, _ int32, _ ...client.CreateCollectionOption) error {
	f.created = schema
	return nil
}

func (f *fakeAPI) CreateIndex(_ context.Context, _ string, fieldName string, _ entity.Index, _ bool, _ ...client.IndexOption) error {
	f.indexField = fieldName
	return nil
}

func (f *fakeAPI) LoadCollection(context.Context, string, bool, ...client.LoadCollectionOption) error {
	f.loaded = true
	return nil
}

func (f *fakeAPI) GetCollectionStatistics(context.Context, string) (map[string]string, error) {
	return f.stats, f.err
}

func (f *fakeAPI) Upsert(_ context.Context, _ string, _ string, columns ...entity.Column) (entity.Column, error) {
	f.upserted = columns
	return nil, f.err
}

func (f *fakeAPI) Search(_ context.Context, _ string, _ []string, _ string, outputFields []string, _ []entity.Vector, vectorField string, _ entity.MetricType, topK int, _ entity.SearchParam, _ ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	f.searchTopK, f.searchField, f.searchOut = topK, vectorField, outputFields
	return f.results, f.err
}

func TestOpen_CreatesMissingCollection(t *testing.T) {
	api := &fakeAPI{}

	_, err := Open(context.Background(), api, Config{Dimension: 3}, nil)

	require.NoError(t, err)
	require.NotNil(t, api.created)
	assert.Equal(t, "sar_knowledge_base", api.created.CollectionName)
	assert.Len(t, api.created.Fields, 4)
	assert.Equal(t, fieldEmbedding, api.indexField)
	assert.True(t, api.loaded)
}

func TestOpen_ExistingCollectionOnlyLoads(t *testing.T) {
	api := &fakeAPI{exists: true}

	_, err := Open(context.Background(), api, Config{Collection: "kb", Dimension: 3}, nil)

	require.NoError(t, err)
	assert.Nil(t, api.created)
	assert.True(t, api.loaded)
}

func TestOpen_RequiresDimension(t *testing.T) {
	_, err := Open(context.Background(), &fakeAPI{}, Config{}, nil)
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	api := &fakeAPI{exists: true, stats: map[string]string{"row_count": "5"}}
	s, err := Open(context.Background(), api, Config{Dimension: 2}, nil)
	require.NoError(t, err)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	api.stats = map[string]string{}
	n, err = s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	api.stats = map[string]string{"row_count": "many"}
	_, err = s.Count(context.Background())
	assert.Error(t, err)
}

func TestUpsert_BuildsColumns(t *testing.T) {
	api := &fakeAPI{exists: true}
	s, err := Open(context.Background(), api, Config{Dimension: 2}, nil)
	require.NoError(t, err)

	err = s.Upsert(context.Background(),
		knowledge.Document{ID: "a", Text: "alpha", Embedding: []float32{1, 0}, Tags: map[string]string{"type": "template"}},
		knowledge.Document{ID: "b", Text: "beta", Embedding: []float32{0, 1}},
	)

	require.NoError(t, err)
	require.Len(t, api.upserted, 4)
	ids, ok := api.upserted[0].(*entity.ColumnVarChar)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids.Data())
	tags := api.upserted[2].(*entity.ColumnVarChar)
	assert.Equal(t, []string{`{"type":"template"}`, "null"}, tags.Data())
	assert.Equal(t, fieldEmbedding, api.upserted[3].Name())
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	api := &fakeAPI{exists: true}
	s, err := Open(context.Background(), api, Config{Dimension: 2}, nil)
	require.NoError(t, err)

	err = s.Upsert(context.Background(), knowledge.Document{ID: "a", Embedding: []float32{1, 2, 3}})

	assert.Error(t, err)
	assert.Nil(t, api.upserted)
}

func TestNearest_MapsResults(t *testing.T) {
	api := &fakeAPI{exists: true, results: []client.SearchResult{{
		ResultCount: 2,
		IDs:         entity.NewColumnVarChar(fieldID, []string{"template_structuring", "guideline_fincen"}),
		Fields: client.ResultSet{
			entity.NewColumnVarChar(fieldText, []string{"structuring text", "fincen text"}),
			entity.NewColumnVarChar(fieldTags, []string{`{"type":"template"}`, `{"type":"guideline"}`}),
		},
		Scores: []float32{0.1, 0.4},
	}}}
	s, err := Open(context.Background(), api, Config{Dimension: 2}, nil)
	require.NoError(t, err)

	docs, err := s.Nearest(context.Background(), []float32{1, 0}, 2)

	require.NoError(t, err)
	assert.Equal(t, 2, api.searchTopK)
	assert.Equal(t, fieldEmbedding, api.searchField)
	assert.Equal(t, []string{fieldText, fieldTags}, api.searchOut)
	require.Len(t, docs, 2)
	assert.Equal(t, "template_structuring", docs[0].ID)
	assert.Equal(t, "structuring text", docs[0].Text)
	assert.Equal(t, "template", docs[0].Tags["type"])
	assert.Equal(t, float32(0.4), docs[1].Distance)
}

func TestNearest_Errors(t *testing.T) {
	api := &fakeAPI{exists: true}
	s, err := Open(context.Background(), api, Config{Dimension: 2}, nil)
	require.NoError(t, err)

	api.err = errors.New("unavailable")
	_, err = s.Nearest(context.Background(), []float32{1, 0}, 3)
	assert.Error(t, err)

	api.err = nil
	api.results = []client.SearchResult{{Err: errors.New("partial failure")}}
	_, err = s.Nearest(context.Background(), []float32{1, 0}, 3)
	assert.Error(t, err)

	api.results = nil
	docs, err := s.Nearest(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
