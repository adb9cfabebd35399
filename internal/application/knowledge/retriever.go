package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bryanwahyu/automaton-sar/internal/domain/knowledge"
	"go.uber.org/zap"
)

const (
	// DefaultK is used when Retrieve is called with k <= 0.
	DefaultK = 3

	// Separator joins retrieved documents.
	Separator = "\n\n---\n\n"

	FallbackEmpty = "No specific templates found. Use general SAR guidelines."
	FallbackError = "Error retrieving templates. Use general SAR guidelines."

	approvedPrefix = "approved_sar_"
)

// Metrics receives retrieval degradations. Optional.
type Metrics interface {
	RetrievalFallback(reason string)
	LearnFailed()
}

// Retriever supplies reference text to the narrative stage and learns from
// approved narratives. Retrieval and learning never fail the caller.
type Retriever struct {
	Store    knowledge.VectorStore
	Embedder knowledge.Embedder
	Seed     []knowledge.Document
	Log      *zap.Logger
	Metrics  Metrics

	initMu sync.Mutex
}

func NewRetriever(store knowledge.VectorStore, embedder knowledge.Embedder, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{Store: store, Embedder: embedder, Seed: DefaultSeed(), Log: log}
}

// Initialize seeds the store when it is empty and reports how many documents
// were written. A store that already holds documents is left untouched.
func (r *Retriever) Initialize(ctx context.Context) (int, error) {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	n, err := r.Store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count knowledge store: %w", err)
	}
	if n > 0 {
		r.Log.Info("knowledge store already seeded", zap.Int64("documents", n))
		return 0, nil
	}

	docs := make([]knowledge.Document, 0, len(r.Seed))
	for _, d := range r.Seed {
		vec, err := r.Embedder.Embed(ctx, d.Text)
		if err != nil {
			return 0, fmt.Errorf("embed seed %s: %w", d.ID, err)
		}
		d.Embedding = vec
		docs = append(docs, d)
	}
	if err := r.Store.Upsert(ctx, docs...); err != nil {
		return 0, fmt.Errorf("seed knowledge store: %w", err)
	}
	r.Log.Info("knowledge store seeded", zap.Int("documents", len(docs)))
	return len(docs), nil
}

// Retrieve returns the k documents closest to query joined by Separator, or a
// fallback instruction when nothing usable comes back.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) string {
	if k <= 0 {
		k = DefaultK
	}
	vec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		r.fallback("embed_error", err)
		return FallbackError
	}
	docs, err := r.Store.Nearest(ctx, vec, k)
	if err != nil {
		r.fallback("search_error", err)
		return FallbackError
	}
	if len(docs) == 0 {
		r.fallback("empty", nil)
		return FallbackEmpty
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	return strings.Join(texts, Separator)
}

// Learn adds text to the store under id, tagged as an approved example.
// Failures are logged and dropped.
func (r *Retriever) Learn(ctx context.Context, id, text string, metadata map[string]string) {
	log := r.Log.With(zap.String("document_id", id))
	if strings.TrimSpace(text) == "" {
		log.Warn("skip learning empty narrative")
		return
	}

	tags := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		tags[k] = v
	}
	tags[knowledge.TagType] = knowledge.TypeApprovedSAR

	vec, err := r.Embedder.Embed(ctx, text)
	if err == nil {
		err = r.Store.Upsert(ctx, knowledge.Document{ID: id, Text: text, Embedding: vec, Tags: tags})
	}
	if err != nil {
		log.Error("learn approved narrative", zap.Error(err))
		if r.Metrics != nil {
			r.Metrics.LearnFailed()
		}
		return
	}
	log.Info("learned approved narrative")
}

// LearnApproved learns an approved case narrative under a case-derived id, so
// concurrent approvals never collide.
func (r *Retriever) LearnApproved(ctx context.Context, caseID, narrative string, metadata map[string]string) {
	r.Learn(ctx, ApprovedDocumentID(caseID), narrative, metadata)
}

func ApprovedDocumentID(caseID string) string { return approvedPrefix + caseID }

func (r *Retriever) fallback(reason string, err error) {
	if err != nil {
		r.Log.Error("knowledge retrieval failed", zap.String("reason", reason), zap.Error(err))
	} else {
		r.Log.Warn("knowledge retrieval returned nothing")
	}
	if r.Metrics != nil {
		r.Metrics.RetrievalFallback(reason)
	}
}
