// Package semantic matches column names by meaning using embeddings.
package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/prasann/table-talks-sub000/pkg/apperrors"
	"github.com/prasann/table-talks-sub000/pkg/llm"
)

// MatchType describes how a candidate matched the search term.
type MatchType string

const (
	MatchTypeExact    MatchType = "exact"
	MatchTypeSemantic MatchType = "semantic"
	MatchTypePattern  MatchType = "pattern"
)

// Candidate is a column offered for matching.
type Candidate struct {
	ColumnName string
	FileName   string
}

// Match is a candidate that cleared the similarity threshold.
type Match struct {
	ColumnName string    `json:"column_name"`
	FileName   string    `json:"file_name"`
	Similarity float64   `json:"similarity"`
	MatchType  MatchType `json:"match_type"`
}

// Engine wraps an embedding provider with caching and cosine matching.
// A nil embedder yields an unavailable engine; callers degrade to substring
// matching instead of erroring.
type Engine struct {
	embedder llm.Embedder
	model    string
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string][]float32 // enhanced text -> L2-normalized vector, process lifetime
}

// NewEngine creates a matching engine. embedder may be nil, producing an
// engine that reports Available() == false.
func NewEngine(embedder llm.Embedder, model string, logger *zap.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		model:    model,
		logger:   logger.Named("semantic"),
		cache:    make(map[string][]float32),
	}
}

// Available reports whether semantic matching can be used.
func (e *Engine) Available() bool {
	return e != nil && e.embedder != nil
}

// Similarity returns the cosine similarity of two column names after
// enhancement, in [0, 1] for typical embedding spaces.
func (e *Engine) Similarity(ctx context.Context, a, b string) (float64, error) {
	vectors, err := e.embed(ctx, []string{EnhanceColumnName(a), EnhanceColumnName(b)})
	if err != nil {
		return 0, err
	}
	return cosine(vectors[0], vectors[1]), nil
}

// FindSimilar returns candidates whose meaning is close to term. Exact
// (case-insensitive) name matches score 1.0. Results are filtered by
// threshold and stable-sorted by descending similarity, so equal scores keep
// candidate order.
func (e *Engine) FindSimilar(ctx context.Context, term string, candidates []Candidate, threshold float64) ([]Match, error) {
	if !e.Available() {
		return nil, apperrors.ErrEmbeddingUnavailable
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, EnhanceColumnName(term))
	for _, c := range candidates {
		texts = append(texts, EnhanceColumnName(c.ColumnName))
	}

	vectors, err := e.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	termVec := vectors[0]
	termLower := strings.ToLower(term)

	var matches []Match
	for i, c := range candidates {
		if strings.ToLower(c.ColumnName) == termLower {
			matches = append(matches, Match{
				ColumnName: c.ColumnName,
				FileName:   c.FileName,
				Similarity: 1.0,
				MatchType:  MatchTypeExact,
			})
			continue
		}
		sim := cosine(termVec, vectors[i+1])
		if sim >= threshold {
			matches = append(matches, Match{
				ColumnName: c.ColumnName,
				FileName:   c.FileName,
				Similarity: sim,
				MatchType:  MatchTypeSemantic,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches, nil
}

// SubstringFallback is the degraded matching used when embeddings are
// unavailable: case-insensitive substring containment either way.
func SubstringFallback(term string, candidates []Candidate) []Match {
	termLower := strings.ToLower(term)
	var matches []Match
	for _, c := range candidates {
		nameLower := strings.ToLower(c.ColumnName)
		switch {
		case nameLower == termLower:
			matches = append(matches, Match{c.ColumnName, c.FileName, 1.0, MatchTypeExact})
		case strings.Contains(nameLower, termLower) || strings.Contains(termLower, nameLower):
			matches = append(matches, Match{c.ColumnName, c.FileName, 0.5, MatchTypePattern})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// embed returns L2-normalized vectors for the given texts, serving repeats
// from the process-lifetime cache and batching the misses into one call.
func (e *Engine) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !e.Available() {
		return nil, apperrors.ErrEmbeddingUnavailable
	}

	result := make([][]float32, len(texts))
	var misses []string
	missIdx := make(map[string][]int)

	e.mu.RLock()
	for i, t := range texts {
		if vec, ok := e.cache[t]; ok {
			result[i] = vec
			continue
		}
		if _, queued := missIdx[t]; !queued {
			misses = append(misses, t)
		}
		missIdx[t] = append(missIdx[t], i)
	}
	e.mu.RUnlock()

	if len(misses) == 0 {
		return result, nil
	}

	vectors, err := e.embedder.CreateEmbeddings(ctx, misses, e.model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(misses) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(vectors), len(misses))
	}

	e.mu.Lock()
	for i, t := range misses {
		vec := normalize(vectors[i])
		e.cache[t] = vec
		for _, idx := range missIdx[t] {
			result[idx] = vec
		}
	}
	e.mu.Unlock()

	return result, nil
}

// normalize scales a vector to unit length.
func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// cosine computes the dot product of two unit vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
