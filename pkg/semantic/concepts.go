package semantic

import (
	"context"
	"sort"
	"strings"
)

// conceptCatalog maps each concept to example phrases describing it. Columns
// are grouped under a concept when their embedding lands close to any of the
// concept's phrases.
var conceptCatalog = map[string][]string{
	"identifier": {"unique identifier key", "record id number"},
	"timestamp":  {"date and time of an event", "created updated timestamp"},
	"name":       {"name title or label", "descriptive text field"},
	"user":       {"person customer or user", "account holder profile"},
	"financial":  {"money price cost amount", "payment revenue value"},
	"quantity":   {"count or quantity of items", "numeric amount of things"},
	"status":     {"status state or condition", "active inactive flag"},
	"rating":     {"rating score or review", "star ranking evaluation"},
	"contact":    {"email phone or address", "contact information"},
}

// conceptKeywords drives the deterministic keyword fallback for concept
// inference. Checked in a fixed order so results are stable.
var conceptKeywords = []struct {
	concept   string
	fragments []string
}{
	{"identifier", []string{"id", "key", "code", "uuid"}},
	{"timestamp", []string{"date", "time", "created", "updated", "timestamp"}},
	{"contact", []string{"email", "phone", "address", "contact"}},
	{"financial", []string{"price", "cost", "amount", "total", "revenue", "salary", "payment"}},
	{"quantity", []string{"count", "quantity", "qty", "num"}},
	{"status", []string{"status", "state", "flag", "active"}},
	{"rating", []string{"rating", "score", "rank"}},
	{"user", []string{"customer", "user", "client", "member", "person"}},
	{"name", []string{"name", "title", "label"}},
}

// Concepts returns the catalog's concept names in sorted order.
func Concepts() []string {
	names := make([]string, 0, len(conceptCatalog))
	for name := range conceptCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConceptFor infers a concept for a column name from keywords alone.
// Returns "" when no concept applies. Used where a deterministic answer is
// needed regardless of embedding availability.
func ConceptFor(columnName string) string {
	normalized := strings.ReplaceAll(strings.ToLower(columnName), "_", " ")
	normalized = strings.ReplaceAll(normalized, "-", " ")
	for _, entry := range conceptKeywords {
		for _, frag := range entry.fragments {
			if containsToken(normalized, frag) {
				return entry.concept
			}
		}
	}
	return ""
}

// ConceptGroups assigns candidates to concepts by embedding proximity. A
// candidate joins a concept when its similarity to any example phrase clears
// the threshold; a candidate can appear under several concepts. Duplicate
// (column, file) pairs within a concept are collapsed.
func (e *Engine) ConceptGroups(ctx context.Context, candidates []Candidate, threshold float64) (map[string][]Match, error) {
	if len(candidates) == 0 {
		return map[string][]Match{}, nil
	}

	// Embed all phrases and all candidate names in one batch.
	concepts := Concepts()
	var phrases []string
	phraseConcept := make([]string, 0)
	for _, concept := range concepts {
		for _, phrase := range conceptCatalog[concept] {
			phrases = append(phrases, phrase)
			phraseConcept = append(phraseConcept, concept)
		}
	}

	texts := make([]string, 0, len(phrases)+len(candidates))
	texts = append(texts, phrases...)
	for _, c := range candidates {
		texts = append(texts, EnhanceColumnName(c.ColumnName))
	}

	vectors, err := e.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	phraseVecs := vectors[:len(phrases)]
	candidateVecs := vectors[len(phrases):]

	groups := make(map[string][]Match)
	for ci, c := range candidates {
		best := make(map[string]float64)
		for pi, vec := range phraseVecs {
			sim := cosine(candidateVecs[ci], vec)
			concept := phraseConcept[pi]
			if sim > best[concept] {
				best[concept] = sim
			}
		}
		for concept, sim := range best {
			if sim >= threshold {
				groups[concept] = append(groups[concept], Match{
					ColumnName: c.ColumnName,
					FileName:   c.FileName,
					Similarity: sim,
					MatchType:  MatchTypeSemantic,
				})
			}
		}
	}

	for concept, matches := range groups {
		seen := make(map[string]bool)
		deduped := matches[:0]
		for _, m := range matches {
			key := m.ColumnName + "\x00" + m.FileName
			if seen[key] {
				continue
			}
			seen[key] = true
			deduped = append(deduped, m)
		}
		sort.SliceStable(deduped, func(i, j int) bool {
			return deduped[i].Similarity > deduped[j].Similarity
		})
		groups[concept] = deduped
	}

	return groups, nil
}
