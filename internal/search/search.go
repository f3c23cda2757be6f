// File path: internal/search/search.go
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/docuchat-ai/docuchat/internal/common"
	"github.com/docuchat-ai/docuchat/internal/common/telemetry"
	"github.com/docuchat-ai/docuchat/internal/query"
	"github.com/docuchat-ai/docuchat/internal/rag"
	"github.com/docuchat-ai/docuchat/internal/vector"
)

// DocStore is the relational contract hybrid search depends on.
type DocStore interface {
	DocumentsForUser(ctx context.Context, userID string) ([]rag.Document, error)
	SearchChunks(ctx context.Context, userID, term string, limit int) ([]rag.Chunk, error)
}

// Embedder maps query text to fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, input []string) ([][]float32, error)
}

const (
	defaultSimilarityFloor = 0.3
	defaultVectorLimit     = 20
	maxPresentedMatches    = 5
	singleMatchFloor       = 0.8
	singleMatchLead        = 0.15
	allCriteriaBoost       = 0.95
	excerptLength          = 240
)

// Actions a search can resolve to.
const (
	ActionShowSingle   = "show_single"
	ActionShowMultiple = "show_multiple"
	ActionNotFound     = "not_found"
)

// Options tune one search invocation.
type Options struct {
	Limit           int
	SimilarityFloor float64
	Strategy        query.SearchStrategy
}

// Result is the outcome of a hybrid search pass.
type Result struct {
	Action   string               `json:"action"`
	Matches  []rag.DocumentMatch  `json:"matches,omitempty"`
	Criteria []rag.SearchCriteria `json:"criteria,omitempty"`
	Message  string               `json:"message"`
	Caveat   string               `json:"caveat,omitempty"`
	Language string               `json:"language"`
}

// Searcher executes vector similarity and keyword retrieval over a user's
// chunked documents. Collaborators are injected; failures on either path
// degrade to the other rather than erroring the search.
type Searcher struct {
	store    DocStore
	vectors  vector.Store
	embedder Embedder
}

func NewSearcher(store DocStore, vectors vector.Store, embedder Embedder) *Searcher {
	return &Searcher{store: store, vectors: vectors, embedder: embedder}
}

// Search runs both retrieval paths, blends their scores with the strategy
// weights, and applies the presentation decision policy.
func (s *Searcher) Search(ctx context.Context, queryText, userID string, opts Options) (Result, error) {
	logger := common.Logger()
	language := DetectLanguage(queryText)
	topic := ExtractSearchTopic(queryText)
	criteria := ExtractCriteria(topic)
	conjunctive := IsConjunctive(queryText)
	if opts.SimilarityFloor <= 0 {
		opts.SimilarityFloor = defaultSimilarityFloor
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultVectorLimit
	}
	strategy := opts.Strategy
	if strategy.SemanticWeight <= 0 && strategy.KeywordWeight <= 0 {
		strategy = query.SearchStrategy{SemanticWeight: 0.6, KeywordWeight: 0.4, Reason: "default"}
	}

	docsByID, err := s.documentIndex(ctx, userID)
	if err != nil {
		logger.Warn("search: document metadata lookup failed", "error", err)
		docsByID = map[string]rag.Document{}
	}

	semantic := s.semanticMatches(ctx, topic, userID, opts, docsByID)
	keyword := s.keywordMatches(ctx, topic, userID, criteria, conjunctive, docsByID)

	merged := blendMatches(semantic, keyword, strategy)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Confidence > merged[j].Confidence })

	result := Result{Criteria: criteria, Language: language}
	switch {
	case len(merged) == 0:
		result.Action = ActionNotFound
		result.Message = notFoundMessage(language)
	case isClearSingle(merged):
		result.Action = ActionShowSingle
		result.Matches = merged[:1]
		result.Message = singleMatchMessage(language, merged[0].Filename, merged[0].Confidence)
	default:
		if len(merged) > maxPresentedMatches {
			merged = merged[:maxPresentedMatches]
		}
		result.Action = ActionShowMultiple
		result.Matches = merged
		result.Message = multipleMatchMessage(language, len(merged), merged[0].Filename)
		if conjunctive && len(criteria) > 1 && !anyMatchesAll(merged, criteria) {
			result.Caveat = partialMatchCaveat(language)
		}
	}
	logger.Info("search: completed", "action", result.Action, "matches", len(result.Matches), "language", language)
	return result, nil
}

func (s *Searcher) documentIndex(ctx context.Context, userID string) (map[string]rag.Document, error) {
	if s.store == nil {
		return map[string]rag.Document{}, nil
	}
	docs, err := s.store.DocumentsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]rag.Document, len(docs))
	for _, doc := range docs {
		index[doc.ID] = doc
	}
	return index, nil
}

// semanticMatches runs the vector path: embed, nearest-neighbor search with
// the similarity floor, then boost by filename and in-content term overlap.
func (s *Searcher) semanticMatches(ctx context.Context, topic, userID string, opts Options, docsByID map[string]rag.Document) map[string]*rag.DocumentMatch {
	matches := map[string]*rag.DocumentMatch{}
	if s.vectors == nil || !s.vectors.Available() || s.embedder == nil {
		return matches
	}
	logger := common.Logger()
	vectors, err := s.embedder.Embed(ctx, []string{topic})
	if err != nil || len(vectors) == 0 {
		logger.Warn("search: query embedding failed", "error", err)
		return matches
	}
	results, err := s.vectors.Search(ctx, vectors[0], userID, opts.Limit, float32(opts.SimilarityFloor))
	if err != nil {
		logger.Warn("search: vector search failed", "error", err)
		return matches
	}
	terms := significantTerms(topic)
	for _, res := range results {
		docID := res.DocumentID
		if docID == "" {
			continue
		}
		confidence := rag.Clamp01(float64(res.Score))
		confidence = boostByTermOverlap(confidence, res.Filename, res.Content, terms)
		chunk := rag.ChunkMatch{
			ChunkID:      res.ID,
			DocumentID:   docID,
			Filename:     res.Filename,
			Excerpt:      excerpt(res.Content),
			Relevance:    rag.Clamp01(float64(res.Score)),
			MatchedTerms: overlappingTerms(res.Content, terms),
		}
		match, ok := matches[docID]
		if !ok {
			match = &rag.DocumentMatch{DocumentID: docID, Filename: res.Filename}
			if doc, found := docsByID[docID]; found {
				match.Filename = doc.Filename
				match.MimeType = doc.MimeType
				match.FileSize = doc.FileSize
				match.FolderID = doc.FolderID
			}
			matches[docID] = match
		}
		if confidence > match.Confidence {
			match.Confidence = confidence
		}
		match.MatchedChunks = append(match.MatchedChunks, chunk)
	}
	return matches
}

// keywordMatches runs the lexical path: every criterion becomes a substring
// probe; per-document confidence is the matched-criteria fraction, boosted
// to allCriteriaBoost when one document satisfies everything.
func (s *Searcher) keywordMatches(ctx context.Context, topic, userID string, criteria []rag.SearchCriteria, conjunctive bool, docsByID map[string]rag.Document) map[string]*rag.DocumentMatch {
	matches := map[string]*rag.DocumentMatch{}
	if s.store == nil || len(criteria) == 0 {
		return matches
	}
	telemetry.RecordKeywordSearch()
	logger := common.Logger()
	matchedCriteria := map[string]map[string]struct{}{}
	for _, criterion := range criteria {
		chunks, err := s.store.SearchChunks(ctx, userID, criterion.Value, 50)
		if err != nil {
			logger.Warn("search: keyword probe failed", "criterion", criterion.Value, "error", err)
			continue
		}
		for _, chunk := range chunks {
			match, ok := matches[chunk.DocumentID]
			if !ok {
				match = &rag.DocumentMatch{DocumentID: chunk.DocumentID}
				if doc, found := docsByID[chunk.DocumentID]; found {
					match.Filename = doc.Filename
					match.MimeType = doc.MimeType
					match.FileSize = doc.FileSize
					match.FolderID = doc.FolderID
				}
				matches[chunk.DocumentID] = match
				matchedCriteria[chunk.DocumentID] = map[string]struct{}{}
			}
			if _, seen := matchedCriteria[chunk.DocumentID][criterion.Value]; !seen {
				matchedCriteria[chunk.DocumentID][criterion.Value] = struct{}{}
				match.MatchedCriteria = append(match.MatchedCriteria, criterion.Value)
			}
			match.MatchedChunks = append(match.MatchedChunks, rag.ChunkMatch{
				ChunkID:      chunk.ID,
				DocumentID:   chunk.DocumentID,
				Filename:     match.Filename,
				Excerpt:      excerpt(chunk.Content),
				Relevance:    criterion.Weight,
				MatchedTerms: []string{criterion.Value},
			})
		}
	}
	for docID, match := range matches {
		fraction := float64(len(matchedCriteria[docID])) / float64(len(criteria))
		match.Confidence = rag.Clamp01(fraction)
		if len(matchedCriteria[docID]) == len(criteria) {
			match.Confidence = allCriteriaBoost
		}
	}
	return matches
}

// blendMatches combines both paths using the strategy weights. A document
// seen by only one path keeps that path's score scaled by its weight plus
// half the other weight, so single-path hits are dampened but not buried.
// An all-criteria keyword match never blends below its boost.
func blendMatches(semantic, keyword map[string]*rag.DocumentMatch, strategy query.SearchStrategy) []rag.DocumentMatch {
	ids := make(map[string]struct{}, len(semantic)+len(keyword))
	for id := range semantic {
		ids[id] = struct{}{}
	}
	for id := range keyword {
		ids[id] = struct{}{}
	}
	merged := make([]rag.DocumentMatch, 0, len(ids))
	for id := range ids {
		sem, hasSem := semantic[id]
		key, hasKey := keyword[id]
		var out rag.DocumentMatch
		switch {
		case hasSem && hasKey:
			out = *sem
			out.Confidence = rag.Clamp01(sem.Confidence*strategy.SemanticWeight + key.Confidence*strategy.KeywordWeight)
			out.MatchedCriteria = key.MatchedCriteria
			out.MatchedChunks = mergeChunks(sem.MatchedChunks, key.MatchedChunks)
		case hasSem:
			out = *sem
			out.Confidence = rag.Clamp01(sem.Confidence * (strategy.SemanticWeight + strategy.KeywordWeight/2))
		default:
			out = *key
			out.Confidence = rag.Clamp01(key.Confidence * (strategy.KeywordWeight + strategy.SemanticWeight/2))
		}
		if hasKey && key.Confidence >= allCriteriaBoost && out.Confidence < key.Confidence {
			// A document satisfying every criterion keeps its boost even
			// when the vector path saw nothing or scored it weakly; damping
			// applies to partial keyword hits only.
			out.Confidence = key.Confidence
		}
		sortChunks(out.MatchedChunks)
		merged = append(merged, out)
	}
	return merged
}

func mergeChunks(a, b []rag.ChunkMatch) []rag.ChunkMatch {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]rag.ChunkMatch, 0, len(a)+len(b))
	for _, chunk := range append(append([]rag.ChunkMatch(nil), a...), b...) {
		if _, ok := seen[chunk.ChunkID]; ok {
			continue
		}
		seen[chunk.ChunkID] = struct{}{}
		merged = append(merged, chunk)
	}
	return merged
}

func sortChunks(chunks []rag.ChunkMatch) {
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Relevance > chunks[j].Relevance })
}

// isClearSingle applies the show_single policy: a confident leader clearly
// ahead of the runner-up.
func isClearSingle(matches []rag.DocumentMatch) bool {
	if len(matches) == 0 || matches[0].Confidence <= singleMatchFloor {
		return false
	}
	if len(matches) == 1 {
		return true
	}
	return matches[0].Confidence-matches[1].Confidence >= singleMatchLead
}

func anyMatchesAll(matches []rag.DocumentMatch, criteria []rag.SearchCriteria) bool {
	for _, match := range matches {
		if len(match.MatchedCriteria) == len(criteria) {
			return true
		}
	}
	return false
}

func significantTerms(text string) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, `.,!?;:"'()`)
		if len(word) < 3 {
			continue
		}
		if _, stop := criteriaStopwords[word]; stop {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

func overlappingTerms(content string, terms []string) []string {
	lower := strings.ToLower(content)
	var matched []string
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched = append(matched, term)
		}
	}
	return matched
}

// boostByTermOverlap raises vector confidence when the query's terms appear
// in the filename or chunk text. The boost is additive and clamped, so it
// can lift a borderline score but never exceed certainty.
func boostByTermOverlap(confidence float64, filename, content string, terms []string) float64 {
	if len(terms) == 0 {
		return rag.Clamp01(confidence)
	}
	lowerName := strings.ToLower(filename)
	nameHits, contentHits := 0, 0
	lowerContent := strings.ToLower(content)
	for _, term := range terms {
		if strings.Contains(lowerName, term) {
			nameHits++
		}
		if strings.Contains(lowerContent, term) {
			contentHits++
		}
	}
	boost := 0.15*float64(nameHits)/float64(len(terms)) + 0.10*float64(contentHits)/float64(len(terms))
	return rag.Clamp01(confidence + boost)
}

func excerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= excerptLength {
		return content
	}
	cut := content[:excerptLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > excerptLength/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
