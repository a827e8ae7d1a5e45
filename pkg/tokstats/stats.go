// Package tokstats holds the per-scan aggregate statistics produced
// by the segmentation engine (pkg/tokenizer) and consumed by the
// parallel scanner (pkg/scan) and the vocabulary optimizer
// (pkg/optimize).
package tokstats

import (
	"encoding/json"

	"github.com/eterevsky/tokens-go/pkg/token"
)

// TokenStats is the per-scan aggregate: total token count, bytes
// scanned, per-token and per-sequence counts, and the flattened
// token*token pair-count matrix (populated only when requested).
type TokenStats struct {
	TokenSet     *token.TokenSet
	TotalTokens  uint64
	InitialSize  *uint64
	ScannedBytes uint64
	TokenCounts  []uint64
	SeqCounts    []uint64
	PairCounts   []uint64
}

// New allocates a zeroed TokenStats sized for ts. initialSize, when
// non-nil, records the advisory uncompressed corpus size used to
// report bytes-per-token.
func New(ts *token.TokenSet, initialSize *uint64) *TokenStats {
	n := ts.NTokens()
	return &TokenStats{
		TokenSet:    ts,
		InitialSize: initialSize,
		TokenCounts: make([]uint64, n),
		SeqCounts:   make([]uint64, len(ts.Sequences)),
		PairCounts:  make([]uint64, n*n),
	}
}

// NTokens returns the vocabulary size these stats were scored
// against.
func (s *TokenStats) NTokens() int { return s.TokenSet.NTokens() }

// BytesPerToken is InitialSize / TotalTokens, the compression ratio
// the stats report; 0 if InitialSize is unset or TotalTokens is 0.
func (s *TokenStats) BytesPerToken() float64 {
	if s.InitialSize == nil || s.TotalTokens == 0 {
		return 0
	}
	return float64(*s.InitialSize) / float64(s.TotalTokens)
}

// Merge additively folds other into s: TotalTokens, ScannedBytes,
// TokenCounts and SeqCounts are summed. PairCounts are intentionally
// NOT merged — a single scan's pair counts are consumed immediately
// by the optimizer and then discarded to bound memory, mirroring the
// original stats2.rs::merge.
func (s *TokenStats) Merge(other *TokenStats) {
	s.TotalTokens += other.TotalTokens
	s.ScannedBytes += other.ScannedBytes
	for i := range s.TokenCounts {
		s.TokenCounts[i] += other.TokenCounts[i]
	}
	for i := range s.SeqCounts {
		s.SeqCounts[i] += other.SeqCounts[i]
	}
}

// WithoutPairCounts returns a shallow copy of s with PairCounts
// cleared, the form the cache stores for get_stats (pair counts are
// only needed transiently by the BPE add candidate search).
func (s *TokenStats) WithoutPairCounts() *TokenStats {
	cp := *s
	cp.PairCounts = nil
	return &cp
}

// ToMap renders the stats as the optional "stats" object of the
// vocabulary JSON schema (§6), to be merged into
// TokenSet.ToMap()'s result before marshaling.
func (s *TokenStats) ToMap() map[string]any {
	m := map[string]any{
		"ntokens":      s.NTokens(),
		"total_tokens": s.TotalTokens,
		"scanned_bytes": s.ScannedBytes,
	}
	if s.InitialSize != nil {
		m["initial_size"] = *s.InitialSize
		m["bytes_per_token"] = s.BytesPerToken()
	}
	return m
}

// ToJSON marshals the TokenSet together with this stats object under
// a top-level "stats" key, per §6's schema.
func ToJSON(s *TokenStats) ([]byte, error) {
	m := s.TokenSet.ToMap()
	m["stats"] = s.ToMap()
	return json.MarshalIndent(m, "", "  ")
}
