package optimize

import (
	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// isValidToken rejects candidate Str token byte strings matching the
// pattern "\n\n" followed by anything other than another "\n",
// anywhere inside a string of length 3 or more. Shorter strings are
// vacuously valid — the pattern needs 3 bytes to appear at all. This
// keeps BPE merges from manufacturing a token that straddles a
// paragraph boundary with arbitrary trailing content.
func isValidToken(b []byte) bool {
	for i := 0; i+2 < len(b); i++ {
		if b[i] == '\n' && b[i+1] == '\n' && b[i+2] != '\n' {
			return false
		}
	}
	return true
}

// addTokenBPE proposes a new Str token by merging the most frequently
// co-occurring adjacent pair of existing Str tokens observed in
// stats.PairCounts, skipping any merge that already exists as a Str
// token or that fails isValidToken. It returns (nil, false) if no pair
// yields a usable candidate — callers must not treat that as an error.
func addTokenBPE(ts *token.TokenSet, stats *tokstats.TokenStats) ([]byte, bool) {
	if stats.PairCounts == nil {
		return nil, false
	}
	n := ts.NTokens()

	type candidate struct {
		bytes []byte
		count uint64
	}
	var best *candidate

	for i := 0; i < n; i++ {
		ti := ts.Tokens[i]
		if ti.IsExt() {
			continue
		}
		for j := 0; j < n; j++ {
			count := stats.PairCounts[i*n+j]
			if count == 0 {
				continue
			}
			tj := ts.Tokens[j]
			if tj.IsExt() {
				continue
			}
			merged := append(append([]byte{}, ti.Bytes()...), tj.Bytes()...)
			if _, exists := ts.FindToken(merged); exists {
				continue
			}
			if !isValidToken(merged) {
				continue
			}
			if best == nil || count > best.count {
				best = &candidate{bytes: merged, count: count}
			}
		}
	}

	if best == nil {
		return nil, false
	}
	return best.bytes, true
}

// addTokenByte proposes promoting the single byte with the highest
// observed fallback-sequence weight (one not already a Str token) into
// a new Str token. Returns (nil, false) if every byte already has a
// dedicated Str token or none were observed at all.
func addTokenByte(ts *token.TokenSet, stats *tokstats.TokenStats) ([]byte, bool) {
	var bestByte int = -1
	var bestWeight uint64

	for seqIdx, seq := range ts.Sequences {
		if len(seq.Bytes) != 1 {
			continue
		}
		b := seq.Bytes[0]
		if _, exists := ts.FindToken([]byte{b}); exists {
			continue
		}
		w := stats.SeqCounts[seqIdx]
		if bestByte == -1 || w > bestWeight {
			bestByte = int(b)
			bestWeight = w
		}
	}

	if bestByte == -1 {
		return nil, false
	}
	return []byte{byte(bestByte)}, true
}

// addToken picks whichever of addTokenBPE / addTokenByte actually
// reduces the total token count when scored through cache, and returns
// the resulting vocabulary. It returns (nil, false) if neither
// candidate improves on ts.
func addToken(ts *token.TokenSet, cache *cacheScorer) (*token.TokenSet, bool) {
	baseline, err := cache.totalTokens(ts)
	if err != nil {
		return nil, false
	}

	statsWithPairs, err := cache.statsWithPairs(ts)
	if err != nil {
		return nil, false
	}

	var candidates [][]byte
	if b, ok := addTokenBPE(ts, statsWithPairs); ok {
		candidates = append(candidates, b)
	}
	if b, ok := addTokenByte(ts, statsWithPairs); ok {
		candidates = append(candidates, b)
	}

	var bestTS *token.TokenSet
	var bestTotal uint64
	for _, cand := range candidates {
		trial := ts.Clone()
		trial.AddToken(cand)
		total, err := cache.totalTokens(trial)
		if err != nil {
			continue
		}
		if total >= baseline {
			continue
		}
		if bestTS == nil || total < bestTotal {
			bestTS = trial
			bestTotal = total
		}
	}

	if bestTS == nil {
		return nil, false
	}
	return bestTS, true
}
