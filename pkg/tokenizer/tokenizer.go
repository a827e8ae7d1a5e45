// Package tokenizer implements the optimal segmentation engine: given
// a vocabulary (pkg/token), it builds a span table and a prefix
// automaton once, then computes the minimum-token-count segmentation
// of arbitrary byte slices in linear time, accumulating per-token,
// per-sequence, and per-pair statistics (pkg/tokstats).
package tokenizer

import (
	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// CostState is one entry of the DP cost table: the minimum cost to
// reach this position, and the span chosen to reach it. Exported so
// callers (pkg/scan) can own a reusable scratch buffer across calls.
type CostState struct {
	Cost uint64
	Span int
}

// FragmentTokenizer is the built segmentation engine for one
// vocabulary. It is immutable after construction and safe to share by
// read-only reference across goroutines.
type FragmentTokenizer struct {
	TokenSet *token.TokenSet
	spans    []span
	states   []suffixState
}

// New builds the span table and automaton for ts.
func New(ts *token.TokenSet) *FragmentTokenizer {
	spans, spanByStr := buildSpans(ts)
	states := buildSuffixStates(spans, spanByStr)
	return &FragmentTokenizer{TokenSet: ts, spans: spans, states: states}
}

// ProcessSlice computes the minimum-cost segmentation of bytes and
// folds the resulting token/sequence/pair counts into stats. scratch
// is a caller-owned, reused CostState buffer (avoids reallocating the
// DP table per call in the hot scan loop).
func (ft *FragmentTokenizer) ProcessSlice(bytes []byte, stats *tokstats.TokenStats, scratch *[]CostState) {
	cs := (*scratch)[:0]
	cs = append(cs, CostState{Cost: 0, Span: 0})

	state := &ft.states[0]
	for _, b := range bytes {
		state = &ft.states[state.next[b]]

		var best CostState
		haveBest := false
		spanIdx := state.spanIdx
		for spanIdx != 0 {
			s := &ft.spans[spanIdx]
			prev := cs[len(cs)-len(s.bytes)].Cost
			cost := prev + s.cost
			if !haveBest || best.Cost > cost {
				best = CostState{Cost: cost, Span: spanIdx}
				haveBest = true
			}
			spanIdx = s.suffixSpan
		}
		if !haveBest {
			panic("tokenizer: no feasible span at this position; vocabulary violates byte coverage")
		}
		cs = append(cs, best)
	}

	*scratch = cs
	ft.updateStats(cs, bytes, stats)
}

func (ft *FragmentTokenizer) updateStats(cs []CostState, bytes []byte, stats *tokstats.TokenStats) {
	stats.TotalTokens += cs[len(cs)-1].Cost
	stats.ScannedBytes += uint64(len(bytes))

	ntokens := stats.NTokens()
	spanCounts := make([]uint64, len(ft.spans))

	nextToken := -1
	pos := len(bytes)
	for pos > 0 {
		spanIdx := cs[pos].Span
		spanCounts[spanIdx]++

		s := &ft.spans[spanIdx]
		if s.kind == spanToken {
			if nextToken >= 0 {
				stats.PairCounts[s.tokenIdx*ntokens+nextToken]++
			}
			nextToken = s.tokenIdx
		} else {
			nextToken = -1
		}

		pos -= len(s.bytes)
	}

	for spanIdx := 1; spanIdx < len(ft.spans); spanIdx++ {
		count := spanCounts[spanIdx]
		if count == 0 {
			continue
		}
		s := &ft.spans[spanIdx]
		switch s.kind {
		case spanSequence:
			stats.SeqCounts[s.seqIdx] += count
			for _, tokenIdx := range ft.TokenSet.Sequences[s.seqIdx].Tokens {
				stats.TokenCounts[tokenIdx] += count
			}
		case spanToken:
			stats.TokenCounts[s.tokenIdx] += count
		case spanNone:
			panic("tokenizer: sentinel span selected in traceback")
		}
	}
}

// Segment returns the flat list of token indices chosen for bytes,
// expanding Sequence spans into their constituent token indices, in
// left-to-right order. This is a convenience built on the same DP as
// ProcessSlice, used by pkg/pack and cmd/tokens count-chars; it is not
// on the optimizer's hot path.
func (ft *FragmentTokenizer) Segment(bytes []byte) []int {
	var scratch []CostState
	cs := append(scratch, CostState{Cost: 0, Span: 0})
	state := &ft.states[0]

	for _, b := range bytes {
		state = &ft.states[state.next[b]]
		var best CostState
		haveBest := false
		spanIdx := state.spanIdx
		for spanIdx != 0 {
			s := &ft.spans[spanIdx]
			prev := cs[len(cs)-len(s.bytes)].Cost
			cost := prev + s.cost
			if !haveBest || best.Cost > cost {
				best = CostState{Cost: cost, Span: spanIdx}
				haveBest = true
			}
			spanIdx = s.suffixSpan
		}
		cs = append(cs, best)
	}

	var spansChosen []int
	pos := len(bytes)
	for pos > 0 {
		spanIdx := cs[pos].Span
		spansChosen = append(spansChosen, spanIdx)
		pos -= len(ft.spans[spanIdx].bytes)
	}

	var out []int
	for i := len(spansChosen) - 1; i >= 0; i-- {
		s := &ft.spans[spansChosen[i]]
		switch s.kind {
		case spanToken:
			out = append(out, s.tokenIdx)
		case spanSequence:
			out = append(out, ft.TokenSet.Sequences[s.seqIdx].Tokens...)
		}
	}
	return out
}
