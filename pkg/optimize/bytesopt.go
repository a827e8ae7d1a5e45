// Package optimize implements the vocabulary optimizer: a local
// search over candidate vocabularies (pkg/token) that mutates the
// byte tail, adds tokens by BPE or by byte promotion, and swaps
// tokens out, accepting any mutation that strictly reduces the total
// token count measured by the segmentation engine (pkg/tokenizer)
// through a memoizing scanner (pkg/scan).
package optimize

import (
	"sort"

	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// BytesOptimizer proposes a replacement vocabulary for the byte tail,
// based on single-byte frequencies observed in stats, keeping every
// multi-byte Str token. SimpleBytesOptimizer and HuffOptimizer build
// the tail from nByteExtTokens byte-or-Ext tokens (Simple keeps the
// kind's Ext slots and clamps the single-byte count to [0, 256]);
// NoopBytesOptimizer ignores nByteExtTokens and returns an unchanged
// clone of stats.TokenSet. A closed set of three variants, dispatched
// by token.Kind, is sufficient; no open extensibility is required.
type BytesOptimizer interface {
	OptimizeBytes(stats *tokstats.TokenStats, nByteExtTokens int) *token.TokenSet
}

// ForKind returns the BytesOptimizer appropriate for kind.
func ForKind(kind token.Kind) BytesOptimizer {
	switch kind {
	case token.Bits1, token.Bits2, token.Bits4:
		return SimpleBytesOptimizer{}
	case token.Bytes:
		return NoopBytesOptimizer{}
	case token.BytesHuff:
		return HuffOptimizer{}
	default:
		panic("optimize: unknown kind")
	}
}

// SimpleBytesOptimizer reshuffles which bytes get a dedicated
// single-byte Str token for Bits1/Bits2/Bits4 vocabularies: the
// n_byte_tokens most frequently observed bytes are promoted; the rest
// fall back to the kind's fixed bit-decomposition sequence. Every
// pre-existing multi-byte Str token is preserved.
type SimpleBytesOptimizer struct{}

func (SimpleBytesOptimizer) OptimizeBytes(stats *tokstats.TokenStats, nByteExtTokens int) *token.TokenSet {
	ts := stats.TokenSet
	nByteTokens := nByteExtTokens - ts.NExtTokens

	var byteCounts [256]int64
	for tokenIdx, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) == 1 {
			byteCounts[t.Bytes()[0]] = int64(stats.TokenCounts[tokenIdx])
		}
	}
	for seqIdx, seq := range ts.Sequences {
		if len(seq.Bytes) == 1 {
			byteCounts[seq.Bytes[0]] = int64(stats.SeqCounts[seqIdx])
		}
	}

	bytesByCount := make([]int, 256)
	for i := range bytesByCount {
		bytesByCount[i] = i
	}
	sort.SliceStable(bytesByCount, func(i, j int) bool {
		return byteCounts[bytesByCount[i]] > byteCounts[bytesByCount[j]]
	})

	if nByteTokens < 0 {
		nByteTokens = 0
	}
	if nByteTokens > 256 {
		nByteTokens = 256
	}
	selected := bytesByCount[:nByteTokens]

	var newTS *token.TokenSet
	switch ts.Kind {
	case token.Bits1:
		newTS = token.NewBits1(ts.Processing, ts.SplitParagraphs)
	case token.Bits2:
		newTS = token.NewBits2(ts.Processing, ts.SplitParagraphs)
	case token.Bits4:
		newTS = token.NewBits4(ts.Processing, ts.SplitParagraphs)
	default:
		panic("optimize: SimpleBytesOptimizer only works for Bits* TokenSets")
	}

	for _, b := range selected {
		newTS.AddToken([]byte{byte(b)})
	}
	for _, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) > 1 {
			newTS.AddToken(t.Bytes())
		}
	}
	return newTS
}

// NoopBytesOptimizer is used for the Bytes kind, which has no Ext
// slots and no reshuffling to do: every byte is already a mandatory
// Str token.
type NoopBytesOptimizer struct{}

func (NoopBytesOptimizer) OptimizeBytes(stats *tokstats.TokenStats, _ int) *token.TokenSet {
	return stats.TokenSet.Clone()
}
