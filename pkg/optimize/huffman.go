package optimize

import (
	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// HuffOptimizer builds BytesHuff vocabularies. Unlike SimpleBytesOptimizer's
// fixed bit-decomposition, it searches over the Ext-slot count E itself: for
// each E in [2, min(nByteExtTokens-1, 8)] it builds a candidate vocabulary
// (see optimizeBytesTokenset) and keeps whichever E yields the fewest
// expected tokens over the observed byte frequencies. Within one candidate,
// the 256 bytes are recursively split into contiguous groups weighted by
// frequency; each group's single most frequent byte becomes a dedicated Str
// token, and the rest of the group falls back to an Ext-coded Sequence
// rooted at that Str token.
type HuffOptimizer struct{}

// byteEntry pairs a byte value with its observed (Laplace-smoothed) weight.
type byteEntry struct {
	b     byte
	count uint64
}

func (HuffOptimizer) OptimizeBytes(stats *tokstats.TokenStats, nByteExtTokens int) *token.TokenSet {
	ts := stats.TokenSet

	var counts [256]uint64
	for i := range counts {
		counts[i] = 1
	}
	for tokenIdx, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) == 1 {
			counts[t.Bytes()[0]] = stats.TokenCounts[tokenIdx] + 1
		}
	}
	for seqIdx, seq := range ts.Sequences {
		if len(seq.Bytes) == 1 {
			counts[seq.Bytes[0]] = stats.SeqCounts[seqIdx] + 1
		}
	}

	entries := make([]byteEntry, 256)
	for i := 0; i < 256; i++ {
		entries[i] = byteEntry{b: byte(i), count: counts[i]}
	}

	maxExt := nByteExtTokens - 1
	if maxExt > 8 {
		maxExt = 8
	}

	var best *token.TokenSet
	var bestTotal uint64
	haveBest := false

	for nExt := 2; nExt <= maxExt; nExt++ {
		nByteTokens := nByteExtTokens - nExt
		candidate := optimizeBytesTokenset(entries, nByteTokens, nExt, ts.Processing)
		total := costOfBytesTokenset(candidate, counts)
		if !haveBest || total < bestTotal {
			best = candidate
			bestTotal = total
			haveBest = true
		}
	}

	if !haveBest {
		// nByteExtTokens is too small for any E in [2, 8]; fall back to
		// the smallest legal split rather than leaving no candidate at
		// all.
		nExt := 2
		if nExt > nByteExtTokens {
			nExt = nByteExtTokens
		}
		best = optimizeBytesTokenset(entries, nByteExtTokens-nExt, nExt, ts.Processing)
	}

	for _, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) > 1 {
			best.AddToken(t.Bytes())
		}
	}
	return best
}

// costOfBytesTokenset counts the tokens a vocabulary would cost to encode
// one occurrence of every byte weighted by counts: 1 per dedicated Str
// token, len(sequence.Tokens) per byte behind a fallback Sequence.
func costOfBytesTokenset(ts *token.TokenSet, counts [256]uint64) uint64 {
	var total uint64
	for _, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) == 1 {
			total += counts[t.Bytes()[0]]
		}
	}
	for _, seq := range ts.Sequences {
		total += counts[seq.Bytes[0]] * uint64(len(seq.Tokens))
	}
	return total
}

// optimizeBytesTokenset builds one BytesHuff candidate: nCharTokens
// contiguous byte groups (via optimizeSplitsEntries), each contributing one
// Str token for its most frequent byte, with every other byte in the group
// Ext-encoded (via optimizeExtEncoding) into a Sequence rooted at that Str
// token's index.
func optimizeBytesTokenset(entries []byteEntry, nCharTokens, nExtTokens int, processing token.Processing) *token.TokenSet {
	ts := token.New(nExtTokens, processing, token.BytesHuff, true)

	topSplits := optimizeSplitsEntries(entries, nCharTokens)
	for _, g := range topSplits {
		topTokenID := ts.AddToken([]byte{g.top})

		if g.end-g.start == 1 {
			continue
		}

		sub := excludingByte(entries[g.start:g.end], g.top)
		for _, enc := range optimizeExtEncoding(sub, nExtTokens) {
			path := make([]int, len(enc.path)+1)
			path[0] = topTokenID
			copy(path[1:], enc.path)
			ts.AddSequence([]byte{enc.b}, path)
		}
	}
	return ts
}

// extEncoding is one byte's Ext-slot path within a group that did not
// become a dedicated Str token.
type extEncoding struct {
	b    byte
	path []int
}

// optimizeExtEncoding recursively assigns Ext-index paths to every byte in
// entries, splitting into at most nExtTokens groups per level and recursing
// into any group with more than one remaining byte.
func optimizeExtEncoding(entries []byteEntry, nExtTokens int) []extEncoding {
	if len(entries) <= nExtTokens {
		out := make([]extEncoding, len(entries))
		for i, e := range entries {
			out[i] = extEncoding{b: e.b, path: []int{i}}
		}
		return out
	}

	var out []extEncoding
	for i, g := range optimizeSplitsEntries(entries, nExtTokens) {
		out = append(out, extEncoding{b: g.top, path: []int{i}})

		if g.end-g.start == 1 {
			continue
		}

		sub := excludingByte(entries[g.start:g.end], g.top)
		for _, enc := range optimizeExtEncoding(sub, nExtTokens) {
			path := make([]int, len(enc.path)+1)
			path[0] = i
			copy(path[1:], enc.path)
			out = append(out, extEncoding{b: enc.b, path: path})
		}
	}
	return out
}

// excludingByte returns a copy of entries with the entry for b removed,
// preserving order.
func excludingByte(entries []byteEntry, b byte) []byteEntry {
	out := make([]byteEntry, 0, len(entries)-1)
	for _, e := range entries {
		if e.b == b {
			continue
		}
		out = append(out, e)
	}
	return out
}

// splitGroup is one contiguous index range of a byteEntry slice, carrying
// the byte with the highest weight in the range (its "top").
type splitGroup struct {
	start, end int
	top        byte
	topCount   uint64
}

// optimizeSplitsEntries partitions entries (already contiguous in index,
// not necessarily in byte value) into exactly parts contiguous groups: it
// starts with every entry as its own singleton group and repeatedly merges
// the pair of index-adjacent groups with the smallest combined weight until
// only parts groups remain — the same contiguous-merge construction as
// optimize_bytes.rs's optimize_splits, generalized to also track each
// merged group's highest-weight member as its "top" byte.
func optimizeSplitsEntries(entries []byteEntry, parts int) []splitGroup {
	n := len(entries)
	if parts > n {
		parts = n
	}
	if parts < 1 {
		parts = 1
	}

	type node struct {
		start, end int
		weight     uint64
		top        byte
		topCount   uint64
	}
	nodes := make([]node, n)
	for i, e := range entries {
		nodes[i] = node{start: i, end: i + 1, weight: e.count, top: e.b, topCount: e.count}
	}

	for len(nodes) > parts {
		best := 0
		bestSum := nodes[0].weight + nodes[1].weight
		for i := 1; i < len(nodes)-1; i++ {
			sum := nodes[i].weight + nodes[i+1].weight
			if sum < bestSum {
				bestSum = sum
				best = i
			}
		}

		a, b := nodes[best], nodes[best+1]
		top, topCount := a.top, a.topCount
		if b.topCount > topCount {
			top, topCount = b.top, b.topCount
		}
		merged := node{start: a.start, end: b.end, weight: bestSum, top: top, topCount: topCount}

		nodes = append(nodes[:best], append([]node{merged}, nodes[best+2:]...)...)
	}

	out := make([]splitGroup, len(nodes))
	for i, nd := range nodes {
		out[i] = splitGroup{start: nd.start, end: nd.end, top: nd.top, topCount: nd.topCount}
	}
	return out
}
