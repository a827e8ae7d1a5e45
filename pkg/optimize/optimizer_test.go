package optimize

import (
	"strings"
	"testing"

	"github.com/eterevsky/tokens-go/pkg/scan"
	"github.com/eterevsky/tokens-go/pkg/token"
)

// repeatSampler is a minimal in-memory scan.Sampler used only by these
// tests.
type repeatSampler struct {
	data []byte
	done bool
}

func newRepeatSampler(text string) *repeatSampler {
	return &repeatSampler{data: []byte(text)}
}

func (s *repeatSampler) Next() (scan.Sample, bool) {
	if s.done {
		return scan.Sample{}, false
	}
	s.done = true
	return scan.Sample{Data: s.data}, true
}

func (s *repeatSampler) TotalSize() uint64 { return uint64(len(s.data)) }

func newTestCache(text string) *scan.TokenizerCache {
	factory := func() scan.Sampler { return newRepeatSampler(text) }
	return scan.NewCache(factory, nil, nil)
}

// seedCoverAll builds a minimal valid BytesHuff TokenSet: every byte
// covered by a fixed base-nExtTokens digit decomposition, with no Str
// tokens of its own — just enough to be well-formed before reshuffling.
func seedCoverAll(nExtTokens int) *token.TokenSet {
	ts := token.New(nExtTokens, token.Raw, token.BytesHuff, false)

	digits := 1
	for p := nExtTokens; p < 256; p *= nExtTokens {
		digits++
	}
	for b := 0; b < 256; b++ {
		path := make([]int, digits)
		v := b
		for i := digits - 1; i >= 0; i-- {
			path[i] = v % nExtTokens
			v /= nExtTokens
		}
		ts.AddSequence([]byte{byte(b)}, path)
	}
	return ts
}

// TestHuffmanReshuffleImprovesSkewedCorpus is scenario S3: on a corpus
// where 'e' vastly outnumbers every other byte, a Huffman byte-tail
// reshuffle of a BytesHuff vocabulary must cost strictly fewer tokens
// than the unreshuffled seed, and must place 'e' behind a dedicated Str
// token.
func TestHuffmanReshuffleImprovesSkewedCorpus(t *testing.T) {
	corpus := strings.Repeat("e", 500) + strings.Repeat("x", 10)
	cache := newTestCache(corpus)
	scorer := newCacheScorer(cache)

	seed := seedCoverAll(4)
	baselineStats, err := scorer.stats(seed)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	reshuffled := ForKind(token.BytesHuff).OptimizeBytes(baselineStats, 4)
	reshuffledTotal, err := scorer.totalTokens(reshuffled)
	if err != nil {
		t.Fatalf("totalTokens: %v", err)
	}
	if reshuffledTotal >= baselineStats.TotalTokens {
		t.Errorf("huffman reshuffle did not improve: %d >= %d", reshuffledTotal, baselineStats.TotalTokens)
	}

	if _, ok := reshuffled.FindToken([]byte("e")); !ok {
		t.Errorf("huffman reshuffle did not give the dominant byte 'e' a dedicated Str token")
	}
}

// TestOptimizerImprovesEnglishSample is scenario S4: optimizing a
// Bits1 seed against a small repetitive English-like sample must
// strictly reduce the total token count from the unoptimized seed.
func TestOptimizerImprovesEnglishSample(t *testing.T) {
	corpus := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	cache := newTestCache(corpus)
	scorer := newCacheScorer(cache)

	seed := token.NewBits1(token.Raw, true)
	baseline, err := scorer.totalTokens(seed)
	if err != nil {
		t.Fatalf("totalTokens: %v", err)
	}

	optimized, err := OptimizeTokenSet(seed, cache, seed.NTokens()+20, nil, nil)
	if err != nil {
		t.Fatalf("OptimizeTokenSet: %v", err)
	}
	final, err := scorer.totalTokens(optimized)
	if err != nil {
		t.Fatalf("totalTokens: %v", err)
	}

	if final >= baseline {
		t.Errorf("optimizer did not improve on the seed vocabulary: final=%d baseline=%d", final, baseline)
	}
}

// TestAddTokenBPERejectsParagraphStraddlingMerge is scenario S5: a BPE
// merge candidate containing "\n\n" followed by something other than
// "\n" must never be proposed, even when it would otherwise be the
// highest-count pair.
func TestAddTokenBPERejectsParagraphStraddlingMerge(t *testing.T) {
	ts := token.NewBits1(token.Raw, false)
	ts.AddToken([]byte("\n\n"))
	ts.AddToken([]byte("x"))

	corpus := strings.Repeat("\n\nx", 100)
	cache := newTestCache(corpus)

	stats, err := cache.GetStatsWithPairs(ts)
	if err != nil {
		t.Fatalf("GetStatsWithPairs: %v", err)
	}

	if got, ok := addTokenBPE(ts, stats); ok {
		if !isValidToken(got) {
			t.Errorf("addTokenBPE proposed an invalid token: %q", got)
		}
		if string(got) == "\n\nx" {
			t.Errorf("addTokenBPE proposed the forbidden merge %q", got)
		}
	}
}

// TestOptimizationStepNeverIncreasesCost is Invariant 6: repeated
// OptimizationStep calls must never raise the total token count.
func TestOptimizationStepNeverIncreasesCost(t *testing.T) {
	corpus := strings.Repeat("banana bandana ", 60)
	cache := newTestCache(corpus)
	scorer := newCacheScorer(cache)

	ts := token.NewBits2(token.Raw, true)
	prevTotal, err := scorer.totalTokens(ts)
	if err != nil {
		t.Fatalf("totalTokens: %v", err)
	}

	removalCounts := make(map[string]int)
	for i := 0; i < 10; i++ {
		next, changed, err := OptimizationStep(ts, scorer, ts.NTokens()+5, removalCounts)
		if err != nil {
			t.Fatalf("OptimizationStep: %v", err)
		}
		total, err := scorer.totalTokens(next)
		if err != nil {
			t.Fatalf("totalTokens: %v", err)
		}
		if total > prevTotal {
			t.Fatalf("step %d increased total tokens: %d > %d", i, total, prevTotal)
		}
		ts = next
		prevTotal = total
		if !changed {
			break
		}
	}
}
