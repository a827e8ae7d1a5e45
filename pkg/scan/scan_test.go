package scan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokenizer"
)

// chunkSampler is a minimal in-memory Sampler used only by these
// tests; pkg/sampler holds the real implementations.
type chunkSampler struct {
	chunks [][]byte
	pos    int
	total  uint64
}

func newChunkSampler(chunks ...string) *chunkSampler {
	cs := &chunkSampler{}
	for _, c := range chunks {
		b := []byte(c)
		cs.chunks = append(cs.chunks, b)
		cs.total += uint64(len(b))
	}
	return cs
}

func (s *chunkSampler) Next() (Sample, bool) {
	if s.pos >= len(s.chunks) {
		return Sample{}, false
	}
	d := s.chunks[s.pos]
	s.pos++
	return Sample{Data: d}, true
}

func (s *chunkSampler) TotalSize() uint64 { return s.total }

func TestRunSequentialCountsScannedBytes(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	ts.AddToken([]byte("ab"))
	ft := tokenizer.New(ts)

	stats, err := Run(ft, newChunkSampler("ab", "cd", "ab"), nil, nil)
	require.NoError(t, err)
	require.EqualValues(t, 3*len("ab"), stats.ScannedBytes)
	require.Greater(t, stats.TotalTokens, uint64(0))
}

// fakeParallelSampler reports a TotalSize above the parallel
// threshold so Run exercises the worker-pool path, while actually
// holding a small, fast corpus.
type fakeParallelSampler struct {
	*chunkSampler
}

func (s *fakeParallelSampler) TotalSize() uint64 { return parallelThreshold + 1 }

func TestRunParallelMergesAdditively(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	ts.AddToken([]byte("ab"))
	ft := tokenizer.New(ts)

	chunks := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		chunks = append(chunks, "ababab")
	}

	seq, err := Run(ft, newChunkSampler(chunks...), nil, nil)
	require.NoError(t, err)

	par, err := Run(ft, &fakeParallelSampler{newChunkSampler(chunks...)}, nil, nil)
	require.NoError(t, err)

	// S6: parallel merge must equal the sequential scan field-wise.
	require.Equal(t, seq.TotalTokens, par.TotalTokens)
	require.Equal(t, seq.ScannedBytes, par.ScannedBytes)
	require.Equal(t, seq.TokenCounts, par.TokenCounts)
	require.Equal(t, seq.SeqCounts, par.SeqCounts)
}

func TestCacheGetStatsHitsOnSameFingerprint(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	ts.AddToken([]byte("ab"))

	factory := func() Sampler { return newChunkSampler("ababab", "cdcdcd") }
	cache := NewCache(factory, nil, nil)

	first, err := cache.GetStats(ts)
	require.NoError(t, err)
	require.Nil(t, first.PairCounts)

	second, err := cache.GetStats(ts)
	require.NoError(t, err)
	require.Equal(t, first.TotalTokens, second.TotalTokens)
}

func TestCacheGetStatsWithPairsAlwaysRescans(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	ts.AddToken([]byte("ab"))

	factory := func() Sampler { return newChunkSampler("ababab") }
	cache := NewCache(factory, nil, nil)

	withPairs, err := cache.GetStatsWithPairs(ts)
	require.NoError(t, err)
	require.NotNil(t, withPairs.PairCounts)

	plain, err := cache.GetStats(ts)
	require.NoError(t, err)
	require.Nil(t, plain.PairCounts)
	require.Equal(t, withPairs.TotalTokens, plain.TotalTokens)
}

func TestFingerprintStableUnderSort(t *testing.T) {
	a := token.NewBits4(token.Raw, true)
	a.AddToken([]byte("zz"))
	a.AddToken([]byte("aa"))

	b := a.Clone()
	b.Sort()

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	require.Equal(t, fa, fb, "fingerprint must be stable regardless of pre-sort token order")
}
