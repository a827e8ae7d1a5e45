package scan

import (
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokenizer"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// SamplerFactory produces a fresh Sampler iterator over the same
// underlying corpus. The cache needs a factory, not a single Sampler,
// because every candidate vocabulary the optimizer proposes requires
// its own pass over the corpus from the beginning.
type SamplerFactory func() Sampler

// TokenizerCache memoizes scan results by vocabulary fingerprint, so
// the optimizer's many re-scorings of near-identical candidate
// vocabularies are not redundant. It is owned by a single optimizer
// driver and is not safe for concurrent use across goroutines — it is
// the only component in this package that mutates across calls.
type TokenizerCache struct {
	newSampler  SamplerFactory
	initialSize *uint64
	logger      *zap.SugaredLogger
	entries     map[string]*tokstats.TokenStats
}

// NewCache constructs an empty cache backed by newSampler.
func NewCache(newSampler SamplerFactory, initialSize *uint64, logger *zap.SugaredLogger) *TokenizerCache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &TokenizerCache{
		newSampler:  newSampler,
		initialSize: initialSize,
		logger:      logger,
		entries:     make(map[string]*tokstats.TokenStats),
	}
}

// Fingerprint returns the canonical cache key for ts: ts is cloned,
// sorted, and serialized to its canonical JSON form, which is hashed
// with SHA-256. Any two vocabularies producing the same fingerprint
// are observationally equivalent to the segmentation engine
// (Invariant 5).
func Fingerprint(ts *token.TokenSet) (string, error) {
	cp := ts.Clone()
	cp.Sort()
	data, err := cp.ToJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// GetStats returns stats for ts (with PairCounts cleared), using a
// cached result when ts's fingerprint is already known, and scanning
// otherwise.
func (c *TokenizerCache) GetStats(ts *token.TokenSet) (*tokstats.TokenStats, error) {
	key, err := Fingerprint(ts)
	if err != nil {
		return nil, err
	}
	if cached, ok := c.entries[key]; ok {
		c.logger.Debugw("cache hit", "fingerprint", key)
		return cached, nil
	}

	stats, err := c.scan(ts)
	if err != nil {
		return nil, err
	}
	cleared := stats.WithoutPairCounts()
	c.entries[key] = cleared
	return cleared, nil
}

// GetStatsWithPairs always rescans ts (pair counts are needed fresh
// every time), then caches the pair-stripped result for any later
// plain GetStats call with the same fingerprint.
func (c *TokenizerCache) GetStatsWithPairs(ts *token.TokenSet) (*tokstats.TokenStats, error) {
	stats, err := c.scan(ts)
	if err != nil {
		return nil, err
	}
	key, err := Fingerprint(ts)
	if err != nil {
		return nil, err
	}
	c.entries[key] = stats.WithoutPairCounts()
	return stats, nil
}

func (c *TokenizerCache) scan(ts *token.TokenSet) (*tokstats.TokenStats, error) {
	ft := tokenizer.New(ts)
	return Run(ft, c.newSampler(), c.initialSize, c.logger)
}
