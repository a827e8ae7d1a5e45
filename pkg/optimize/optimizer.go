package optimize

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/eterevsky/tokens-go/pkg/scan"
	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// cacheScorer wraps a *scan.TokenizerCache with the few read
// operations the optimizer uses: stats, stats with pair counts, and
// the total token count of a candidate vocabulary.
type cacheScorer struct {
	cache *scan.TokenizerCache
}

func newCacheScorer(cache *scan.TokenizerCache) *cacheScorer {
	return &cacheScorer{cache: cache}
}

func (c *cacheScorer) stats(ts *token.TokenSet) (*tokstats.TokenStats, error) {
	return c.cache.GetStats(ts)
}

func (c *cacheScorer) statsWithPairs(ts *token.TokenSet) (*tokstats.TokenStats, error) {
	return c.cache.GetStatsWithPairs(ts)
}

func (c *cacheScorer) totalTokens(ts *token.TokenSet) (uint64, error) {
	stats, err := c.stats(ts)
	if err != nil {
		return 0, err
	}
	return stats.TotalTokens, nil
}

// RemoveAddToken performs one grow-or-swap mutation toward a budget of
// n tokens. While ts has fewer than n tokens, it tries to add one (by
// BPE merge or byte promotion, whichever scores better). Once ts has
// exactly n tokens, it tries two swap strategies in order, committing
// the first one that strictly reduces the total token count:
//
//  1. Shrink the single-byte/Ext budget by one slot (freeing a token
//     for a long Str token) and try a BPE add into the freed slot,
//     gated on ts still having more single-byte/Ext tokens than its
//     kind's floor.
//  2. Remove one existing long Str token and try to add a token back
//     (by BPE merge or byte promotion) into the freed slot, trying
//     every long Str token in least-recently-attempted order first
//     (removalCounts tracks how many times each token's byte string
//     has been tried across the whole optimization run, so the search
//     doesn't keep retrying the same unhelpful removal).
//
// It returns the candidate vocabulary and whether a change was made;
// ts itself is never mutated. removalCounts is mutated in place.
func RemoveAddToken(ts *token.TokenSet, cache *cacheScorer, n int, removalCounts map[string]int) (*token.TokenSet, bool, error) {
	if ts.NTokens() < n {
		candidate, ok := addToken(ts, cache)
		if !ok {
			return ts, false, nil
		}
		return candidate, true, nil
	}

	if ts.NTokens() > n {
		return ts, false, nil
	}

	baseline, err := cache.totalTokens(ts)
	if err != nil {
		return ts, false, err
	}

	stats, err := cache.stats(ts)
	if err != nil {
		return ts, false, err
	}

	if ts.NTokens()-ts.NLongTokens() > ts.MinBytesExtTokens() {
		shrunk := ForKind(ts.Kind).OptimizeBytes(stats, ts.NTokens()-ts.NLongTokens()-1)
		statsWithPairs, err := cache.statsWithPairs(shrunk)
		if err == nil && shrunk.NTokens() < ts.NTokens() {
			if cand, ok := addTokenBPE(shrunk, statsWithPairs); ok {
				trial := shrunk.Clone()
				trial.AddToken(cand)
				total, err := cache.totalTokens(trial)
				if err == nil && total < baseline {
					return trial, true, nil
				}
			}
		}
	}

	type removable struct {
		idx   int
		bytes string
	}
	var candidates []removable
	for i, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) > 1 {
			candidates = append(candidates, removable{idx: i, bytes: string(t.Bytes())})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return removalCounts[candidates[i].bytes] < removalCounts[candidates[j].bytes]
	})

	for _, cand := range candidates {
		removalCounts[cand.bytes]++

		trial := ts.Clone()
		trial.RemoveToken(cand.idx)

		added, ok := addToken(trial, cache)
		if !ok {
			continue
		}

		total, err := cache.totalTokens(added)
		if err != nil {
			continue
		}
		if total < baseline {
			return added, true, nil
		}
	}

	return ts, false, nil
}

// OptimizationStep runs one full pass of the optimizer: a byte-tail
// reshuffle (pkg/optimize's BytesOptimizer for ts.Kind) followed by
// one RemoveAddToken mutation toward the n-token budget. It returns
// the (possibly unchanged) vocabulary and whether either half of the
// pass produced an improvement. removalCounts threads the swap-attempt
// fairness counter through to RemoveAddToken.
func OptimizationStep(ts *token.TokenSet, cache *cacheScorer, n int, removalCounts map[string]int) (*token.TokenSet, bool, error) {
	changed := false

	stats, err := cache.stats(ts)
	if err != nil {
		return ts, false, err
	}
	reshuffled := ForKind(ts.Kind).OptimizeBytes(stats, n-ts.NLongTokens())
	reshuffledTotal, err := cache.totalTokens(reshuffled)
	if err != nil {
		return ts, false, err
	}
	if reshuffledTotal < stats.TotalTokens {
		ts = reshuffled
		changed = true
	}

	next, ok, err := RemoveAddToken(ts, cache, n, removalCounts)
	if err != nil {
		return ts, changed, err
	}
	if ok {
		ts = next
		changed = true
	}

	return ts, changed, nil
}

// PersistFunc is called periodically during OptimizeTokenSet with the
// best vocabulary found so far, so long-running optimization runs
// survive an interruption. Implementations typically write the
// vocabulary's JSON form (pkg/token) to disk.
type PersistFunc func(*token.TokenSet) error

// persistInterval is how often OptimizeTokenSet checkpoints progress.
const persistInterval = 60 * time.Second

// OptimizeTokenSet repeatedly applies OptimizationStep until a full
// pass makes no further improvement (Invariant 6: the total token
// count is non-increasing across steps, and the loop terminates
// because the token budget and byte alphabet are both finite). It
// checkpoints the current-best vocabulary via persist roughly every
// minute and logs progress at each step.
func OptimizeTokenSet(ts *token.TokenSet, cache *scan.TokenizerCache, n int, persist PersistFunc, logger *zap.SugaredLogger) (*token.TokenSet, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	scorer := newCacheScorer(cache)
	removalCounts := make(map[string]int)

	lastPersist := time.Now()
	step := 0
	for {
		next, changed, err := OptimizationStep(ts, scorer, n, removalCounts)
		if err != nil {
			return ts, err
		}
		step++
		if !changed {
			logger.Infow("optimize: converged", "steps", step, "ntokens", ts.NTokens())
			break
		}
		ts = next

		total, err := scorer.totalTokens(ts)
		if err != nil {
			return ts, err
		}
		logger.Debugw("optimize: step improved vocabulary", "step", step, "ntokens", ts.NTokens(), "total_tokens", total)

		if persist != nil && time.Since(lastPersist) >= persistInterval {
			if err := persist(ts); err != nil {
				logger.Warnw("optimize: checkpoint failed", "error", err)
			} else {
				logger.Infow("optimize: checkpointed", "step", step)
			}
			lastPersist = time.Now()
		}
	}

	if persist != nil {
		if err := persist(ts); err != nil {
			logger.Warnw("optimize: final persist failed", "error", err)
		}
	}
	return ts, nil
}
