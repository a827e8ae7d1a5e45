// Package scan drives the segmentation engine (pkg/tokenizer) across
// a sampled corpus: single-threaded below a size threshold, or with a
// bounded worker pool above it, and memoizes per-vocabulary results so
// the optimizer's many re-scorings are not redundant.
package scan

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eterevsky/tokens-go/pkg/tokenizer"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// parallelThreshold is the sampler.TotalSize() cutoff above which the
// scan fans out to a worker pool instead of running single-threaded.
const parallelThreshold = 32 << 20 // 32 MiB

// jobChannelCapacity bounds the producer's backpressure: at most this
// many samples may be in flight awaiting a worker.
const jobChannelCapacity = 4

// Sample is one chunk of corpus bytes handed to the engine.
type Sample struct {
	Data []byte
}

// Sampler is the contract a corpus source must satisfy: Next yields
// samples until exhausted (false), and TotalSize advises whether to
// run single- or multi-threaded. Implementations are in pkg/sampler;
// this package depends only on the interface, not on that package, to
// keep the engine/scanner free of any concrete I/O dependency.
type Sampler interface {
	Next() (Sample, bool)
	TotalSize() uint64
}

// Run scans sampler with ft, merging results into one TokenStats.
// initialSize, when non-nil, is recorded on the returned stats for a
// bytes-per-token report. logger receives structured progress events;
// pass zap.NewNop().Sugar() to silence them.
func Run(ft *tokenizer.FragmentTokenizer, sampler Sampler, initialSize *uint64, logger *zap.SugaredLogger) (*tokstats.TokenStats, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if sampler.TotalSize() < parallelThreshold {
		logger.Debugw("scan: single-threaded", "total_size", sampler.TotalSize())
		return runSequential(ft, sampler, initialSize)
	}

	nthreads := runtime.GOMAXPROCS(0)
	logger.Debugw("scan: parallel", "total_size", sampler.TotalSize(), "workers", nthreads)
	return runParallel(ft, sampler, initialSize, nthreads)
}

func runSequential(ft *tokenizer.FragmentTokenizer, sampler Sampler, initialSize *uint64) (*tokstats.TokenStats, error) {
	stats := tokstats.New(ft.TokenSet, initialSize)
	var scratch []tokenizer.CostState

	for {
		sample, ok := sampler.Next()
		if !ok {
			break
		}
		if len(sample.Data) == 0 {
			continue
		}
		ft.ProcessSlice(sample.Data, stats, &scratch)
	}
	return stats, nil
}

// runParallel implements §4.C/§5's worker protocol: a bounded job
// channel (capacity 4) carrying Samples, a producer goroutine that
// iterates the sampler and closes the channel on exhaustion, nthreads
// worker goroutines each owning a private TokenStats and pulling
// directly off the shared channel (safe for concurrent receive with
// no mutex needed), and a driver that waits for every goroutine before
// additively merging the partial results. A worker panic is recovered
// and surfaced as the errgroup's error, discarding all partial stats —
// matching §5's "partial stats are discarded" on failure.
func runParallel(ft *tokenizer.FragmentTokenizer, sampler Sampler, initialSize *uint64, nthreads int) (*tokstats.TokenStats, error) {
	jobs := make(chan Sample, jobChannelCapacity)
	results := make([]*tokstats.TokenStats, nthreads)

	g := new(errgroup.Group)

	for w := 0; w < nthreads; w++ {
		w := w
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("scan: worker %d panicked: %v", w, r)
				}
			}()

			stats := tokstats.New(ft.TokenSet, nil)
			var scratch []tokenizer.CostState
			for sample := range jobs {
				if len(sample.Data) == 0 {
					continue
				}
				ft.ProcessSlice(sample.Data, stats, &scratch)
			}
			results[w] = stats
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for {
			sample, ok := sampler.Next()
			if !ok {
				return nil
			}
			jobs <- sample
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := tokstats.New(ft.TokenSet, initialSize)
	for _, r := range results {
		merged.Merge(r)
	}
	return merged, nil
}
