package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eterevsky/tokens-go/pkg/detect"
	"github.com/eterevsky/tokens-go/pkg/legacyvocab"
	"github.com/eterevsky/tokens-go/pkg/optimize"
	"github.com/eterevsky/tokens-go/pkg/sampler"
	"github.com/eterevsky/tokens-go/pkg/scan"
	"github.com/eterevsky/tokens-go/pkg/token"
)

type optimizeOptions struct {
	input           string
	outputDir       string
	ntokens         int
	kind            string
	processing      string
	pretrained      string
	minDataSize     int64
	splitParagraphs string
	samplerKind     string
	chunkSize       int
}

func newOptimizeCmd() *cobra.Command {
	opts := &optimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Train a byte-level BPE vocabulary from a corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootFlags.configPath)
			if err != nil {
				return err
			}
			overlayString(cmd, "input", &opts.input, cfg.Optimize.Input)
			overlayString(cmd, "output-dir", &opts.outputDir, cfg.Optimize.OutputDir)
			overlayInt(cmd, "ntokens", &opts.ntokens, cfg.Optimize.NTokens)
			overlayString(cmd, "kind", &opts.kind, cfg.Optimize.Kind)
			overlayString(cmd, "processing", &opts.processing, cfg.Optimize.Processing)
			overlayString(cmd, "pretrained", &opts.pretrained, cfg.Optimize.Pretrained)
			overlayInt64(cmd, "min-data-size", &opts.minDataSize, cfg.Optimize.MinDataSize)
			overlayString(cmd, "split-paragraphs", &opts.splitParagraphs, cfg.Optimize.SplitParas)
			overlayString(cmd, "sampler", &opts.samplerKind, cfg.Optimize.SamplerKind)
			overlayInt(cmd, "chunk-size", &opts.chunkSize, cfg.Optimize.ChunkSize)

			return runOptimize(opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "path to the training corpus (required)")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", ".", "directory periodic checkpoints and the final vocabulary are written to")
	cmd.Flags().IntVar(&opts.ntokens, "ntokens", 4096, "target vocabulary size")
	cmd.Flags().StringVar(&opts.kind, "kind", "bits4", "vocabulary kind: bits1, bits2, bits4, bytes, byteshuff")
	cmd.Flags().StringVar(&opts.processing, "processing", "auto", "text pre-processing: raw, capswords, or auto (detected from the corpus)")
	cmd.Flags().StringVar(&opts.pretrained, "pretrained", "", "seed vocabulary: a TokenSet JSON file path, or built-in:<text|go|python|js>")
	cmd.Flags().Int64Var(&opts.minDataSize, "min-data-size", 0, "if set, scan only this many bytes of the corpus for early steps before progressively enlarging to the full corpus")
	cmd.Flags().StringVar(&opts.splitParagraphs, "split-paragraphs", "auto", "split samples on paragraph boundaries: true, false, or auto")
	cmd.Flags().StringVar(&opts.samplerKind, "sampler", "memory", "corpus access pattern: memory (load whole file), file (sequential disk reads), preloaded (evenly spaced chunks)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 64*1024, "sample chunk size in bytes for all samplers")

	cmd.MarkFlagRequired("input")
	return cmd
}

func runOptimize(opts *optimizeOptions) error {
	runID := uuid.New().String()
	log := logger.With("run_id", runID, "command", "optimize")

	kind, err := token.ParseKind(opts.kind)
	if err != nil {
		return err
	}

	head, err := readHead(opts.input, 8192)
	if err != nil {
		return fmt.Errorf("tokens: reading %q: %w", opts.input, err)
	}

	processing, autoSplit, err := resolveProcessing(opts.processing, head)
	if err != nil {
		return err
	}
	splitParagraphs, err := resolveSplitParagraphs(opts.splitParagraphs, autoSplit)
	if err != nil {
		return err
	}

	newSampler, closeSampler, totalSize, err := makeSamplerFactory(opts)
	if err != nil {
		return err
	}
	defer closeSampler()

	var initialSize *uint64
	if opts.minDataSize > 0 {
		n := uint64(opts.minDataSize)
		initialSize = &n
	} else {
		initialSize = &totalSize
	}

	cache := scan.NewCache(newSampler, initialSize, log)

	ts, err := seedTokenSet(opts.pretrained, kind, processing, splitParagraphs, opts.ntokens, cache)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("tokens: creating %q: %w", opts.outputDir, err)
	}

	persist := func(candidate *token.TokenSet) error {
		return saveVocabulary(opts.outputDir, candidate)
	}

	log.Infow("optimize: starting",
		"input", opts.input,
		"ntokens", opts.ntokens,
		"kind", kind.String(),
		"processing", processing.String(),
		"corpus_size", humanize.Bytes(totalSize),
	)

	start := time.Now()
	final, err := optimize.OptimizeTokenSet(ts, cache, opts.ntokens, persist, log)
	if err != nil {
		return fmt.Errorf("tokens: optimize: %w", err)
	}

	stats, err := cache.GetStats(final)
	if err != nil {
		return fmt.Errorf("tokens: final scoring: %w", err)
	}

	log.Infow("optimize: finished",
		"elapsed", time.Since(start).Round(time.Second).String(),
		"ntokens", final.NTokens(),
		"total_tokens", stats.TotalTokens,
		"bytes_per_token", fmt.Sprintf("%.3f", stats.BytesPerToken()),
	)

	return saveVocabulary(opts.outputDir, final)
}

// resolveProcessing maps "auto" onto pkg/detect's suggestion for head,
// returning the paragraph-splitting default that suggestion implies.
func resolveProcessing(spec string, head []byte) (token.Processing, bool, error) {
	if spec == "auto" || spec == "" {
		processing, splitParagraphs := detect.SuggestProcessing(head)
		return processing, splitParagraphs, nil
	}
	processing, err := token.ParseProcessing(spec)
	return processing, false, err
}

func resolveSplitParagraphs(spec string, autoValue bool) (bool, error) {
	switch spec {
	case "auto", "":
		return autoValue, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("tokens: --split-paragraphs must be true, false, or auto, got %q", spec)
	}
}

func seedTokenSet(pretrained string, kind token.Kind, processing token.Processing, splitParagraphs bool, ntokens int, cache *scan.TokenizerCache) (*token.TokenSet, error) {
	switch {
	case pretrained == "":
		return freshTokenSet(kind, processing, splitParagraphs, ntokens, cache)
	case len(pretrained) > len("built-in:") && pretrained[:len("built-in:")] == "built-in:":
		name := pretrained[len("built-in:"):]
		ranks, err := legacyvocab.Seed(name)
		if err != nil {
			return nil, err
		}
		return legacyvocab.Import(ranks, kind, processing, splitParagraphs)
	default:
		data, err := os.ReadFile(pretrained)
		if err != nil {
			return nil, fmt.Errorf("tokens: reading --pretrained %q: %w", pretrained, err)
		}
		return token.FromJSON(data)
	}
}

func freshTokenSet(kind token.Kind, processing token.Processing, splitParagraphs bool, ntokens int, cache *scan.TokenizerCache) (*token.TokenSet, error) {
	switch kind {
	case token.Bits1:
		return token.NewBits1(processing, splitParagraphs), nil
	case token.Bits2:
		return token.NewBits2(processing, splitParagraphs), nil
	case token.Bits4:
		return token.NewBits4(processing, splitParagraphs), nil
	case token.Bytes:
		return token.NewBytes(processing, splitParagraphs), nil
	default:
		// BytesHuff has no fixed fallback shape: seed from a fully
		// covered Bytes vocabulary (every byte its own Str token),
		// scan it once for raw byte frequencies, then let the Huffman
		// byte optimizer build the actual Ext-coded tree from those
		// frequencies against the full ntokens budget.
		seed := token.NewBytes(processing, splitParagraphs)
		stats, err := cache.GetStats(seed)
		if err != nil {
			return nil, fmt.Errorf("tokens: seeding BytesHuff vocabulary: %w", err)
		}
		return optimize.ForKind(token.BytesHuff).OptimizeBytes(stats, ntokens), nil
	}
}

// emptySampler satisfies scan.Sampler with no data; used as a safe
// fallback when a sampler factory fails to (re)open its corpus source
// after the initial path validation already succeeded.
type emptySampler struct{}

func (emptySampler) Next() (scan.Sample, bool) { return scan.Sample{}, false }
func (emptySampler) TotalSize() uint64         { return 0 }

func makeSamplerFactory(opts *optimizeOptions) (scan.SamplerFactory, func(), uint64, error) {
	info, err := os.Stat(opts.input)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("tokens: %w", err)
	}
	totalSize := uint64(info.Size())

	switch opts.samplerKind {
	case "memory", "":
		data, err := os.ReadFile(opts.input)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("tokens: %w", err)
		}
		factory := func() scan.Sampler {
			return sampler.NewMemorySampler(data, opts.chunkSize)
		}
		return factory, func() {}, totalSize, nil

	case "file":
		factory := func() scan.Sampler {
			s, err := sampler.NewFileSampler(opts.input, opts.chunkSize, nil)
			if err != nil {
				logger.Errorw("optimize: opening file sampler", "error", err)
				return emptySampler{}
			}
			return s
		}
		return factory, func() {}, totalSize, nil

	case "preloaded":
		nsamples := 64
		factory := func() scan.Sampler {
			s, err := sampler.NewPreloadedSampler(opts.input, opts.chunkSize, nsamples)
			if err != nil {
				logger.Errorw("optimize: opening preloaded sampler", "error", err)
				return emptySampler{}
			}
			return s
		}
		return factory, func() {}, totalSize, nil

	default:
		return nil, nil, 0, fmt.Errorf("tokens: unknown --sampler %q (want memory, file, or preloaded)", opts.samplerKind)
	}
}

func saveVocabulary(dir string, ts *token.TokenSet) error {
	data, err := ts.ToJSON()
	if err != nil {
		return fmt.Errorf("tokens: serializing vocabulary: %w", err)
	}
	path := filepath.Join(dir, ts.Name()+".json")
	tmp := path + ".tmp-" + uuid.New().String()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("tokens: writing %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("tokens: renaming %q to %q: %w", tmp, path, err)
	}
	return nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:read], nil
}
