package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eterevsky/tokens-go/pkg/pack"
	"github.com/eterevsky/tokens-go/pkg/token"
)

type packOptions struct {
	input  string
	vocab  string
	output string
}

func newPackCmd() *cobra.Command {
	opts := &packOptions{}

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Segment a corpus with a trained vocabulary and range-code the resulting token-ID stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootFlags.configPath)
			if err != nil {
				return err
			}
			overlayString(cmd, "input", &opts.input, cfg.Pack.Input)
			overlayString(cmd, "vocab", &opts.vocab, cfg.Pack.Vocab)
			overlayString(cmd, "output", &opts.output, cfg.Pack.Output)

			return runPack(opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "corpus file to pack (required)")
	cmd.Flags().StringVar(&opts.vocab, "vocab", "", "trained TokenSet JSON file (required)")
	cmd.Flags().StringVar(&opts.output, "output", "", "packed output file (required)")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("vocab")
	cmd.MarkFlagRequired("output")
	return cmd
}

func runPack(opts *packOptions) error {
	log := logger.With("command", "pack")

	corpus, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("tokens: reading %q: %w", opts.input, err)
	}

	vocabData, err := os.ReadFile(opts.vocab)
	if err != nil {
		return fmt.Errorf("tokens: reading --vocab %q: %w", opts.vocab, err)
	}
	ts, err := token.FromJSON(vocabData)
	if err != nil {
		return fmt.Errorf("tokens: parsing --vocab %q: %w", opts.vocab, err)
	}

	packed, err := pack.Encode(ts, corpus)
	if err != nil {
		return fmt.Errorf("tokens: pack: %w", err)
	}

	if err := os.WriteFile(opts.output, packed, 0644); err != nil {
		return fmt.Errorf("tokens: writing %q: %w", opts.output, err)
	}

	log.Infow("pack: finished",
		"input_bytes", humanize.Bytes(uint64(len(corpus))),
		"packed_bytes", humanize.Bytes(uint64(len(packed))),
		"vocabulary", ts.Name(),
	)
	return nil
}
