package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eterevsky/tokens-go/pkg/legacyvocab"
	"github.com/eterevsky/tokens-go/pkg/token"
)

type convertTokensOptions struct {
	input  string
	output string
	to     string
	kind   string
}

func newConvertTokensCmd() *cobra.Command {
	opts := &convertTokensOptions{}

	cmd := &cobra.Command{
		Use:   "convert-tokens",
		Short: "Convert between TokenSet JSON and the legacy tiktoken rank-table format",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootFlags.configPath)
			if err != nil {
				return err
			}
			overlayString(cmd, "input", &opts.input, cfg.ConvertTokens.Input)
			overlayString(cmd, "output", &opts.output, cfg.ConvertTokens.Output)
			overlayString(cmd, "to", &opts.to, cfg.ConvertTokens.To)
			overlayString(cmd, "kind", &opts.kind, cfg.ConvertTokens.Kind)

			return runConvertTokens(opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "input file (required)")
	cmd.Flags().StringVar(&opts.output, "output", "", "output file (required)")
	cmd.Flags().StringVar(&opts.to, "to", "", "target format: tiktoken (from TokenSet JSON) or tokenset (from tiktoken)")
	cmd.Flags().StringVar(&opts.kind, "kind", "bytes", "vocabulary kind to build when --to tokenset (bits1, bits2, bits4, bytes)")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("to")
	return cmd
}

func runConvertTokens(opts *convertTokensOptions) error {
	log := logger.With("command", "convert-tokens")

	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("tokens: reading %q: %w", opts.input, err)
	}

	switch opts.to {
	case "tiktoken":
		ts, err := token.FromJSON(data)
		if err != nil {
			return fmt.Errorf("tokens: parsing %q: %w", opts.input, err)
		}
		ranks := legacyvocab.Export(ts)

		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("tokens: creating %q: %w", opts.output, err)
		}
		defer f.Close()
		if err := legacyvocab.WriteTiktoken(f, ranks); err != nil {
			return fmt.Errorf("tokens: writing tiktoken format: %w", err)
		}
		log.Infow("convert-tokens: wrote tiktoken rank table", "tokens", len(ranks), "output", opts.output)

	case "tokenset":
		kind, err := token.ParseKind(opts.kind)
		if err != nil {
			return err
		}
		ranks, err := legacyvocab.ReadTiktoken(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("tokens: parsing %q: %w", opts.input, err)
		}
		ts, err := legacyvocab.Import(ranks, kind, token.Raw, false)
		if err != nil {
			return fmt.Errorf("tokens: building TokenSet: %w", err)
		}
		out, err := ts.ToJSON()
		if err != nil {
			return fmt.Errorf("tokens: serializing TokenSet: %w", err)
		}
		if err := os.WriteFile(opts.output, out, 0644); err != nil {
			return fmt.Errorf("tokens: writing %q: %w", opts.output, err)
		}
		log.Infow("convert-tokens: wrote TokenSet JSON", "tokens", ts.NTokens(), "output", opts.output)

	default:
		return fmt.Errorf("tokens: unknown --to %q (want tiktoken or tokenset)", opts.to)
	}

	return nil
}
