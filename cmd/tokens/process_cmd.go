package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eterevsky/tokens-go/pkg/textproc"
)

type processOptions struct {
	input  string
	output string
}

func newProcessCmd() *cobra.Command {
	opts := &processOptions{}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run the CapsWords text pre-processor on a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootFlags.configPath)
			if err != nil {
				return err
			}
			overlayString(cmd, "input", &opts.input, cfg.Process.Input)
			overlayString(cmd, "output", &opts.output, cfg.Process.Output)

			return runProcess(opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "input text file (required)")
	cmd.Flags().StringVar(&opts.output, "output", "", "output file; defaults to stdout if empty")

	cmd.MarkFlagRequired("input")
	return cmd
}

func runProcess(opts *processOptions) error {
	in, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("tokens: reading %q: %w", opts.input, err)
	}
	defer in.Close()

	out := os.Stdout
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("tokens: creating %q: %w", opts.output, err)
		}
		defer f.Close()
		out = f
	}

	if err := textproc.ProcessFile(in, out); err != nil {
		return fmt.Errorf("tokens: process: %w", err)
	}
	logger.Infow("process: finished", "input", opts.input, "output", opts.output)
	return nil
}
