package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is wired up once in the root command's PersistentPreRunE and
// shared by every subcommand's Run. It defaults to a no-op logger
// (matching every library package's own default) until that hook runs.
var logger = zap.NewNop().Sugar()

var rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tokens",
		Short: "Train and manipulate byte-level BPE vocabularies",
		Long: `tokens trains byte-level BPE vocabularies from a text corpus by
optimal segmentation search, and provides a few small utilities around
that core: converting to/from the legacy tiktoken rank-table format,
running the CapsWords text pre-processor standalone, reporting a
byte/rune histogram, and range-coding a corpus against a trained
vocabulary.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLogLevel(rootFlags.logLevel)
			if err != nil {
				return err
			}
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(level)
			cfg.Encoding = "console"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
			z, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("tokens: building logger: %w", err)
			}
			logger = z.Sugar()
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "YAML file providing defaults for any flag below (explicit flags always win)")
	root.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newOptimizeCmd())
	root.AddCommand(newConvertTokensCmd())
	root.AddCommand(newProcessCmd())
	root.AddCommand(newCountCharsCmd())
	root.AddCommand(newPackCmd())

	return root
}

func parseLogLevel(s string) (zapcore.Level, error) {
	switch s {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("tokens: unknown --log-level %q (want debug, info, warn, or error)", s)
	}
}
