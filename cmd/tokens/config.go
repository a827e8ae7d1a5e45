package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the YAML shape --config accepts: one section per
// subcommand, every field optional. A present field supplies the
// default for the flag of the same name; an explicitly passed flag
// always overrides it.
type Config struct {
	Optimize struct {
		Input        string `yaml:"input"`
		OutputDir    string `yaml:"output-dir"`
		NTokens      int    `yaml:"ntokens"`
		Kind         string `yaml:"kind"`
		Processing   string `yaml:"processing"`
		Pretrained   string `yaml:"pretrained"`
		MinDataSize  int64  `yaml:"min-data-size"`
		SplitParas   string `yaml:"split-paragraphs"`
		SamplerKind  string `yaml:"sampler"`
		ChunkSize    int    `yaml:"chunk-size"`
	} `yaml:"optimize"`

	ConvertTokens struct {
		Input  string `yaml:"input"`
		Output string `yaml:"output"`
		To     string `yaml:"to"`
		Kind   string `yaml:"kind"`
	} `yaml:"convert-tokens"`

	Process struct {
		Input  string `yaml:"input"`
		Output string `yaml:"output"`
	} `yaml:"process"`

	CountChars struct {
		Input string `yaml:"input"`
		Vocab string `yaml:"vocab"`
	} `yaml:"count-chars"`

	Pack struct {
		Input  string `yaml:"input"`
		Vocab  string `yaml:"vocab"`
		Output string `yaml:"output"`
	} `yaml:"pack"`
}

// loadConfig reads and parses the YAML file at path. An empty path is
// not an error: it simply means no config was requested.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokens: reading --config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("tokens: parsing --config %q: %w", path, err)
	}
	return &cfg, nil
}

// overlayString sets *dst to value when flag wasn't explicitly passed
// on the command line and value is non-empty.
func overlayString(cmd *cobra.Command, flag string, dst *string, value string) {
	if value != "" && !cmd.Flags().Changed(flag) {
		*dst = value
	}
}

func overlayInt(cmd *cobra.Command, flag string, dst *int, value int) {
	if value != 0 && !cmd.Flags().Changed(flag) {
		*dst = value
	}
}

func overlayInt64(cmd *cobra.Command, flag string, dst *int64, value int64) {
	if value != 0 && !cmd.Flags().Changed(flag) {
		*dst = value
	}
}
