package main

import (
	"fmt"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokenizer"
)

type countCharsOptions struct {
	input string
	vocab string
}

func newCountCharsCmd() *cobra.Command {
	opts := &countCharsOptions{}

	cmd := &cobra.Command{
		Use:   "count-chars",
		Short: "Report a byte and rune histogram over a sample, optionally alongside token counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootFlags.configPath)
			if err != nil {
				return err
			}
			overlayString(cmd, "input", &opts.input, cfg.CountChars.Input)
			overlayString(cmd, "vocab", &opts.vocab, cfg.CountChars.Vocab)

			return runCountChars(opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "input file (required)")
	cmd.Flags().StringVar(&opts.vocab, "vocab", "", "optional TokenSet JSON file; when given, also reports the token-ID histogram produced by segmenting the input")

	cmd.MarkFlagRequired("input")
	return cmd
}

func runCountChars(opts *countCharsOptions) error {
	data, err := os.ReadFile(opts.input)
	if err != nil {
		return fmt.Errorf("tokens: reading %q: %w", opts.input, err)
	}

	var byteFreq [256]uint64
	for _, b := range data {
		byteFreq[b]++
	}

	runeFreq := make(map[rune]uint64)
	for _, r := range string(data) {
		runeFreq[r]++
	}

	fmt.Printf("bytes: %d, distinct runes: %d, valid utf8: %v\n", len(data), len(runeFreq), utf8.Valid(data))

	type byteCount struct {
		b     int
		count uint64
	}
	topBytes := make([]byteCount, 0, 256)
	for b, c := range byteFreq {
		if c > 0 {
			topBytes = append(topBytes, byteCount{b, c})
		}
	}
	sort.Slice(topBytes, func(i, j int) bool { return topBytes[i].count > topBytes[j].count })
	fmt.Println("top bytes:")
	for i, bc := range topBytes {
		if i >= 10 {
			break
		}
		fmt.Printf("  0x%02x  %d\n", bc.b, bc.count)
	}

	type runeCount struct {
		r     rune
		count uint64
	}
	topRunes := make([]runeCount, 0, len(runeFreq))
	for r, c := range runeFreq {
		topRunes = append(topRunes, runeCount{r, c})
	}
	sort.Slice(topRunes, func(i, j int) bool { return topRunes[i].count > topRunes[j].count })
	fmt.Println("top runes:")
	for i, rc := range topRunes {
		if i >= 10 {
			break
		}
		fmt.Printf("  %q  %d\n", rc.r, rc.count)
	}

	if opts.vocab != "" {
		vocabData, err := os.ReadFile(opts.vocab)
		if err != nil {
			return fmt.Errorf("tokens: reading --vocab %q: %w", opts.vocab, err)
		}
		ts, err := token.FromJSON(vocabData)
		if err != nil {
			return fmt.Errorf("tokens: parsing --vocab %q: %w", opts.vocab, err)
		}

		ft := tokenizer.New(ts)
		ids := ft.Segment(data)

		tokenFreq := make(map[int]uint64)
		for _, id := range ids {
			tokenFreq[id]++
		}
		fmt.Printf("tokens: %d (vocabulary size %d, %.3f bytes/token)\n", len(ids), ts.NTokens(), float64(len(data))/float64(len(ids)))

		type tokenCount struct {
			id    int
			count uint64
		}
		topTokens := make([]tokenCount, 0, len(tokenFreq))
		for id, c := range tokenFreq {
			topTokens = append(topTokens, tokenCount{id, c})
		}
		sort.Slice(topTokens, func(i, j int) bool { return topTokens[i].count > topTokens[j].count })
		fmt.Println("top tokens:")
		for i, tc := range topTokens {
			if i >= 10 {
				break
			}
			t := ts.Tokens[tc.id]
			if t.IsExt() {
				fmt.Printf("  Ext(%d)  %d\n", t.ExtIdx(), tc.count)
			} else {
				fmt.Printf("  %q  %d\n", t.Bytes(), tc.count)
			}
		}
	}

	return nil
}
