// Package textproc implements the CapsWords text pre-processor: an
// optional pass, selected by a vocabulary's token.Processing field,
// that folds word capitalization into marker bytes so a byte-level
// vocabulary can spend Str tokens on lowercase word stems instead of
// duplicating them in every capitalization variant.
package textproc

import (
	"bufio"
	"io"
	"strings"
	"unicode"
)

// Marker bytes inserted by Process. They are ASCII control codes, so
// they are themselves valid UTF-8; Process does not escape them where
// they already occur in its input.
const (
	CapitalizedMarker = '\x14' // word starts uppercase, rest lowercase
	AllUpperMarker     = '\x15' // every letter in the word is uppercase
	WordEndMarker      = '\x16' // marks the end of every word
)

type charType int

const (
	charLetter charType = iota
	charSpace
	charOther
)

func getCharType(r rune) charType {
	switch {
	case unicode.IsLetter(r):
		return charLetter
	case r == ' ':
		return charSpace
	default:
		return charOther
	}
}

// addWord appends word to out, preceded by a capitalization marker if
// applicable, and followed by WordEndMarker.
func addWord(out *strings.Builder, word []rune) {
	if len(word) == 0 {
		return
	}
	first := word[0]
	rest := word[1:]

	switch {
	case unicode.IsUpper(first) && allLower(rest):
		out.WriteByte(CapitalizedMarker)
		out.WriteRune(unicode.ToLower(first))
		for _, r := range rest {
			out.WriteRune(r)
		}
	case unicode.IsUpper(first) && allUpper(rest):
		out.WriteByte(AllUpperMarker)
		out.WriteRune(unicode.ToLower(first))
		for _, r := range rest {
			out.WriteRune(unicode.ToLower(r))
		}
	default:
		out.WriteRune(first)
		for _, r := range rest {
			out.WriteRune(r)
		}
	}
	out.WriteByte(WordEndMarker)
}

func allLower(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func allUpper(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

type state int

const (
	stateNonWord state = iota
	stateWord
	stateSpaceAfterWord
)

// Process applies the CapsWords transform to a single line of text:
//
//  1. Every word (a run of letters) is followed by WordEndMarker.
//  2. A single space directly between two words is dropped: the
//     sequence <letter> WordEndMarker <space> <letter> loses the space.
//  3. A word starting with an uppercase letter and otherwise all
//     lowercase is replaced by CapitalizedMarker followed by its
//     lowercase form.
//  4. An all-uppercase word is replaced by AllUpperMarker followed by
//     its lowercase form.
func Process(text string) string {
	var out strings.Builder
	out.Grow(2 * len(text))

	st := stateNonWord
	var word []rune

	for _, r := range text {
		ct := getCharType(r)
		switch st {
		case stateNonWord:
			if ct == charLetter {
				word = append(word, r)
				st = stateWord
			} else {
				out.WriteRune(r)
			}
		case stateWord:
			switch ct {
			case charLetter:
				word = append(word, r)
			case charSpace:
				addWord(&out, word)
				word = word[:0]
				st = stateSpaceAfterWord
			case charOther:
				addWord(&out, word)
				word = word[:0]
				out.WriteRune(r)
				st = stateNonWord
			}
		case stateSpaceAfterWord:
			switch ct {
			case charLetter:
				// The single space between the two words is dropped.
				word = append(word, r)
				st = stateWord
			default:
				out.WriteByte(' ')
				out.WriteRune(r)
				st = stateNonWord
			}
		}
	}

	switch st {
	case stateWord:
		addWord(&out, word)
	case stateSpaceAfterWord:
		out.WriteByte(' ')
	}

	return out.String()
}

// ProcessFile reads r line by line, applies Process to each line, and
// writes the result to w with a trailing newline per line.
func ProcessFile(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	bw := bufio.NewWriter(w)

	for scanner.Scan() {
		processed := Process(scanner.Text())
		if _, err := bw.WriteString(processed); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return bw.Flush()
}
