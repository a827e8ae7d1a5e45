package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformed wraps every reason a persisted vocabulary is rejected:
// unknown "type", out-of-range token indices, or a byte left
// uncovered by any Str token or Sequence.
var ErrMalformed = errors.New("token: malformed vocabulary")

// ToMap renders the TokenSet into the plain-value form specified by
// the vocabulary JSON schema (§6), as a map ready for json.Marshal or
// for a caller (pkg/tokstats's TokenStats) to merge a "stats" key into
// before marshaling.
func (ts *TokenSet) ToMap() map[string]any {
	tokens := make([]any, len(ts.Tokens))
	for i, t := range ts.Tokens {
		tokens[i] = encodeToken(t)
	}

	m := map[string]any{
		"type":             ts.Kind.String(),
		"processing":       ts.Processing.String(),
		"split_paragraphs": ts.SplitParagraphs,
		"tokens":           tokens,
	}

	var seqs []any
	for _, s := range ts.Sequences {
		if len(s.Tokens) <= 1 {
			// Single-token sequences are never persisted, mirroring the
			// original's to_json filter. On load, missing Bits*
			// sequences are rebuilt from the kind's fixed decomposition;
			// a Bytes or BytesHuff byte left uncovered is rejected.
			continue
		}
		toks := make([]any, len(s.Tokens))
		for i, ti := range s.Tokens {
			toks[i] = encodeToken(ts.Tokens[ti])
		}
		seqs = append(seqs, map[string]any{
			"string": encodeBytes(s.Bytes),
			"tokens": toks,
		})
	}
	if seqs != nil {
		m["sequences"] = seqs
	}
	return m
}

// ToJSON marshals the TokenSet into its persisted JSON form.
func (ts *TokenSet) ToJSON() ([]byte, error) {
	return json.Marshal(ts.ToMap())
}

func encodeToken(t Token) any {
	if t.IsExt() {
		return t.ExtIdx()
	}
	return encodeBytes(t.Bytes())
}

func encodeBytes(b []byte) any {
	if utf8.Valid(b) {
		return string(b)
	}
	ints := make([]any, len(b))
	for i, c := range b {
		ints[i] = int(c)
	}
	return ints
}

// FromJSON parses the persisted vocabulary JSON form, accepting both
// canonical type names (bits1, bits2, bits4, bytes, byteshuff) and the
// legacy names (fallback_bits + fallback_bits: 1|2|4, all_tokens), and
// both the authoritative "split_paragraphs" field and the legacy
// singular "split_paragraph" alias.
func FromJSON(data []byte) (*TokenSet, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kind, err := parseKind(raw)
	if err != nil {
		return nil, err
	}

	processing := Raw
	if pr, ok := raw["processing"]; ok {
		var s string
		if err := json.Unmarshal(pr, &s); err != nil {
			return nil, fmt.Errorf("%w: processing: %v", ErrMalformed, err)
		}
		switch s {
		case "raw":
			processing = Raw
		case "capswords":
			processing = CapsWords
		default:
			return nil, fmt.Errorf("%w: unknown processing %q", ErrMalformed, s)
		}
	}

	splitParagraphs := false
	if sp, ok := raw["split_paragraphs"]; ok {
		if err := json.Unmarshal(sp, &splitParagraphs); err != nil {
			return nil, fmt.Errorf("%w: split_paragraphs: %v", ErrMalformed, err)
		}
	} else if sp, ok := raw["split_paragraph"]; ok {
		if err := json.Unmarshal(sp, &splitParagraphs); err != nil {
			return nil, fmt.Errorf("%w: split_paragraph: %v", ErrMalformed, err)
		}
	}

	var rawTokens []json.RawMessage
	if tr, ok := raw["tokens"]; ok {
		if err := json.Unmarshal(tr, &rawTokens); err != nil {
			return nil, fmt.Errorf("%w: tokens: %v", ErrMalformed, err)
		}
	}

	tokens := make([]Token, len(rawTokens))
	for i, rt := range rawTokens {
		tok, err := decodeToken(rt)
		if err != nil {
			return nil, fmt.Errorf("%w: tokens[%d]: %v", ErrMalformed, i, err)
		}
		tokens[i] = tok
	}

	nExt := 0
	for _, t := range tokens {
		if t.IsExt() {
			nExt++
		}
	}

	ts := &TokenSet{
		NExtTokens:      nExt,
		Kind:            kind,
		Processing:      processing,
		SplitParagraphs: splitParagraphs,
		Tokens:          tokens,
	}

	if sr, ok := raw["sequences"]; ok {
		var rawSeqs []struct {
			String json.RawMessage   `json:"string"`
			Tokens []json.RawMessage `json:"tokens"`
		}
		if err := json.Unmarshal(sr, &rawSeqs); err != nil {
			return nil, fmt.Errorf("%w: sequences: %v", ErrMalformed, err)
		}
		for _, rs := range rawSeqs {
			bs, err := decodeBytes(rs.String)
			if err != nil {
				return nil, fmt.Errorf("%w: sequences[].string: %v", ErrMalformed, err)
			}
			idxs := make([]int, len(rs.Tokens))
			for i, rt := range rs.Tokens {
				idx, err := decodeTokenIndex(rt, ts)
				if err != nil {
					return nil, fmt.Errorf("%w: sequences[].tokens[%d]: %v", ErrMalformed, i, err)
				}
				idxs[i] = idx
			}
			ts.Sequences = append(ts.Sequences, Sequence{Bytes: bs, Tokens: idxs})
		}
	}

	if err := reconstructImplicitSequences(ts); err != nil {
		return nil, err
	}

	if err := validateCoverage(ts); err != nil {
		return nil, err
	}

	return ts, nil
}

func parseKind(raw map[string]json.RawMessage) (Kind, error) {
	tr, ok := raw["type"]
	if !ok {
		return 0, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	var typeName string
	if err := json.Unmarshal(tr, &typeName); err != nil {
		return 0, fmt.Errorf("%w: type: %v", ErrMalformed, err)
	}

	switch typeName {
	case "bits1":
		return Bits1, nil
	case "bits2":
		return Bits2, nil
	case "bits4":
		return Bits4, nil
	case "bytes":
		return Bytes, nil
	case "byteshuff":
		return BytesHuff, nil
	case "all_tokens":
		return Bytes, nil
	case "fallback_bits":
		fb, ok := raw["fallback_bits"]
		if !ok {
			return 0, fmt.Errorf("%w: fallback_bits type missing fallback_bits value", ErrMalformed)
		}
		var n int
		if err := json.Unmarshal(fb, &n); err != nil {
			return 0, fmt.Errorf("%w: fallback_bits: %v", ErrMalformed, err)
		}
		switch n {
		case 1:
			return Bits1, nil
		case 2:
			return Bits2, nil
		case 4:
			return Bits4, nil
		default:
			return 0, fmt.Errorf("%w: unsupported fallback_bits %d", ErrMalformed, n)
		}
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrMalformed, typeName)
	}
}

func decodeToken(raw json.RawMessage) (Token, error) {
	var asNum int
	if err := json.Unmarshal(raw, &asNum); err == nil {
		return Ext(asNum), nil
	}
	b, err := decodeBytes(raw)
	if err != nil {
		return Token{}, err
	}
	return Str(b), nil
}

func decodeBytes(raw json.RawMessage) ([]byte, error) {
	var asStr string
	if err := json.Unmarshal(raw, &asStr); err == nil {
		return []byte(asStr), nil
	}
	var asInts []int
	if err := json.Unmarshal(raw, &asInts); err == nil {
		b := make([]byte, len(asInts))
		for i, v := range asInts {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("byte value out of range: %d", v)
			}
			b[i] = byte(v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("token: cannot decode byte string from %s", raw)
}

func decodeTokenIndex(raw json.RawMessage, ts *TokenSet) (int, error) {
	tok, err := decodeToken(raw)
	if err != nil {
		return 0, err
	}
	if tok.IsExt() {
		for i, t := range ts.Tokens {
			if t.IsExt() && t.ExtIdx() == tok.ExtIdx() {
				return i, nil
			}
		}
		return 0, fmt.Errorf("no Ext(%d) token in vocabulary", tok.ExtIdx())
	}
	idx, ok := ts.FindToken(tok.Bytes())
	if !ok {
		return 0, fmt.Errorf("no Str token %q in vocabulary", tok.Bytes())
	}
	return idx, nil
}

// reconstructImplicitSequences rebuilds the single-token Sequences
// that ToMap omits: every byte not covered by a Str token and not
// already given an explicit (multi-token) Sequence falls back to the
// kind's fixed decomposition (Bits1/Bits2/Bits4), or, for Bytes and
// BytesHuff, must already be fully covered.
func reconstructImplicitSequences(ts *TokenSet) error {
	covered := make([]bool, 256)
	for _, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) == 1 {
			covered[t.Bytes()[0]] = true
		}
	}
	for _, s := range ts.Sequences {
		if len(s.Bytes) == 1 {
			covered[s.Bytes[0]] = true
		}
	}

	switch ts.Kind {
	case Bits1, Bits2, Bits4:
		seed := fixedDecompositionSeed(ts.Kind)
		for b := 0; b < 256; b++ {
			if covered[b] {
				continue
			}
			toks, err := seed.fallback(ts, byte(b))
			if err != nil {
				return err
			}
			ts.Sequences = append(ts.Sequences, Sequence{Bytes: []byte{byte(b)}, Tokens: toks})
		}
	default:
		for b := 0; b < 256; b++ {
			if !covered[b] {
				return fmt.Errorf("%w: byte %d not covered by any token or sequence", ErrMalformed, b)
			}
		}
	}
	return nil
}

type decompositionSeed int

const (
	seedBits1 decompositionSeed = iota
	seedBits2
	seedBits4
)

func fixedDecompositionSeed(k Kind) decompositionSeed {
	switch k {
	case Bits1:
		return seedBits1
	case Bits2:
		return seedBits2
	default:
		return seedBits4
	}
}

// fallback computes the digit sequence for byte b under the kind's
// fixed decomposition, mapped through the vocabulary's actual Ext(k)
// token indices (which need not equal k after a Sort()).
func (d decompositionSeed) fallback(ts *TokenSet, b byte) ([]int, error) {
	extIdx := make(map[int]int)
	for i, t := range ts.Tokens {
		if t.IsExt() {
			extIdx[t.ExtIdx()] = i
		}
	}
	lookup := func(k int) (int, error) {
		idx, ok := extIdx[k]
		if !ok {
			return 0, fmt.Errorf("%w: missing Ext(%d) token for fixed decomposition", ErrMalformed, k)
		}
		return idx, nil
	}

	switch d {
	case seedBits1:
		toks := make([]int, 8)
		for i := 0; i < 8; i++ {
			bit := (int(b) >> (7 - i)) & 1
			idx, err := lookup(bit)
			if err != nil {
				return nil, err
			}
			toks[i] = idx
		}
		return toks, nil
	case seedBits2:
		toks := make([]int, 4)
		for i := 0; i < 4; i++ {
			digit := (int(b) >> (6 - 2*i)) & 0x3
			idx, err := lookup(digit)
			if err != nil {
				return nil, err
			}
			toks[i] = idx
		}
		return toks, nil
	default:
		hi := (int(b) >> 4) & 0xF
		lo := int(b) & 0xF
		hiIdx, err := lookup(hi)
		if err != nil {
			return nil, err
		}
		loIdx, err := lookup(lo)
		if err != nil {
			return nil, err
		}
		return []int{hiIdx, loIdx}, nil
	}
}

// validateCoverage checks Invariant 2: every byte is encodable.
func validateCoverage(ts *TokenSet) error {
	covered := make([]bool, 256)
	for _, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) == 1 {
			covered[t.Bytes()[0]] = true
		}
	}
	for _, s := range ts.Sequences {
		if len(s.Bytes) == 1 {
			covered[s.Bytes[0]] = true
		}
	}
	for b := 0; b < 256; b++ {
		if !covered[b] {
			return fmt.Errorf("%w: byte %d has no Str token nor Sequence", ErrMalformed, b)
		}
	}
	return nil
}
