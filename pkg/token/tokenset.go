package token

import "fmt"

// TokenSet is the vocabulary: an ordered list of tokens plus the
// fallback sequences that cover bytes without a dedicated Str token.
type TokenSet struct {
	NExtTokens      int
	Kind            Kind
	Processing      Processing
	SplitParagraphs bool
	Tokens          []Token
	Sequences       []Sequence
}

// New constructs an empty TokenSet seeded with nExtTokens Ext slots
// and no Str tokens or sequences. Used directly by BytesHuff, whose
// sequences are built afterwards by the Huffman byte optimizer.
func New(nExtTokens int, processing Processing, kind Kind, splitParagraphs bool) *TokenSet {
	ts := &TokenSet{
		NExtTokens:      nExtTokens,
		Kind:            kind,
		Processing:      processing,
		SplitParagraphs: splitParagraphs,
	}
	for k := 0; k < nExtTokens; k++ {
		ts.Tokens = append(ts.Tokens, Ext(k))
	}
	return ts
}

// NewBits1 builds the Bits1 seed: 2 Ext slots, every byte decomposed
// into an 8-token bit sequence (most significant bit first).
func NewBits1(processing Processing, splitParagraphs bool) *TokenSet {
	ts := New(2, processing, Bits1, splitParagraphs)
	for b := 0; b < 256; b++ {
		toks := make([]int, 8)
		for i := 0; i < 8; i++ {
			bit := (b >> (7 - i)) & 1
			toks[i] = bit
		}
		ts.addFallbackSequence(byte(b), toks)
	}
	return ts
}

// NewBits2 builds the Bits2 seed: 4 Ext slots, every byte decomposed
// into a 4-token base-4 sequence (most significant digit first).
func NewBits2(processing Processing, splitParagraphs bool) *TokenSet {
	ts := New(4, processing, Bits2, splitParagraphs)
	for b := 0; b < 256; b++ {
		toks := make([]int, 4)
		for i := 0; i < 4; i++ {
			digit := (b >> (6 - 2*i)) & 0x3
			toks[i] = digit
		}
		ts.addFallbackSequence(byte(b), toks)
	}
	return ts
}

// NewBits4 builds the Bits4 seed: 16 Ext slots, every byte decomposed
// into a 2-token nibble sequence (high nibble, low nibble).
func NewBits4(processing Processing, splitParagraphs bool) *TokenSet {
	ts := New(16, processing, Bits4, splitParagraphs)
	for b := 0; b < 256; b++ {
		hi := (b >> 4) & 0xF
		lo := b & 0xF
		ts.addFallbackSequence(byte(b), []int{hi, lo})
	}
	return ts
}

// NewBytes builds the Bytes seed: 0 Ext slots, every byte a mandatory
// single-byte Str token.
func NewBytes(processing Processing, splitParagraphs bool) *TokenSet {
	ts := New(0, processing, Bytes, splitParagraphs)
	for b := 0; b < 256; b++ {
		ts.Tokens = append(ts.Tokens, Str([]byte{byte(b)}))
	}
	return ts
}

// addFallbackSequence records the fixed-decomposition Sequence for a
// single byte during one of the NewBitsN constructors. It bypasses
// AddToken's single-byte shadowing check since there is no Str token
// for this byte yet.
func (ts *TokenSet) addFallbackSequence(b byte, toks []int) {
	ts.Sequences = append(ts.Sequences, Sequence{Bytes: []byte{b}, Tokens: toks})
}

// AddSequence appends a fallback Sequence directly. Used by the
// Huffman byte optimizer (pkg/optimize) when constructing BytesHuff
// vocabularies.
func (ts *TokenSet) AddSequence(bytes []byte, tokens []int) {
	b := make([]byte, len(bytes))
	copy(b, bytes)
	t := make([]int, len(tokens))
	copy(t, tokens)
	ts.Sequences = append(ts.Sequences, Sequence{Bytes: b, Tokens: t})
}

// AddToken appends a Str token for the given byte string and returns
// its index. If a fallback Sequence exists whose Bytes equal the new
// token's bytes (single-byte shadowing), it is removed.
func (ts *TokenSet) AddToken(bytes []byte) int {
	idx := len(ts.Tokens)
	ts.Tokens = append(ts.Tokens, Str(bytes))

	for i, seq := range ts.Sequences {
		if string(seq.Bytes) == string(bytes) {
			ts.Sequences = append(ts.Sequences[:i], ts.Sequences[i+1:]...)
			break
		}
	}
	return idx
}

// RemoveToken swap-removes the token at idx: the last token takes its
// place, and every Sequence referencing the last index is rewritten to
// idx. Panics if any Sequence still references idx directly — the
// caller must ensure the token being removed is unreferenced (or
// re-pointed) first.
func (ts *TokenSet) RemoveToken(idx int) {
	last := len(ts.Tokens) - 1
	for _, seq := range ts.Sequences {
		for _, t := range seq.Tokens {
			if t == idx {
				panic(fmt.Sprintf("token: RemoveToken(%d): still referenced by a sequence", idx))
			}
		}
	}

	if idx != last {
		ts.Tokens[idx] = ts.Tokens[last]
		for si, seq := range ts.Sequences {
			for ti, t := range seq.Tokens {
				if t == last {
					ts.Sequences[si].Tokens[ti] = idx
				}
			}
		}
	}
	ts.Tokens = ts.Tokens[:last]
}

// FindToken returns the index of the Str token with the given bytes,
// or (0, false) if none exists.
func (ts *TokenSet) FindToken(bytes []byte) (int, bool) {
	for i, t := range ts.Tokens {
		if !t.IsExt() && string(t.Bytes()) == string(bytes) {
			return i, true
		}
	}
	return 0, false
}

// NTokens returns len(Tokens) — the current vocabulary size.
func (ts *TokenSet) NTokens() int { return len(ts.Tokens) }

// NLongTokens counts Str tokens with byte length > 1.
func (ts *TokenSet) NLongTokens() int {
	n := 0
	for _, t := range ts.Tokens {
		if !t.IsExt() && len(t.Bytes()) > 1 {
			n++
		}
	}
	return n
}

// MinBytesExtTokens returns the per-kind Ext-slot floor (Invariant 1).
func (ts *TokenSet) MinBytesExtTokens() int { return ts.Kind.MinBytesExtTokens() }

// Name returns the canonical save-file stem:
// tokens{ntokens}_{processing}_{kind}.
func (ts *TokenSet) Name() string {
	return fmt.Sprintf("tokens%d_%s_%s", ts.NTokens(), ts.Processing, ts.Kind)
}

// Clone returns a deep, independent copy of the TokenSet.
func (ts *TokenSet) Clone() *TokenSet {
	cp := &TokenSet{
		NExtTokens:      ts.NExtTokens,
		Kind:            ts.Kind,
		Processing:      ts.Processing,
		SplitParagraphs: ts.SplitParagraphs,
		Tokens:          make([]Token, len(ts.Tokens)),
		Sequences:       make([]Sequence, len(ts.Sequences)),
	}
	copy(cp.Tokens, ts.Tokens)
	for i, s := range ts.Sequences {
		cp.Sequences[i] = s.clone()
	}
	return cp
}

// Sort canonicalizes the TokenSet in place: Ext tokens first (by
// slot), then Str tokens lexicographically by bytes; sequences are
// re-sorted by their Bytes; every stored token index is renumbered
// consistently with the new ordering.
func (ts *TokenSet) Sort() {
	type indexed struct {
		tok Token
		old int
	}
	items := make([]indexed, len(ts.Tokens))
	for i, t := range ts.Tokens {
		items[i] = indexed{tok: t, old: i}
	}

	// stable insertion sort by Token.Less keeps ties (there should be
	// none, since tokens are unique) in original order.
	for i := 1; i < len(items); i++ {
		j := i
		for j > 0 && items[j].tok.Less(items[j-1].tok) {
			items[j], items[j-1] = items[j-1], items[j]
			j--
		}
	}

	remap := make([]int, len(ts.Tokens))
	newTokens := make([]Token, len(items))
	for newIdx, it := range items {
		newTokens[newIdx] = it.tok
		remap[it.old] = newIdx
	}
	ts.Tokens = newTokens

	for si := range ts.Sequences {
		for ti, old := range ts.Sequences[si].Tokens {
			ts.Sequences[si].Tokens[ti] = remap[old]
		}
	}

	seqs := ts.Sequences
	for i := 1; i < len(seqs); i++ {
		j := i
		for j > 0 && string(seqs[j].Bytes) < string(seqs[j-1].Bytes) {
			seqs[j], seqs[j-1] = seqs[j-1], seqs[j]
			j--
		}
	}
}
