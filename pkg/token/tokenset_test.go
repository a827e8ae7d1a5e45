package token

import "testing"

func TestNewBits1Coverage(t *testing.T) {
	ts := NewBits1(Raw, true)
	if ts.NExtTokens != 2 {
		t.Fatalf("NExtTokens: got %d, want 2", ts.NExtTokens)
	}
	if ts.NTokens() != 2 {
		t.Fatalf("NTokens: got %d, want 2", ts.NTokens())
	}
	if len(ts.Sequences) != 256 {
		t.Fatalf("len(Sequences): got %d, want 256", len(ts.Sequences))
	}
	for _, seq := range ts.Sequences {
		if len(seq.Tokens) != 8 {
			t.Fatalf("sequence for %v: got %d tokens, want 8", seq.Bytes, len(seq.Tokens))
		}
	}
}

func TestNewBits4Coverage(t *testing.T) {
	ts := NewBits4(Raw, false)
	if ts.NExtTokens != 16 {
		t.Fatalf("NExtTokens: got %d, want 16", ts.NExtTokens)
	}
	if len(ts.Sequences) != 256 {
		t.Fatalf("len(Sequences): got %d, want 256", len(ts.Sequences))
	}
	for _, seq := range ts.Sequences {
		if len(seq.Tokens) != 2 {
			t.Fatalf("sequence for %v: got %d tokens, want 2", seq.Bytes, len(seq.Tokens))
		}
	}
}

func TestNewBytesCoverage(t *testing.T) {
	ts := NewBytes(Raw, false)
	if ts.NExtTokens != 0 {
		t.Fatalf("NExtTokens: got %d, want 0", ts.NExtTokens)
	}
	if ts.NTokens() != 256 {
		t.Fatalf("NTokens: got %d, want 256", ts.NTokens())
	}
	if len(ts.Sequences) != 0 {
		t.Fatalf("len(Sequences): got %d, want 0", len(ts.Sequences))
	}
}

func TestAddTokenShadowsSequence(t *testing.T) {
	ts := NewBits4(Raw, true)
	before := len(ts.Sequences)
	ts.AddToken([]byte{'a'})
	if len(ts.Sequences) != before-1 {
		t.Fatalf("AddToken should shadow the single-byte sequence: got %d sequences, want %d", len(ts.Sequences), before-1)
	}
	idx, ok := ts.FindToken([]byte{'a'})
	if !ok || ts.Tokens[idx].Bytes()[0] != 'a' {
		t.Fatalf("FindToken('a') failed after AddToken")
	}
}

func TestRemoveTokenRewritesSequences(t *testing.T) {
	ts := NewBits4(Raw, true)
	ts.AddToken([]byte("ab"))
	idxAB := len(ts.Tokens) - 1

	ts.AddToken([]byte("ab2"))
	idxAB2 := len(ts.Tokens) - 1

	// Point a sequence at idxAB2 (the one that will become "last").
	ts.Sequences = append(ts.Sequences, Sequence{Bytes: []byte{0xF0}, Tokens: []int{idxAB2}})

	ts.RemoveToken(idxAB)

	found := false
	for _, seq := range ts.Sequences {
		for _, ti := range seq.Tokens {
			if ti == idxAB {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected the removed slot %d to now hold the former last token", idxAB)
	}
	if _, ok := ts.FindToken([]byte("ab2")); !ok {
		t.Fatalf("ab2 token should still be findable after swap-remove")
	}
}

func TestRemoveTokenPanicsIfStillReferenced(t *testing.T) {
	ts := NewBits4(Raw, true)
	ts.AddToken([]byte("ab"))
	idx := len(ts.Tokens) - 1
	ts.Sequences = append(ts.Sequences, Sequence{Bytes: []byte{0xF1}, Tokens: []int{idx}})

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected RemoveToken to panic when a sequence still references idx")
		}
	}()
	ts.RemoveToken(idx)
}

func TestSortOrdersExtBeforeStrAndRenumbers(t *testing.T) {
	ts := NewBits4(Raw, true)
	ts.AddToken([]byte("zz"))
	ts.AddToken([]byte("aa"))

	ts.Sort()

	for i, tok := range ts.Tokens {
		if tok.IsExt() {
			// all Ext tokens must precede all Str tokens
			for _, other := range ts.Tokens[:i] {
				if !other.IsExt() {
					t.Fatalf("Ext token at %d follows a Str token after Sort", i)
				}
			}
			continue
		}
		for _, other := range ts.Tokens[:i] {
			if other.IsExt() {
				continue
			}
			if string(other.Bytes()) > string(tok.Bytes()) {
				t.Fatalf("Str tokens not lexicographically sorted: %q before %q", other.Bytes(), tok.Bytes())
			}
		}
	}

	for _, seq := range ts.Sequences {
		for _, ti := range seq.Tokens {
			if ti < 0 || ti >= len(ts.Tokens) {
				t.Fatalf("sequence token index %d out of range after Sort", ti)
			}
		}
	}
}

func TestNTokensAndNLongTokens(t *testing.T) {
	ts := NewBits4(Raw, true)
	base := ts.NTokens()
	ts.AddToken([]byte{'x'})
	ts.AddToken([]byte("xy"))

	if ts.NTokens() != base+2 {
		t.Fatalf("NTokens: got %d, want %d", ts.NTokens(), base+2)
	}
	if ts.NLongTokens() != 1 {
		t.Fatalf("NLongTokens: got %d, want 1", ts.NLongTokens())
	}
}

func TestName(t *testing.T) {
	ts := NewBits4(Raw, true)
	want := "tokens16_raw_bits4"
	if got := ts.Name(); got != want {
		t.Errorf("Name(): got %q, want %q", got, want)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ts := NewBits4(Raw, true)
	ts.AddToken([]byte("ab"))
	cp := ts.Clone()
	cp.AddToken([]byte("cd"))

	if ts.NTokens() == cp.NTokens() {
		t.Fatalf("Clone should be independent: original has %d tokens, clone has %d", ts.NTokens(), cp.NTokens())
	}
}
