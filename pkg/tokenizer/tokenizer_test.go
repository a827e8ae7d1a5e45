package tokenizer

import (
	"testing"

	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokstats"
)

// TestTokenizeBits1 checks that "abc" under a Bits1 vocabulary seeded
// with Str("a"), Str("ab"), Str("bc") segments into 2 tokens.
func TestTokenizeBits1(t *testing.T) {
	ts := token.NewBits1(token.Raw, true)
	ts.AddToken([]byte("a"))
	ts.AddToken([]byte("ab"))
	ts.AddToken([]byte("bc"))

	ft := New(ts)
	size := uint64(3)
	stats := tokstats.New(ts, &size)
	var scratch []CostState

	ft.ProcessSlice([]byte("abc"), stats, &scratch)

	if stats.TotalTokens != 2 {
		t.Errorf("TotalTokens: got %d, want 2", stats.TotalTokens)
	}
}

// TestTokenizeSequenceBits4 is scenario S2: "abcde" under a Bits4
// vocabulary with tokens {ab,b,c,d,e,bcde} must segment into 3 tokens.
func TestTokenizeSequenceBits4(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	ts.AddToken([]byte("ab"))
	ts.AddToken([]byte("b"))
	ts.AddToken([]byte("c"))
	ts.AddToken([]byte("d"))
	ts.AddToken([]byte("e"))
	ts.AddToken([]byte("bcde"))

	ft := New(ts)
	size := uint64(5)
	stats := tokstats.New(ts, &size)
	var scratch []CostState

	ft.ProcessSlice([]byte("abcde"), stats, &scratch)

	if stats.TotalTokens != 3 {
		t.Errorf("TotalTokens: got %d, want 3", stats.TotalTokens)
	}
}

func TestProcessSliceAdditivity(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	ts.AddToken([]byte("ab"))
	ts.AddToken([]byte("cd"))
	ft := New(ts)

	whole := tokstats.New(ts, nil)
	var scratch []CostState
	ft.ProcessSlice([]byte("abcd"), whole, &scratch)

	oneShot := tokstats.New(ts, nil)
	var scratch2 []CostState
	ft.ProcessSlice([]byte("ab"), oneShot, &scratch2)
	ft.ProcessSlice([]byte("cd"), oneShot, &scratch2)

	if whole.TotalTokens != oneShot.TotalTokens {
		t.Errorf("TotalTokens mismatch across equivalent calls: %d vs %d", whole.TotalTokens, oneShot.TotalTokens)
	}
}

func TestBytesPerTokenOnBasicVocab(t *testing.T) {
	ts := token.NewBytes(token.Raw, false)
	ft := New(ts)
	size := uint64(5)
	stats := tokstats.New(ts, &size)
	var scratch []CostState

	ft.ProcessSlice([]byte("hello"), stats, &scratch)

	if stats.TotalTokens != 5 {
		t.Errorf("a Bytes vocabulary must cost exactly one token per byte: got %d, want 5", stats.TotalTokens)
	}
}

func TestSegmentExpandsSequences(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	ts.AddToken([]byte("a"))
	ft := New(ts)

	ids := ft.Segment([]byte("a\x00"))
	if len(ids) != 3 {
		t.Fatalf("Segment: got %d token ids, want 3 (1 for 'a' + 2 for the nibble-sequence byte)", len(ids))
	}
}
