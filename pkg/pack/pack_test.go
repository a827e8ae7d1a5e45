package pack

import (
	"reflect"
	"testing"

	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokenizer"
)

func sampleTokenSet() *token.TokenSet {
	ts := token.NewBytes(token.Raw, false)
	ts.AddToken([]byte("the"))
	ts.AddToken([]byte("quick"))
	ts.AddToken([]byte("brown"))
	ts.AddToken([]byte("fox"))
	return ts
}

func TestEncodeDecodeRoundTripMatchesSegment(t *testing.T) {
	ts := sampleTokenSet()
	corpus := []byte("the quick brown fox jumps over the quick fox")

	ft := tokenizer.New(ts)
	want := ft.Segment(corpus)

	encoded, err := Encode(ts, corpus)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got  %v\n want %v", got, want)
	}
}

func TestEncodeDecodeEmptyCorpus(t *testing.T) {
	ts := sampleTokenSet()
	encoded, err := Encode(ts, []byte(""))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty ID stream, got %v", got)
	}
}

func TestEncodeIDsRejectsOutOfRangeID(t *testing.T) {
	_, err := EncodeIDs([]int{0, 999}, 4)
	if err == nil {
		t.Errorf("expected an error for an out-of-alphabet token ID")
	}
}

func TestBuildTableUniformFallbackForAllZeroCounts(t *testing.T) {
	tab := BuildTable(make([]uint64, 4))
	var total uint32
	for _, s := range tab.Symbols {
		total += s.Freq
	}
	if total != ProbScale {
		t.Errorf("all-zero counts should still sum to ProbScale, got %d", total)
	}
}

func TestEncodeParallelDecodeParallelRoundTrip(t *testing.T) {
	ts := sampleTokenSet()
	corpus := []byte("the quick brown fox jumps over the quick fox the quick brown fox jumps over the lazy dog")

	ft := tokenizer.New(ts)
	ids := ft.Segment(corpus)

	encoded, err := EncodeParallel(ids, ts.NTokens(), 8)
	if err != nil {
		t.Fatalf("EncodeParallel: %v", err)
	}
	got, err := DecodeParallel(encoded)
	if err != nil {
		t.Fatalf("DecodeParallel: %v", err)
	}
	if !reflect.DeepEqual(got, ids) {
		t.Errorf("parallel round trip mismatch:\n got  %v\n want %v", got, ids)
	}
}

func TestEncodeIDsCompressesRepetitiveStream(t *testing.T) {
	ids := make([]int, 1000)
	for i := range ids {
		ids[i] = i % 3
	}
	encoded, err := EncodeIDs(ids, 5)
	if err != nil {
		t.Fatalf("EncodeIDs: %v", err)
	}
	if len(encoded) >= len(ids) {
		t.Errorf("expected compression on a highly repetitive stream: encoded %d bytes for %d IDs", len(encoded), len(ids))
	}
}
