package tokstats

import (
	"testing"

	"github.com/eterevsky/tokens-go/pkg/token"
)

func TestMergeIsAdditiveAndDropsPairCounts(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	a := New(ts, nil)
	b := New(ts, nil)

	a.TotalTokens = 3
	a.ScannedBytes = 10
	a.TokenCounts[0] = 1
	a.PairCounts[0] = 99

	b.TotalTokens = 5
	b.ScannedBytes = 20
	b.TokenCounts[0] = 2

	a.Merge(b)

	if a.TotalTokens != 8 {
		t.Errorf("TotalTokens: got %d, want 8", a.TotalTokens)
	}
	if a.ScannedBytes != 30 {
		t.Errorf("ScannedBytes: got %d, want 30", a.ScannedBytes)
	}
	if a.TokenCounts[0] != 3 {
		t.Errorf("TokenCounts[0]: got %d, want 3", a.TokenCounts[0])
	}
	if a.PairCounts[0] != 99 {
		t.Errorf("Merge must not touch PairCounts: got %d, want 99 unchanged", a.PairCounts[0])
	}
}

func TestBytesPerToken(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	size := uint64(100)
	s := New(ts, &size)
	s.TotalTokens = 25

	if got := s.BytesPerToken(); got != 4.0 {
		t.Errorf("BytesPerToken: got %v, want 4.0", got)
	}
}

func TestBytesPerTokenZeroWithoutInitialSize(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	s := New(ts, nil)
	s.TotalTokens = 25

	if got := s.BytesPerToken(); got != 0 {
		t.Errorf("BytesPerToken without InitialSize: got %v, want 0", got)
	}
}

func TestWithoutPairCountsClears(t *testing.T) {
	ts := token.NewBits4(token.Raw, true)
	s := New(ts, nil)
	s.PairCounts[0] = 1

	cleared := s.WithoutPairCounts()
	if cleared.PairCounts != nil {
		t.Errorf("WithoutPairCounts should clear PairCounts")
	}
	if s.PairCounts[0] != 1 {
		t.Errorf("WithoutPairCounts must not mutate the original")
	}
}
