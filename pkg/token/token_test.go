package token

import "testing"

func TestParseKindRoundTripsWithString(t *testing.T) {
	for _, k := range []Kind{Bits1, Bits2, Bits4, Bytes, BytesHuff} {
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), parsed, k)
		}
	}
}

func TestParseKindUnknownReturnsError(t *testing.T) {
	if _, err := ParseKind("nonsense"); err == nil {
		t.Errorf("ParseKind with an unknown spelling should return an error")
	}
}
