package textproc

import "testing"

func TestProcess(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello, world!", "\x14hello\x16, world\x16!"},
		{"hello, world!", "hello\x16, world\x16!"},
		{"HELLO, world!", "\x15hello\x16, world\x16!"},
		{"HeLLo, world!", "HeLLo\x16, world\x16!"},
		{"Hello world!", "\x14hello\x16world\x16!"},
		{"Hello , world!", "\x14hello\x16 , world\x16!"},
		{"Hello, world ", "\x14hello\x16, world\x16 "},
		{"Hello, world", "\x14hello\x16, world\x16"},
		{"Hello, World", "\x14hello\x16, \x14world\x16"},
		{"Hello World", "\x14hello\x16\x14world\x16"},
		{"Hello WORLD", "\x14hello\x16\x15world\x16"},
	}

	for _, c := range cases {
		got := Process(c.in)
		if got != c.want {
			t.Errorf("Process(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

// TestMarkerBytesAreSingleByteASCII checks that the marker bytes
// Process inserts (\x14, \x15, \x16) are single-byte ASCII control
// codes, so each marker occupies exactly one byte of the processed
// stream.
func TestMarkerBytesAreSingleByteASCII(t *testing.T) {
	for _, b := range []byte{CapitalizedMarker, AllUpperMarker, WordEndMarker} {
		if b >= 0x80 {
			t.Fatalf("marker byte %#x is not a valid single-byte ASCII control code", b)
		}
	}
}
