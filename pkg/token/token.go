// Package token holds the vocabulary data model: tokens, fallback
// sequences, and the vocabulary (TokenSet) that groups them.
package token

import "fmt"

// Kind fixes the minimum layout of Ext tokens and the shape of the
// fallback sequences a TokenSet is seeded with.
type Kind int

const (
	Bits1 Kind = iota
	Bits2
	Bits4
	Bytes
	BytesHuff
)

func (k Kind) String() string {
	switch k {
	case Bits1:
		return "bits1"
	case Bits2:
		return "bits2"
	case Bits4:
		return "bits4"
	case Bytes:
		return "bytes"
	case BytesHuff:
		return "byteshuff"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the CLI/config spelling of a Kind (the same strings
// Kind.String produces). Returns an error naming the valid spellings
// on an unrecognized input.
func ParseKind(s string) (Kind, error) {
	switch s {
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
	default:
		return 0, fmt.Errorf("token: unknown kind %q (want one of: bits1, bits2, bits4, bytes, byteshuff)", s)
	}
}

// MinBytesExtTokens returns the number of Ext slots a fresh TokenSet of
// this kind is seeded with.
func (k Kind) MinBytesExtTokens() int {
	switch k {
	case Bits1:
		return 2
	case Bits2:
		return 4
	case Bits4:
		return 16
	case Bytes:
		return 0
	case BytesHuff:
		return 2
	default:
		panic(fmt.Sprintf("token: unknown kind %d", int(k)))
	}
}

// Processing selects an optional text pre-processing pass applied
// before bytes reach the segmentation engine. See pkg/textproc.
type Processing int

const (
	Raw Processing = iota
	CapsWords
)

func (p Processing) String() string {
	switch p {
	case Raw:
		return "raw"
	case CapsWords:
		return "capswords"
	default:
		return fmt.Sprintf("processing(%d)", int(p))
	}
}

// ParseProcessing parses the CLI/config spelling of a Processing (the
// same strings Processing.String produces).
func ParseProcessing(s string) (Processing, error) {
	switch s {
	case "raw":
		return Raw, nil
	case "capswords":
		return CapsWords, nil
	default:
		return 0, fmt.Errorf("token: unknown processing %q (want raw or capswords)", s)
	}
}

// Token is either a concrete byte string (Str) that costs one token
// when emitted by the segmentation engine, or a fallback extension
// slot (Ext) referenced only from Sequences.
type Token struct {
	isExt  bool
	extIdx uint8
	str    []byte
}

// Str constructs a concrete byte-string token.
func Str(bytes []byte) Token {
	if len(bytes) == 0 {
		panic("token: Str token must have length >= 1")
	}
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	return Token{str: cp}
}

// Ext constructs a fallback extension-slot token.
func Ext(k int) Token {
	if k < 0 || k > 255 {
		panic("token: Ext index out of range")
	}
	return Token{isExt: true, extIdx: uint8(k)}
}

// IsExt reports whether this token is a fallback extension slot.
func (t Token) IsExt() bool { return t.isExt }

// ExtIdx returns the Ext slot index; valid only if IsExt().
func (t Token) ExtIdx() int { return int(t.extIdx) }

// Bytes returns the token's byte string; valid only if !IsExt().
func (t Token) Bytes() []byte { return t.str }

// Less implements the canonical ordering used by TokenSet.Sort: Ext
// tokens sort before Str tokens (by slot index); Str tokens sort
// lexicographically by bytes.
func (t Token) Less(other Token) bool {
	if t.isExt != other.isExt {
		return t.isExt
	}
	if t.isExt {
		return t.extIdx < other.extIdx
	}
	for i := 0; i < len(t.str) && i < len(other.str); i++ {
		if t.str[i] != other.str[i] {
			return t.str[i] < other.str[i]
		}
	}
	return len(t.str) < len(other.str)
}

func (t Token) String() string {
	if t.isExt {
		return fmt.Sprintf("Ext(%d)", t.extIdx)
	}
	return fmt.Sprintf("Str(%q)", t.str)
}

// Sequence is the fallback encoding used for a byte value that has no
// dedicated single-byte Str token: the bytes it encodes, and the list
// of token indices (into TokenSet.Tokens) emitted for it. Its cost is
// len(Tokens).
type Sequence struct {
	Bytes  []byte
	Tokens []int
}

func (s Sequence) clone() Sequence {
	b := make([]byte, len(s.Bytes))
	copy(b, s.Bytes)
	ti := make([]int, len(s.Tokens))
	copy(ti, s.Tokens)
	return Sequence{Bytes: b, Tokens: ti}
}
