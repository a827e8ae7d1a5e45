package tokenizer

import "github.com/eterevsky/tokens-go/pkg/token"

type spanKind int

const (
	spanNone spanKind = iota
	spanToken
	spanSequence
)

// span is a maximal contiguous byte range coverable by a single Str
// token or fallback Sequence. Index 0 is always the empty-string
// sentinel span.
type span struct {
	kind     spanKind
	tokenIdx int // valid when kind == spanToken
	seqIdx   int // valid when kind == spanSequence
	bytes    []byte
	cost     uint64
	// suffixSpan is the index of the longest proper suffix of bytes
	// that is itself the bytes of another span, or 0 if none.
	suffixSpan int
}

// buildSpans constructs the span table for ts: the empty sentinel,
// one span per Str token, one span per Sequence, and each span's
// suffixSpan link.
func buildSpans(ts *token.TokenSet) ([]span, map[string]int) {
	spans := []span{{kind: spanNone}}
	spanByStr := map[string]int{"": 0}

	for idx, t := range ts.Tokens {
		if t.IsExt() {
			continue
		}
		b := t.Bytes()
		key := string(b)
		if _, dup := spanByStr[key]; dup {
			panic("tokenizer: duplicate Str token bytes in vocabulary")
		}
		spanByStr[key] = len(spans)
		spans = append(spans, span{kind: spanToken, tokenIdx: idx, bytes: b, cost: 1})
	}

	for idx, seq := range ts.Sequences {
		key := string(seq.Bytes)
		if _, dup := spanByStr[key]; dup {
			panic("tokenizer: sequence bytes collide with an existing span")
		}
		spanByStr[key] = len(spans)
		spans = append(spans, span{kind: spanSequence, seqIdx: idx, bytes: seq.Bytes, cost: uint64(len(seq.Tokens))})
	}

	for i := 1; i < len(spans); i++ {
		s := &spans[i]
		for start := 1; start <= len(s.bytes)-1; start++ {
			suffix := s.bytes[start:]
			if idx, ok := spanByStr[string(suffix)]; ok {
				s.suffixSpan = idx
				break
			}
		}
	}

	return spans, spanByStr
}
