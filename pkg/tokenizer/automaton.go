package tokenizer

// suffixState is one node of the prefix-indexed transition table: it
// represents a distinct byte string (a prefix of some span's bytes),
// the span whose bytes are the longest suffix of that string (the
// string itself when it is a span's bytes), where ProcessSlice starts
// walking the span chain, and the transition to take on every possible
// next byte.
type suffixState struct {
	suffix  []byte
	spanIdx int
	next    [256]int
}

// buildSuffixStates constructs the automaton described in §4.B: one
// state per distinct prefix of every span's bytes, with total
// transitions for all 256 possible next bytes resolved by suffix
// search at construction time so that runtime transitions are pure
// array lookups.
func buildSuffixStates(spans []span, spanByStr map[string]int) []suffixState {
	states := []suffixState{{suffix: nil, spanIdx: 0}}
	stateByStr := map[string]int{"": 0}

	for _, s := range spans {
		for end := 1; end <= len(s.bytes); end++ {
			prefix := s.bytes[:end]
			key := string(prefix)
			if _, ok := stateByStr[key]; ok {
				continue
			}

			suffixSpan := 0
			for start := 0; start < len(prefix); start++ {
				if idx, ok := spanByStr[string(prefix[start:])]; ok {
					suffixSpan = idx
					break
				}
			}
			if suffixSpan == 0 && key != "" {
				panic("tokenizer: automaton prefix has no suffix span; vocabulary violates byte coverage")
			}

			cp := make([]byte, len(prefix))
			copy(cp, prefix)
			stateByStr[string(cp)] = len(states)
			states = append(states, suffixState{suffix: cp, spanIdx: suffixSpan})
		}
	}

	for i := range states {
		suffix := append([]byte(nil), states[i].suffix...)
		for b := 0; b < 256; b++ {
			candidate := append(suffix, byte(b))

			suffixID := 0
			for start := 0; start < len(candidate); start++ {
				if id, ok := stateByStr[string(candidate[start:])]; ok {
					suffixID = id
					break
				}
			}
			if suffixID == 0 {
				panic("tokenizer: automaton transition has no target state; vocabulary violates byte coverage")
			}
			states[i].next[b] = suffixID
			candidate = candidate[:len(candidate)-1]
		}
	}

	return states
}
