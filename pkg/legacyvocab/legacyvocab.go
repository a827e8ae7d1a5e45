// Package legacyvocab bridges token.TokenSet vocabularies to and from
// the flat tiktoken-style rank-table format (base64 token bytes plus
// an integer merge rank, one per line), and provides a handful of
// small built-in seed vocabularies trained by plain byte-pair merging
// on representative samples. It exists for interoperability with
// existing tiktoken-format files and as a convenient non-empty
// starting point for cmd/tokens optimize, not as the primary
// vocabulary format — that is pkg/token's JSON form.
package legacyvocab

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/eterevsky/tokens-go/pkg/token"
)

// RankTable maps a token's raw byte string to its merge rank — lower
// ranks were merged earlier and are assigned lower token IDs on
// import, mirroring tiktoken's convention.
type RankTable map[string]int

// Export converts ts's Str tokens into a RankTable, ranked by their
// position in ts.Tokens. Ext tokens have no byte representation and
// are omitted — a RankTable is necessarily a Bytes-kind-equivalent
// view of the vocabulary, without ts's fallback Sequences.
func Export(ts *token.TokenSet) RankTable {
	ranks := make(RankTable, ts.NTokens())
	rank := 0
	for _, t := range ts.Tokens {
		if t.IsExt() {
			continue
		}
		ranks[string(t.Bytes())] = rank
		rank++
	}
	return ranks
}

// Import builds a TokenSet of the given kind, seeded normally (so
// every byte remains encodable even if ranks omits some), with every
// byte string in ranks added as a Str token in rank order.
func Import(ranks RankTable, kind token.Kind, processing token.Processing, splitParagraphs bool) (*token.TokenSet, error) {
	var ts *token.TokenSet
	switch kind {
	case token.Bits1:
		ts = token.NewBits1(processing, splitParagraphs)
	case token.Bits2:
		ts = token.NewBits2(processing, splitParagraphs)
	case token.Bits4:
		ts = token.NewBits4(processing, splitParagraphs)
	case token.Bytes:
		ts = token.NewBytes(processing, splitParagraphs)
	default:
		return nil, fmt.Errorf("legacyvocab: Import does not support kind %s", kind)
	}

	type entry struct {
		bytes []byte
		rank  int
	}
	entries := make([]entry, 0, len(ranks))
	for b, r := range ranks {
		entries = append(entries, entry{bytes: []byte(b), rank: r})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })

	for _, e := range entries {
		if _, exists := ts.FindToken(e.bytes); exists {
			continue
		}
		ts.AddToken(e.bytes)
	}
	return ts, nil
}

// WriteTiktoken writes ranks in tiktoken's flat text format: one
// "<base64 bytes> <rank>" line per token, ordered by rank.
func WriteTiktoken(w io.Writer, ranks RankTable) error {
	type entry struct {
		bytes []byte
		rank  int
	}
	entries := make([]entry, 0, len(ranks))
	for b, r := range ranks {
		entries = append(entries, entry{bytes: []byte(b), rank: r})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })

	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s %d\n", base64.StdEncoding.EncodeToString(e.bytes), e.rank); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadTiktoken parses tiktoken's flat text format back into a
// RankTable.
func ReadTiktoken(r io.Reader) (RankTable, error) {
	ranks := make(RankTable)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		b, err := base64.StdEncoding.DecodeString(parts[0])
		if err != nil {
			return nil, fmt.Errorf("legacyvocab: invalid base64 %q: %w", parts[0], err)
		}
		rank, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("legacyvocab: invalid rank %q: %w", parts[1], err)
		}
		ranks[string(b)] = rank
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ranks, nil
}

// trainBPE runs plain byte-pair-merge training on corpus: starting
// from the 256 individual bytes, it repeatedly merges the most
// frequent adjacent pair of current tokens into a new one, up to
// numMerges times (stopping early once no pair repeats). It returns
// the resulting RankTable.
func trainBPE(corpus []byte, numMerges int) RankTable {
	ranks := make(RankTable, 256+numMerges)
	for i := 0; i < 256; i++ {
		ranks[string([]byte{byte(i)})] = i
	}

	ids := make([]int, len(corpus))
	byID := make([][]byte, 256, 256+numMerges)
	for i := 0; i < 256; i++ {
		byID[i] = []byte{byte(i)}
	}
	for i, b := range corpus {
		ids[i] = int(b)
	}

	nextRank := 256
	for merge := 0; merge < numMerges; merge++ {
		type pairKey struct{ a, b int }
		counts := make(map[pairKey]int)
		for i := 0; i < len(ids)-1; i++ {
			counts[pairKey{ids[i], ids[i+1]}]++
		}
		if len(counts) == 0 {
			break
		}

		var best pairKey
		bestCount := 0
		for p, c := range counts {
			if c > bestCount {
				bestCount = c
				best = p
			}
		}
		if bestCount < 2 {
			break
		}

		merged := append(append([]byte{}, byID[best.a]...), byID[best.b]...)
		newID := nextRank
		ranks[string(merged)] = newID
		byID = append(byID, merged)
		nextRank++

		newIDs := make([]int, 0, len(ids))
		for i := 0; i < len(ids); {
			if i < len(ids)-1 && ids[i] == best.a && ids[i+1] == best.b {
				newIDs = append(newIDs, newID)
				i += 2
			} else {
				newIDs = append(newIDs, ids[i])
				i++
			}
		}
		ids = newIDs
	}

	return ranks
}

// seedCorpora holds small representative samples for each built-in
// seed name. They are intentionally tiny — enough to produce a
// handful of sensible merges, not a production-scale vocabulary.
var seedCorpora = map[string]string{
	"text": "the quick brown fox jumps over the lazy dog. " +
		"it was the best of times, it was the worst of times. " +
		"to be or not to be, that is the question. " +
		"all human beings are born free and equal in dignity and rights.",
	"go": `package main

import "fmt"

func main() {
	for i := 0; i < 10; i++ {
		fmt.Println(i)
	}
}

type Server struct {
	addr string
}

func (s *Server) ListenAndServe() error {
	return nil
}
`,
	"python": `def main():
    for i in range(10):
        print(i)

class Server:
    def __init__(self, addr):
        self.addr = addr

    def listen(self):
        return None

if __name__ == "__main__":
    main()
`,
	"js": `function main() {
  for (let i = 0; i < 10; i++) {
    console.log(i);
  }
}

class Server {
  constructor(addr) {
    this.addr = addr;
  }

  listen() {
    return null;
  }
}

module.exports = { main, Server };
`,
}

// seedMerges bounds how many merges Seed trains — small enough to run
// instantly on the tiny embedded corpora above.
const seedMerges = 48

// Seed returns a small built-in RankTable trained on a representative
// sample for name ("text", "go", "python", or "js"). These are
// deliberately compact placeholders for `--pretrained built-in:<name>`,
// not the much larger generated tables a production deployment would
// ship.
func Seed(name string) (RankTable, error) {
	corpus, ok := seedCorpora[name]
	if !ok {
		names := make([]string, 0, len(seedCorpora))
		for n := range seedCorpora {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("legacyvocab: unknown seed %q (known: %s)", name, strings.Join(names, ", "))
	}
	return trainBPE([]byte(corpus), seedMerges), nil
}
