// Command tokens trains and manipulates byte-level BPE vocabularies:
// optimize builds one from a corpus, convert-tokens bridges to and
// from the legacy tiktoken rank-table format, process runs the
// CapsWords text pre-processor standalone, count-chars reports a
// byte/rune histogram, and pack demonstrates range-coding a corpus
// against a trained vocabulary.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "tokens: "+format+"\n", args...)
	os.Exit(1)
}
