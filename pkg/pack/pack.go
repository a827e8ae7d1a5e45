// Package pack provides entropy coding of a token-ID stream using
// rANS (range Asymmetric Numeral Systems), generalized from a fixed
// 256-byte alphabet to an arbitrary alphabet sized by a TokenSet's
// current token count.
//
// It consumes a trained vocabulary (via pkg/tokenizer's segmentation
// engine) and produces a compact encoding of the resulting token-ID
// stream; it never feeds back into the optimizer and never influences
// total token counts.
package pack

import (
	"encoding/binary"
	"errors"
	"runtime"
	"sync"

	"github.com/eterevsky/tokens-go/pkg/token"
	"github.com/eterevsky/tokens-go/pkg/tokenizer"
)

const (
	ProbBits  = 14
	ProbScale = 1 << ProbBits
	RansL     = 1 << 23
)

var (
	ErrEmpty     = errors.New("pack: empty input")
	ErrCorrupted = errors.New("pack: corrupted data")
)

// Symbol contains frequency information for encoding/decoding one
// token ID.
type Symbol struct {
	CumFreq uint32
	Freq    uint32
}

// SymbolTable holds the encode/decode tables for an alphabet of size
// nsyms (ts.NTokens() at the time the table was built).
type SymbolTable struct {
	nsyms    int
	Symbols  []Symbol
	CumToSym []uint16
}

// BuildTable creates a symbol table from per-token frequency counts.
// len(counts) is the alphabet size; a zero-total counts slice falls
// back to a uniform distribution so BuildTable never produces an
// unusable table for an all-zero corpus.
func BuildTable(counts []uint64) *SymbolTable {
	nsyms := len(counts)
	tab := &SymbolTable{
		nsyms:    nsyms,
		Symbols:  make([]Symbol, nsyms),
		CumToSym: make([]uint16, ProbScale),
	}

	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		if nsyms == 0 {
			return tab
		}
		uniform := make([]uint64, nsyms)
		for i := range uniform {
			uniform[i] = 1
		}
		return BuildTable(uniform)
	}

	normalized := make([]uint32, nsyms)
	var normTotal uint32
	for i, c := range counts {
		if c == 0 {
			continue
		}
		n := uint32((c * ProbScale) / total)
		if n == 0 {
			n = 1
		}
		normalized[i] = n
		normTotal += n
	}

	if normTotal != ProbScale {
		maxIdx := 0
		for i, n := range normalized {
			if n > normalized[maxIdx] {
				maxIdx = i
			}
		}
		if normTotal > ProbScale {
			normalized[maxIdx] -= normTotal - ProbScale
		} else {
			normalized[maxIdx] += ProbScale - normTotal
		}
	}

	var cumFreq uint32
	for i, n := range normalized {
		tab.Symbols[i] = Symbol{CumFreq: cumFreq, Freq: n}
		for j := uint32(0); j < n; j++ {
			tab.CumToSym[cumFreq+j] = uint16(i)
		}
		cumFreq += n
	}

	return tab
}

// === ENCODER ===

// Encoder encodes a stream of token IDs using rANS.
type Encoder struct {
	state  uint32
	output []byte
}

// NewEncoder creates a new encoder.
func NewEncoder() *Encoder {
	return &Encoder{state: RansL}
}

// Encode encodes a single token ID.
func (e *Encoder) Encode(sym int, tab *SymbolTable) {
	s := &tab.Symbols[sym]
	freq := s.Freq
	if freq == 0 {
		return
	}

	maxState := ((RansL >> ProbBits) << 8) * freq
	for e.state >= maxState {
		e.output = append(e.output, byte(e.state))
		e.state >>= 8
	}

	e.state = ((e.state / freq) << ProbBits) + s.CumFreq + (e.state % freq)
}

// Finish finalizes encoding and returns the compressed data.
func (e *Encoder) Finish() []byte {
	stateBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(stateBytes, e.state)

	for i, j := 0, len(e.output)-1; i < j; i, j = i+1, j-1 {
		e.output[i], e.output[j] = e.output[j], e.output[i]
	}

	result := make([]byte, 4+len(e.output))
	copy(result[:4], stateBytes)
	copy(result[4:], e.output)
	return result
}

// === DECODER ===

// Decoder decodes a stream of token IDs using rANS.
type Decoder struct {
	state uint32
	data  []byte
	pos   int
}

// NewDecoder creates a decoder from compressed data.
func NewDecoder(data []byte) (*Decoder, error) {
	if len(data) < 4 {
		return nil, ErrCorrupted
	}
	return &Decoder{
		state: binary.LittleEndian.Uint32(data[:4]),
		data:  data,
		pos:   4,
	}, nil
}

// Decode decodes a single token ID.
func (d *Decoder) Decode(tab *SymbolTable) int {
	cumFreq := d.state & (ProbScale - 1)
	sym := tab.CumToSym[cumFreq]
	s := &tab.Symbols[sym]

	d.state = s.Freq*(d.state>>ProbBits) + cumFreq - s.CumFreq

	for d.state < RansL && d.pos < len(d.data) {
		d.state = (d.state << 8) | uint32(d.data[d.pos])
		d.pos++
	}

	return int(sym)
}

// === CORPUS-LEVEL API ===

// Encode segments corpus with ts's real segmentation engine and
// range-codes the resulting token-ID stream. The wire format is:
// [nsyms:4][nids:4][freqs: nsyms*4][compressed rANS payload].
func Encode(ts *token.TokenSet, corpus []byte) ([]byte, error) {
	ft := tokenizer.New(ts)
	ids := ft.Segment(corpus)
	return EncodeIDs(ids, ts.NTokens())
}

// EncodeIDs range-codes an already-segmented token-ID stream, given
// the alphabet size (ts.NTokens()) the IDs were drawn from. Exposed
// separately from Encode so callers that already hold a segmented
// stream (e.g. from pkg/tokenizer directly) need not re-segment.
func EncodeIDs(ids []int, nsyms int) ([]byte, error) {
	if len(ids) == 0 {
		header := make([]byte, 8)
		binary.LittleEndian.PutUint32(header[0:], uint32(nsyms))
		binary.LittleEndian.PutUint32(header[4:], 0)
		return header, nil
	}

	counts := make([]uint64, nsyms)
	for _, id := range ids {
		if id < 0 || id >= nsyms {
			return nil, ErrCorrupted
		}
		counts[id]++
	}

	tab := BuildTable(counts)

	enc := NewEncoder()
	for i := len(ids) - 1; i >= 0; i-- {
		enc.Encode(ids[i], tab)
	}
	compressed := enc.Finish()

	header := 8 + nsyms*4
	output := make([]byte, header+len(compressed))
	binary.LittleEndian.PutUint32(output[0:], uint32(nsyms))
	binary.LittleEndian.PutUint32(output[4:], uint32(len(ids)))
	for i, c := range counts {
		binary.LittleEndian.PutUint32(output[8+i*4:], uint32(c))
	}
	copy(output[header:], compressed)

	return output, nil
}

// Decode reverses EncodeIDs/Encode, returning the original token-ID
// stream. It is lossless over the token-ID stream, not over the
// original corpus bytes: recovering bytes from IDs is pkg/tokenizer's
// concern (a trained vocabulary's Sequences may encode several IDs per
// original byte), not the packer's.
func Decode(data []byte) ([]int, error) {
	if len(data) < 8 {
		return nil, ErrCorrupted
	}

	nsyms := int(binary.LittleEndian.Uint32(data[0:]))
	nids := int(binary.LittleEndian.Uint32(data[4:]))
	if nids == 0 {
		return []int{}, nil
	}

	headerSize := 8 + nsyms*4
	if len(data) < headerSize+4 {
		return nil, ErrCorrupted
	}

	counts := make([]uint64, nsyms)
	for i := 0; i < nsyms; i++ {
		counts[i] = uint64(binary.LittleEndian.Uint32(data[8+i*4:]))
	}
	tab := BuildTable(counts)

	dec, err := NewDecoder(data[headerSize:])
	if err != nil {
		return nil, err
	}

	ids := make([]int, nids)
	for i := 0; i < nids; i++ {
		ids[i] = dec.Decode(tab)
	}

	return ids, nil
}

// === PARALLEL API ===

const (
	DefaultChunkSize = 64 * 1024
	MinChunkSize     = 4 * 1024
)

// EncodeParallel range-codes ids in independent chunks of chunkSize
// IDs each, built concurrently across runtime.GOMAXPROCS(0) workers.
// Each chunk gets its own frequency table, so this is not bit-for-bit
// identical to EncodeIDs on the whole stream; DecodeParallel (not
// Decode) reads its output back into the same IDs.
func EncodeParallel(ids []int, nsyms int, chunkSize int) ([]byte, error) {
	if len(ids) == 0 {
		header := make([]byte, 12)
		binary.LittleEndian.PutUint32(header[0:], uint32(nsyms))
		binary.LittleEndian.PutUint32(header[4:], 0)
		binary.LittleEndian.PutUint32(header[8:], 0)
		return header, nil
	}

	if chunkSize < MinChunkSize {
		chunkSize = MinChunkSize
	}

	numChunks := (len(ids) + chunkSize - 1) / chunkSize
	workers := runtime.GOMAXPROCS(0)

	type chunkResult struct {
		compressed []byte
		origSize   int
		err        error
	}
	results := make([]chunkResult, numChunks)

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i := 0; i < numChunks; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			start := idx * chunkSize
			end := start + chunkSize
			if end > len(ids) {
				end = len(ids)
			}
			chunk := ids[start:end]

			compressed, err := EncodeIDs(chunk, nsyms)
			results[idx] = chunkResult{compressed: compressed, origSize: len(chunk), err: err}
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}

	headerSize := 12 + numChunks*8
	totalSize := headerSize
	for _, r := range results {
		totalSize += len(r.compressed)
	}

	output := make([]byte, totalSize)
	binary.LittleEndian.PutUint32(output[0:], uint32(nsyms))
	binary.LittleEndian.PutUint32(output[4:], uint32(len(ids)))
	binary.LittleEndian.PutUint32(output[8:], uint32(numChunks))

	pos := 12
	for i := 0; i < numChunks; i++ {
		binary.LittleEndian.PutUint32(output[pos:], uint32(results[i].origSize))
		binary.LittleEndian.PutUint32(output[pos+4:], uint32(len(results[i].compressed)))
		pos += 8
	}
	for i := 0; i < numChunks; i++ {
		copy(output[pos:], results[i].compressed)
		pos += len(results[i].compressed)
	}

	return output, nil
}

// DecodeParallel reverses EncodeParallel.
func DecodeParallel(data []byte) ([]int, error) {
	if len(data) < 12 {
		return nil, ErrCorrupted
	}

	nids := int(binary.LittleEndian.Uint32(data[4:]))
	if nids == 0 {
		return []int{}, nil
	}

	numChunks := int(binary.LittleEndian.Uint32(data[8:]))
	if len(data) < 12+numChunks*8 {
		return nil, ErrCorrupted
	}

	type chunkInfo struct {
		origSize int
		compSize int
	}
	chunks := make([]chunkInfo, numChunks)
	pos := 12
	for i := 0; i < numChunks; i++ {
		chunks[i].origSize = int(binary.LittleEndian.Uint32(data[pos:]))
		chunks[i].compSize = int(binary.LittleEndian.Uint32(data[pos+4:]))
		pos += 8
	}

	ids := make([]int, nids)
	workers := runtime.GOMAXPROCS(0)

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCh := make(chan error, numChunks)

	outPos := 0
	dataPos := pos
	for i := 0; i < numChunks; i++ {
		chunkData := data[dataPos : dataPos+chunks[i].compSize]
		outStart := outPos

		wg.Add(1)
		go func(chunk []byte, start int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			decoded, err := Decode(chunk)
			if err != nil {
				errCh <- err
				return
			}
			copy(ids[start:], decoded)
		}(chunkData, outStart)

		dataPos += chunks[i].compSize
		outPos += chunks[i].origSize
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return nil, err
	}

	return ids, nil
}
