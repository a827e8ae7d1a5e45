package sampler

import (
	"io"
	"os"

	"github.com/eterevsky/tokens-go/pkg/scan"
)

// PreloadedSampler reads a fixed, evenly-spaced selection of chunks
// from a file once at construction time and then replays them from
// memory. It trades sampling randomness for a single sequential-ish
// read pass over the file, used when the same fixed sample is scanned
// repeatedly against many candidate vocabularies (the optimizer's
// access pattern).
type PreloadedSampler struct {
	chunks    [][]byte
	totalSize uint64
	position  int
}

// NewPreloadedSampler reads up to maxSamples chunks of sampleSize
// bytes each, evenly spaced across filename, trimmed to the last
// paragraph boundary and to valid UTF-8.
func NewPreloadedSampler(filename string, sampleSize, maxSamples int) (*PreloadedSampler, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}
	dataLen := int(info.Size())

	var chunkSize, nsamples int
	switch {
	case dataLen <= sampleSize:
		chunkSize, nsamples = dataLen, 1
	case dataLen <= sampleSize*maxSamples:
		chunkSize, nsamples = sampleSize, dataLen/sampleSize
	default:
		chunkSize, nsamples = sampleSize, maxSamples
	}
	if nsamples < 1 {
		nsamples = 1
	}
	step := dataLen / nsamples

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chunks := make([][]byte, 0, nsamples)
	var total uint64
	for i := 0; i < nsamples; i++ {
		if _, err := f.Seek(int64(i*step), io.SeekStart); err != nil {
			return nil, err
		}
		buf := make([]byte, chunkSize)
		n, err := f.Read(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		buf = buf[:n]

		end := findParagraphEnd(buf, len(buf))
		buf = buf[:end]
		buf = extractValidUTF8Slice(buf)

		chunks = append(chunks, buf)
		total += uint64(len(buf))
	}

	return &PreloadedSampler{chunks: chunks, totalSize: total}, nil
}

// Next returns the next preloaded chunk, or (Sample{}, false) once
// every chunk has been replayed once.
func (s *PreloadedSampler) Next() (scan.Sample, bool) {
	if s.position >= len(s.chunks) {
		return scan.Sample{}, false
	}
	chunk := s.chunks[s.position]
	s.position++
	return scan.Sample{Data: chunk}, true
}

// TotalSize returns the combined size of every preloaded chunk.
func (s *PreloadedSampler) TotalSize() uint64 { return s.totalSize }
