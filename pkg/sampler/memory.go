package sampler

import (
	"os"

	"github.com/eterevsky/tokens-go/pkg/scan"
)

// MemorySampler holds the entire corpus in memory and walks it once,
// front to back, in chunkSize-ish pieces — each non-final piece is
// trimmed back to the nearest paragraph boundary inside its window; a
// piece whose window holds no boundary keeps its full length and may
// end mid-paragraph.
type MemorySampler struct {
	data      []byte
	chunkSize int
	position  int
}

// NewMemorySampler wraps data directly; the sampler does not copy it.
func NewMemorySampler(data []byte, chunkSize int) *MemorySampler {
	return &MemorySampler{data: data, chunkSize: chunkSize}
}

// NewMemorySamplerFromString is a convenience constructor over a
// string corpus, useful in tests and for small built-in samples.
func NewMemorySamplerFromString(data string, chunkSize int) *MemorySampler {
	return NewMemorySampler([]byte(data), chunkSize)
}

// LoadMemorySampler reads filename entirely into memory.
func LoadMemorySampler(filename string, chunkSize int) (*MemorySampler, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewMemorySampler(data, chunkSize), nil
}

// Next returns the next chunk of the corpus, or (Sample{}, false) once
// the corpus is exhausted.
func (s *MemorySampler) Next() (scan.Sample, bool) {
	if s.position >= len(s.data) {
		return scan.Sample{}, false
	}
	start := s.position
	end := start + s.chunkSize
	if end > len(s.data) {
		end = len(s.data)
	}

	paragraphEnd := findParagraphEnd(s.data, end)
	if end < len(s.data) && paragraphEnd > start {
		end = paragraphEnd
	}

	s.position = end
	return scan.Sample{Data: s.data[start:end]}, true
}

// TotalSize returns the full corpus size in bytes.
func (s *MemorySampler) TotalSize() uint64 { return uint64(len(s.data)) }
