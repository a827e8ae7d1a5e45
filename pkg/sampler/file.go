package sampler

import (
	"io"
	"math/rand"
	"os"

	"github.com/eterevsky/tokens-go/pkg/scan"
)

// FileSampler reads sampleSize-byte windows directly from disk without
// loading the whole file into memory. With maxSamples nil, it reads
// sequentially from the start until EOF; with maxSamples set, it
// instead seeks to maxSamples random offsets, which is the faster path
// for estimating a huge corpus without reading all of it.
type FileSampler struct {
	file        *os.File
	fileSize    uint64
	sampleSize  int
	maxSamples  *int
	samplesLeft int
	rng         *rand.Rand
}

// NewFileSampler opens filename for reading. maxSamples, when non-nil,
// switches the sampler to random-seek mode.
func NewFileSampler(filename string, sampleSize int, maxSamples *int) (*FileSampler, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	fs := &FileSampler{
		file:       f,
		fileSize:   uint64(info.Size()),
		sampleSize: sampleSize,
		maxSamples: maxSamples,
	}
	if maxSamples != nil {
		fs.samplesLeft = *maxSamples
		fs.rng = rand.New(rand.NewSource(42))
	}
	return fs, nil
}

// TotalSize reports the byte budget this sampler will scan: the full
// file size in sequential mode, or sampleSize*maxSamples in
// random-seek mode.
func (s *FileSampler) TotalSize() uint64 {
	if s.maxSamples != nil {
		return uint64(s.sampleSize) * uint64(*s.maxSamples)
	}
	return s.fileSize
}

// Next returns the next sample, or (Sample{}, false) once exhausted.
func (s *FileSampler) Next() (scan.Sample, bool) {
	if s.maxSamples != nil {
		return s.nextRandom()
	}
	return s.nextSequential()
}

func (s *FileSampler) nextRandom() (scan.Sample, bool) {
	if s.samplesLeft <= 0 {
		return scan.Sample{}, false
	}
	s.samplesLeft--

	maxSeek := int64(s.fileSize) - int64(s.sampleSize)
	if maxSeek < 0 {
		maxSeek = 0
	}
	start := s.rng.Int63n(maxSeek + 1)

	if _, err := s.file.Seek(start, io.SeekStart); err != nil {
		return scan.Sample{}, false
	}
	buf := make([]byte, s.sampleSize)
	n, err := s.file.Read(buf)
	if err != nil && err != io.EOF {
		return scan.Sample{}, false
	}
	buf = buf[:n]
	end := findParagraphEnd(buf, len(buf))
	return scan.Sample{Data: buf[:end]}, true
}

func (s *FileSampler) nextSequential() (scan.Sample, bool) {
	buf := make([]byte, s.sampleSize)
	n, err := s.file.Read(buf)
	if n == 0 || (err != nil && err != io.EOF) {
		return scan.Sample{}, false
	}
	buf = buf[:n]

	if n < s.sampleSize {
		return scan.Sample{Data: buf}, true
	}

	end := findParagraphEnd(buf, n)
	if end < n {
		if _, serr := s.file.Seek(int64(end-n), io.SeekCurrent); serr != nil {
			return scan.Sample{}, false
		}
		buf = buf[:end]
	}
	return scan.Sample{Data: buf}, true
}

// Close releases the underlying file handle.
func (s *FileSampler) Close() error { return s.file.Close() }
