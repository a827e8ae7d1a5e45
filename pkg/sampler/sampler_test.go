package sampler

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFindParagraphEndTrimsToBoundary(t *testing.T) {
	data := []byte("first paragraph\n\nsecond para")
	end := findParagraphEnd(data, len(data))
	if string(data[:end]) != "first paragraph\n\n" {
		t.Errorf("findParagraphEnd: got %q, want %q", data[:end], "first paragraph\n\n")
	}
}

func TestFindParagraphEndNoBoundaryReturnsOriginalEnd(t *testing.T) {
	data := []byte("no boundary here")
	end := findParagraphEnd(data, len(data))
	if end != len(data) {
		t.Errorf("findParagraphEnd: got %d, want %d (unchanged)", end, len(data))
	}
}

func TestExtractValidUTF8SliceTrimsPartialRunes(t *testing.T) {
	full := []byte("héllé")
	// Cut in the middle of the multi-byte 'é' at both ends.
	partial := full[2 : len(full)-1]
	got := extractValidUTF8Slice(partial)
	if len(got) == 0 {
		t.Fatalf("extractValidUTF8Slice trimmed everything")
	}
	for i := 0; i < len(got); {
		if !isCharStart(got[i]) {
			t.Fatalf("extractValidUTF8Slice left a partial rune: %x", got)
		}
		i++
	}
}

// TestMemorySamplerNeverSplitsAParagraph is scenario S8: every
// non-final chunk MemorySampler returns must end exactly at a
// paragraph boundary when one exists within the chunk window.
func TestMemorySamplerNeverSplitsAParagraph(t *testing.T) {
	corpus := strings.Repeat("alpha beta gamma.\n\n", 20)
	s := NewMemorySamplerFromString(corpus, 37)

	var total int
	for {
		sample, ok := s.Next()
		if !ok {
			break
		}
		total += len(sample.Data)
		if total < len(corpus) && len(sample.Data) > 0 {
			if !strings.HasSuffix(string(sample.Data), "\n\n") {
				t.Fatalf("non-final chunk did not end on a paragraph boundary: %q", sample.Data)
			}
		}
	}
	if total != len(corpus) {
		t.Errorf("MemorySampler dropped bytes: got %d, want %d", total, len(corpus))
	}
}

func TestMemorySamplerTotalSize(t *testing.T) {
	s := NewMemorySamplerFromString("0123456789", 4)
	if s.TotalSize() != 10 {
		t.Errorf("TotalSize: got %d, want 10", s.TotalSize())
	}
}

func TestPreloadedSamplerCoversWholeSmallFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.txt")
	content := "short file contents"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := NewPreloadedSampler(path, 1024, 4)
	if err != nil {
		t.Fatalf("NewPreloadedSampler: %v", err)
	}

	sample, ok := s.Next()
	if !ok {
		t.Fatalf("expected at least one sample")
	}
	if string(sample.Data) != content {
		t.Errorf("got %q, want %q", sample.Data, content)
	}
	if _, ok := s.Next(); ok {
		t.Errorf("expected exactly one chunk for a file smaller than sample_size")
	}
}

func TestFileSamplerSequentialReadsWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.txt")
	content := strings.Repeat("x", 5000)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s, err := NewFileSampler(path, 1024, nil)
	if err != nil {
		t.Fatalf("NewFileSampler: %v", err)
	}
	defer s.Close()

	var total int
	for {
		sample, ok := s.Next()
		if !ok {
			break
		}
		total += len(sample.Data)
	}
	if total != len(content) {
		t.Errorf("FileSampler sequential mode read %d bytes, want %d", total, len(content))
	}
}
