// Package sampler provides corpus-sampling strategies satisfying
// pkg/scan's Sampler interface: a full in-memory pass (MemorySampler),
// sequential reads, or random fixed-size windows, directly from disk
// (FileSampler),
// and a fixed, pre-read selection of evenly-spaced chunks
// (PreloadedSampler).
package sampler

// isCharStart reports whether b can start a UTF-8 rune: either an
// ASCII byte or the lead byte of a multi-byte sequence, never a
// continuation byte (0x80-0xBF).
func isCharStart(b byte) bool {
	return b < 0x80 || b >= 0xC0
}

// extractValidUTF8Slice drops continuation bytes from the start of
// data and, when data ends in a non-ASCII byte, drops the whole last
// multi-byte rune, complete or not, so the remaining bytes start and
// end on rune boundaries. Invalid bytes in the middle are kept.
func extractValidUTF8Slice(data []byte) []byte {
	start := 0
	for start < len(data) && !isCharStart(data[start]) {
		start++
	}
	end := len(data)
	if end > start && data[end-1] >= 0x80 {
		end--
		for end > start && !isCharStart(data[end]) {
			end--
		}
	}
	return data[start:end]
}

// findParagraphEnd walks backward from end looking for a "\n\n"
// boundary, so a chunk boundary never splits a paragraph in the
// middle. It returns end unchanged if no boundary is found within the
// chunk (the chunk is either too short or has no blank line at all).
func findParagraphEnd(data []byte, end int) int {
	pos := end
	for pos >= 2 && (data[pos-1] != '\n' || data[pos-2] != '\n') {
		pos--
	}
	if pos < 2 {
		return end
	}
	return pos
}
