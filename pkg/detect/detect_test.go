package detect

import (
	"testing"

	"github.com/eterevsky/tokens-go/pkg/token"
)

func TestDetectProse(t *testing.T) {
	text := []byte("The quick brown fox jumps over the lazy dog. This is a sample of natural language text that should be detected as prose.")

	profile := Detect(text)

	if profile.Category != CategoryProse {
		t.Errorf("category: got %v, want CategoryProse", profile.Category)
	}
	if profile.ASCIIRatio < 0.85 {
		t.Errorf("ASCII ratio too low: %f", profile.ASCIIRatio)
	}
	if profile.StructuredScore > 0.4 {
		t.Errorf("structured score too high for prose: %f", profile.StructuredScore)
	}
}

func TestDetectCode(t *testing.T) {
	code := []byte(`func main() {
	fmt.Println("Hello, World!")
	for i := 0; i < 10; i++ {
		result := compute(i)
		fmt.Printf("%d: %d\n", i, result)
	}
}`)

	profile := Detect(code)

	if profile.Category != CategoryStructured {
		t.Errorf("category: got %v, want CategoryStructured", profile.Category)
	}
	if profile.StructuredScore < 0.4 {
		t.Errorf("structured score too low: %f", profile.StructuredScore)
	}
}

func TestDetectJSON(t *testing.T) {
	doc := []byte(`{
	"name": "test",
	"value": 123,
	"items": ["a", "b", "c"],
	"nested": { "foo": "bar" }
}`)

	profile := Detect(doc)

	if profile.DataFmt != DataFormatJSON {
		t.Errorf("data format: got %v, want DataFormatJSON", profile.DataFmt)
	}
	if profile.Category != CategoryStructured {
		t.Errorf("category: got %v, want CategoryStructured", profile.Category)
	}
}

func TestDetectHTML(t *testing.T) {
	doc := []byte("<!DOCTYPE html><html><head><title>x</title></head><body><p>hi</p></body></html>")

	profile := Detect(doc)

	if profile.Markup != MarkupHTML {
		t.Errorf("markup: got %v, want MarkupHTML", profile.Markup)
	}
	if profile.Category != CategoryMarkup {
		t.Errorf("category: got %v, want CategoryMarkup", profile.Category)
	}
}

func TestDetectBinary(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		// A pseudo-random-looking, high-entropy, non-ASCII byte stream.
		data[i] = byte((i*2654435761 + 17) >> 3)
	}

	profile := Detect(data)

	if profile.Category == CategoryProse {
		t.Errorf("category: high-entropy binary data should not be classified as prose, got %v", profile.Category)
	}
}

func TestDetectEmptyIsBinary(t *testing.T) {
	profile := Detect(nil)
	if profile.Category != CategoryBinary {
		t.Errorf("category: got %v, want CategoryBinary for empty input", profile.Category)
	}
}

func TestSuggestProcessingForProse(t *testing.T) {
	text := []byte("This is ordinary English prose, written the way a person would write it in an email or an article.")

	processing, splitParagraphs := SuggestProcessing(text)
	if processing != token.CapsWords {
		t.Errorf("processing: got %v, want CapsWords", processing)
	}
	if !splitParagraphs {
		t.Errorf("splitParagraphs: got false, want true for prose")
	}
}

func TestSuggestProcessingForCode(t *testing.T) {
	code := []byte(`package main

import "fmt"

func main() {
	for i := 0; i < 10; i++ {
		fmt.Println(i)
	}
}`)

	processing, splitParagraphs := SuggestProcessing(code)
	if processing != token.Raw {
		t.Errorf("processing: got %v, want Raw for code", processing)
	}
	if splitParagraphs {
		t.Errorf("splitParagraphs: got true, want false for code")
	}
}
