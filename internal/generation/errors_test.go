package generation

import (
	"errors"
	"fmt"
	"testing"

	"photomotion/internal/providers/veo"
)

func TestClassifyInvalidKey(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", fmt.Errorf("%w: Requested entity was not found.", veo.ErrInvalidAPIKey))
	ge := classify(err)
	if ge.Kind != KindAPIKey {
		t.Fatalf("Kind = %v, want api key", ge.Kind)
	}
	if !errors.Is(ge, veo.ErrInvalidAPIKey) {
		t.Fatal("classified error should still unwrap to the veo sentinel")
	}
}

func TestClassifyDownloadError(t *testing.T) {
	ge := classify(&veo.DownloadError{StatusText: "502 Bad Gateway"})
	if ge.Kind != KindDownload {
		t.Fatalf("Kind = %v, want download", ge.Kind)
	}
}

func TestClassifyPassesThroughTypedErrors(t *testing.T) {
	orig := newError(KindEncoding, "The image payload is empty.", nil)
	ge := classify(fmt.Errorf("outer: %w", orig))
	if ge != orig {
		t.Fatalf("classify should pass through the existing *Error, got %v", ge)
	}
}

func TestClassifyFallback(t *testing.T) {
	ge := classify(errors.New("something odd"))
	if ge.Kind != KindUnclassified {
		t.Fatalf("Kind = %v, want unclassified", ge.Kind)
	}
	if ge.Message != "something odd" {
		t.Fatalf("Message = %q", ge.Message)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnclassified {
		t.Fatalf("KindOf(plain) = %v", got)
	}
	wrapped := fmt.Errorf("outer: %w", newError(KindMissingResult, "gone", nil))
	if got := KindOf(wrapped); got != KindMissingResult {
		t.Fatalf("KindOf(wrapped) = %v", got)
	}
}

func TestKindStrings(t *testing.T) {
	tests := map[Kind]string{
		KindUnclassified:  "error",
		KindEncoding:      "encoding_error",
		KindAPIKey:        "api_key_error",
		KindGeneration:    "generation_error",
		KindMissingResult: "missing_result_error",
		KindDownload:      "download_error",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
