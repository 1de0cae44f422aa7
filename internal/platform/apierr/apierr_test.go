package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromUnwrapsWrappedError(t *testing.T) {
	base := New(http.StatusNotFound, "not_found", errors.New("analysis not found"))
	wrapped := fmt.Errorf("load: %w", base)

	got := From(wrapped, "internal")
	if got.Status != http.StatusNotFound || got.Code != "not_found" {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestFromFallback(t *testing.T) {
	got := From(errors.New("boom"), "load_failed")
	if got.Status != http.StatusInternalServerError || got.Code != "load_failed" {
		t.Fatalf("unexpected: %+v", got)
	}
	if got.Error() != "boom" {
		t.Fatalf("message: %q", got.Error())
	}
	if From(nil, "x") != nil {
		t.Fatalf("expected nil for nil error")
	}
}
