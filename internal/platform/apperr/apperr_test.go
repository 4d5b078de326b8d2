package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFrom_PreservesWrappedError(t *testing.T) {
	base := NotFound("MEDICINE_NOT_FOUND", "medicamento no encontrado")
	wrapped := fmt.Errorf("load medicine: %w", base)

	got := From(wrapped)
	if got.Code != "MEDICINE_NOT_FOUND" || got.Status != http.StatusNotFound {
		t.Fatalf("expected wrapped apperr, got %+v", got)
	}
}

func TestFrom_UnknownErrorBecomesInternal(t *testing.T) {
	got := From(errors.New("boom"))
	if got.Status != http.StatusInternalServerError || got.Code != "INTERNAL_ERROR" {
		t.Fatalf("expected internal error, got %+v", got)
	}
	if got.Message == "boom" {
		t.Fatalf("internal details must not leak to the client")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("take dose: %w", BadRequest("DOSE_TOO_EARLY", "aguarde"))
	if !IsCode(err, "DOSE_TOO_EARLY") {
		t.Fatalf("expected DOSE_TOO_EARLY")
	}
	if IsCode(err, "DELETE_FORBIDDEN") {
		t.Fatalf("unexpected code match")
	}
}
