package domain

import (
	"errors"
	"strings"
	"testing"
	"unicode"
)

func TestNormalizeMarca(t *testing.T) {
	cases := map[string]string{
		"pp xdc":     "PPXDC",
		"  pr-abc  ": "PR-ABC",
		"p\tt\nz x":  "PTZX",
		"PPXDC":      "PPXDC",
		"":           "",
		"   ":        "",
	}
	for in, want := range cases {
		if got := NormalizeMarca(in); got != want {
			t.Errorf("NormalizeMarca(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeMarca_Properties(t *testing.T) {
	inputs := []string{"pp xdc", " a b c ", "\tpt-mxa\r\n", "Çessna 1", "ok", "x  y   z"}
	for _, in := range inputs {
		got := NormalizeMarca(in)
		if strings.IndexFunc(got, unicode.IsSpace) != -1 {
			t.Errorf("NormalizeMarca(%q) = %q contains whitespace", in, got)
		}
		if strings.ToUpper(got) != got {
			t.Errorf("NormalizeMarca(%q) = %q is not upper case", in, got)
		}
		if NormalizeMarca(got) != got {
			t.Errorf("NormalizeMarca not idempotent for %q", in)
		}
	}
}

func TestValidateMarca_Empty(t *testing.T) {
	err := ValidateMarca("")
	if !errors.Is(err, ErrMarcaEmpty) {
		t.Fatalf("expected ErrMarcaEmpty, got %v", err)
	}
	if !errors.Is(err, ErrInvalidMarca) {
		t.Fatalf("expected ErrInvalidMarca, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "marca" {
		t.Fatalf("expected ValidationError on marca, got %v", err)
	}
}

func TestParseMarca(t *testing.T) {
	got, err := ParseMarca(" pp xdc ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "PPXDC" {
		t.Fatalf("expected PPXDC, got %q", got)
	}

	if _, err := ParseMarca(" \t "); !errors.Is(err, ErrInvalidMarca) {
		t.Fatalf("expected ErrInvalidMarca for blank input, got %v", err)
	}
}
