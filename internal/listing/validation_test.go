package listing

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSearch(t *testing.T) {
	for _, ok := range []string{"", "   ", "abc", "  abcd  ", "ção"} {
		if err := ValidateSearch(ok, 3); err != nil {
			t.Fatalf("%q should be valid: %v", ok, err)
		}
	}
	for _, bad := range []string{"a", "ab", " ab ", "çã"} {
		err := ValidateSearch(bad, 3)
		if err == nil {
			t.Fatalf("%q should be rejected", bad)
		}
		if !errors.Is(err, ErrInvalidFilter) {
			t.Fatalf("expected ErrInvalidFilter, got %v", err)
		}
	}
}

func TestEntityValidate(t *testing.T) {
	e := postingEntity()

	err := e.Validate(FilterState{"search": {"ab"}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if verr.Field != "search" || !strings.Contains(verr.Message, "3") {
		t.Fatalf("unexpected validation error: %+v", verr)
	}

	err = e.Validate(FilterState{"team": {"1", "2"}})
	if !errors.As(err, &verr) || verr.Field != "team" {
		t.Fatalf("expected team validation error, got %v", err)
	}

	if err := e.Validate(FilterState{"team": {"1", " "}, "search": {""}, "city": {"a", "b"}}); err != nil {
		t.Fatalf("expected valid state, got %v", err)
	}
}

func TestEntityValidateUsesConfiguredMinimum(t *testing.T) {
	e := postingEntity()
	e.MinSearchLength = 5
	if err := e.Validate(FilterState{"search": {"abcd"}}); err == nil {
		t.Fatal("expected rejection below configured minimum")
	}
	if err := e.Validate(FilterState{"search": {"abcde"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
