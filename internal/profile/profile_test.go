package profile

import (
	"errors"
	"testing"

	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/validate"
)

func TestPresetsAreValid(t *testing.T) {
	for _, p := range All() {
		if err := validate.Profile(p.Profile); err != nil {
			t.Errorf("preset %s: %v", p.Name, err)
		}
		if p.Description == "" {
			t.Errorf("preset %s has no description", p.Name)
		}
	}
}

func TestGet(t *testing.T) {
	p, err := Get("")
	if err != nil || p.Name != DefaultName {
		t.Fatalf("Get(\"\") = %+v, %v", p, err)
	}
	if p.Profile.Quality != 80 || p.Profile.Format != "jpeg" || !p.Profile.PreserveAspectRatio {
		t.Fatalf("default preset %+v", p.Profile)
	}

	if _, err := Get("telegram"); !errors.Is(err, errs.ErrInvalidProfile) {
		t.Fatalf("unknown preset: %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %v", names)
		}
	}
}
