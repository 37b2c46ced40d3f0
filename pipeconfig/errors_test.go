package pipeconfig

import (
	"errors"
	"strings"
	"testing"
)

func TestMultiErrorEmptyIsNilError(t *testing.T) {
	var m MultiError
	if m.HasErrors() {
		t.Error("HasErrors() on a zero-value MultiError = true")
	}
	if err := m.ErrOrNil(); err != nil {
		t.Errorf("ErrOrNil() = %v, want nil", err)
	}
}

func TestMultiErrorAddIgnoresNil(t *testing.T) {
	var m MultiError
	m.Add(nil)
	if m.HasErrors() {
		t.Error("Add(nil) should not record an error")
	}
}

func TestMultiErrorAccumulatesAndRenders(t *testing.T) {
	var m MultiError
	m.Add(errors.New("first problem"))
	m.Addf("second problem: %s", "detail")
	if !m.HasErrors() {
		t.Fatal("HasErrors() = false after two Adds")
	}
	if len(m.Errors()) != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", len(m.Errors()))
	}
	rendered := m.ErrOrNil().Error()
	if !strings.Contains(rendered, "first problem") || !strings.Contains(rendered, "second problem: detail") {
		t.Errorf("rendered error missing a recorded message: %s", rendered)
	}
	if !strings.Contains(rendered, strings.Repeat("-", 72)) {
		t.Error("rendered error is missing the horizontal rule between entries")
	}
}

func TestMultiErrorsReturnsACopy(t *testing.T) {
	var m MultiError
	m.Add(errors.New("x"))
	got := m.Errors()
	got[0] = errors.New("mutated")
	if m.Errors()[0].Error() != "x" {
		t.Error("Errors() leaked an aliasable slice backing the internal state")
	}
}
