package pipeconfig

import (
	"fmt"
	"strings"
)

// MultiError accumulates every configuration error found during
// validation instead of aborting at the first, per spec.md §4.7 ("All
// errors are accumulated and reported together when possible") and the
// CLI contract's horizontal-rule-separated multi-section error block
// (spec.md §6/§7). grailbio/base/errors.Once (the teacher's own
// accumulator, used throughout for fatal IO errors — see runtime package)
// only ever keeps the first error, which is the wrong shape for
// configuration validation; MultiError is the bespoke collector this
// spec requirement needs.
type MultiError struct {
	errs []error
}

// Add records err, a no-op if err is nil.
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	m.errs = append(m.errs, err)
}

// Addf is a convenience wrapper around Add(fmt.Errorf(...)).
func (m *MultiError) Addf(format string, args ...any) {
	m.Add(fmt.Errorf(format, args...))
}

// HasErrors reports whether any error has been recorded.
func (m *MultiError) HasErrors() bool { return len(m.errs) > 0 }

// ErrOrNil returns m as an error if any were recorded, else nil — the
// usual "return at the end of a validation pass" idiom.
func (m *MultiError) ErrOrNil() error {
	if len(m.errs) == 0 {
		return nil
	}
	return m
}

// Error renders every recorded error, in order, separated by a horizontal
// rule, matching the CLI's "multi-section error block" requirement.
func (m *MultiError) Error() string {
	lines := make([]string, len(m.errs))
	for i, e := range m.errs {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "\n"+strings.Repeat("-", 72)+"\n")
}

// Errors returns every recorded error, in order.
func (m *MultiError) Errors() []error {
	out := make([]error, len(m.errs))
	copy(out, m.errs)
	return out
}
