package steps

import (
	"fmt"

	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/tagstore"
)

func reqString(p Params, key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
	return s, nil
}

func optString(p Params, key, def string) string {
	v, ok := p[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// asInt accepts any of go-toml/v2's numeric decode shapes (int64 is the
// common case; float64 shows up if the value came through a generic
// map[string]any built by hand rather than by the TOML decoder).
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func reqInt(p Params, key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	n, ok := asInt(v)
	if !ok {
		return 0, fmt.Errorf("field %q must be an integer, got %T", key, v)
	}
	return n, nil
}

func optInt(p Params, key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	n, ok := asInt(v)
	if !ok {
		return def
	}
	return n
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func reqFloat(p Params, key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	f, ok := asFloat(v)
	if !ok {
		return 0, fmt.Errorf("field %q must be a number, got %T", key, v)
	}
	return f, nil
}

func optFloat(p Params, key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	f, ok := asFloat(v)
	if !ok {
		return def
	}
	return f
}

func optBool(p Params, key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func reqStringSlice(p Params, key string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing required field %q", key)
	}
	items, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, fmt.Errorf("field %q must be an array, got %T", key, v)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("field %q[%d] must be a string, got %T", key, i, it)
		}
		out[i] = s
	}
	return out, nil
}

func reqKind(p Params, key string) (tagstore.Kind, error) {
	s, err := reqString(p, key)
	if err != nil {
		return tagstore.KindMissing, err
	}
	switch s {
	case "numeric":
		return tagstore.KindNumeric, nil
	case "bool":
		return tagstore.KindBool, nil
	case "string":
		return tagstore.KindString, nil
	case "location":
		return tagstore.KindLocation, nil
	}
	return tagstore.KindMissing, fmt.Errorf("field %q: unknown tag kind %q", key, s)
}

func parseCompare(s string) (NumericCompare, error) {
	switch s {
	case "lt":
		return CompareLess, nil
	case "le":
		return CompareLessEqual, nil
	case "gt":
		return CompareGreater, nil
	case "ge":
		return CompareGreaterEqual, nil
	case "eq":
		return CompareEqual, nil
	}
	return 0, fmt.Errorf("unknown compare operator %q", s)
}

func parseFormat(s string) (OutputFormat, error) {
	switch s {
	case "fastq":
		return FormatFastq, nil
	case "fasta":
		return FormatFasta, nil
	case "bam":
		return FormatBAM, nil
	}
	return 0, fmt.Errorf("unknown output format %q", s)
}

// newDecl builds the (segStep, declStep) pair shared by every
// single-segment, single-tag extract step. kind is fixed by the caller to
// whatever TagValue kind that step's own Apply actually writes (Numeric
// for the calc steps, Location for the region/pattern steps, Bool for
// other_file) — it is never read from the step's own config table, since
// that table's "kind" field is already the step's dispatch name (e.g.
// "length"), not a tag kind.
func newDecl(p Params, kind tagstore.Kind) (segStep, declStep, error) {
	seg, err := reqString(p, "segment")
	if err != nil {
		return segStep{}, declStep{}, err
	}
	tag, err := reqString(p, "tag")
	if err != nil {
		return segStep{}, declStep{}, err
	}
	return segStep{SegmentName: seg}, declStep{TagLabel: tag, Kind: kind}, nil
}

// newDeclaringMatch builds the (segStep, declStep, pattern, max_mismatch)
// quadruple shared by the sequence-matching extract steps (iupac,
// iupac_suffix, iupac_with_indel, anchor), all of which declare a Location
// tag.
func newDeclaringMatch(p Params, build func(segStep, declStep, []byte, int) Step) (Step, error) {
	seg, err := reqString(p, "segment")
	if err != nil {
		return nil, err
	}
	tag, err := reqString(p, "tag")
	if err != nil {
		return nil, err
	}
	pattern, err := reqString(p, "pattern")
	if err != nil {
		return nil, err
	}
	return build(segStep{SegmentName: seg}, declStep{TagLabel: tag, Kind: tagstore.KindLocation}, []byte(pattern), optInt(p, "max_mismatch", 0)), nil
}

// newSeqOp builds the (segStep, Seq, QualVal) triple shared by prefix,
// postfix, and replace.
func newSeqOp(p Params, build func(segStep, []byte, byte) Step) (Step, error) {
	seg, err := reqString(p, "segment")
	if err != nil {
		return nil, err
	}
	seq, err := reqString(p, "seq")
	if err != nil {
		return nil, err
	}
	q := optString(p, "qual", "I")
	return build(segStep{SegmentName: seg}, []byte(seq), q[0]), nil
}

func reqBarcodeTable(p Params, key string) ([]pipestep.BarcodeEntry, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing required field %q", key)
	}
	rows, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q must be an array of tables", key)
	}
	out := make([]pipestep.BarcodeEntry, len(rows))
	for i, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q[%d] must be a table", key, i)
		}
		barcode, err := reqString(m, "barcode")
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		output, err := reqString(m, "output")
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		out[i] = pipestep.BarcodeEntry{Barcode: []byte(barcode), Output: output}
	}
	return out, nil
}
