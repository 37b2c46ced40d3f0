package steps

import (
	"testing"

	"github.com/grailbio/fqproc/tagstore"
)

func TestReqStringMissingAndWrongType(t *testing.T) {
	if _, err := reqString(Params{}, "segment"); err == nil {
		t.Error("reqString with missing key = nil, want error")
	}
	if _, err := reqString(Params{"segment": 5}, "segment"); err == nil {
		t.Error("reqString with non-string value = nil, want error")
	}
	s, err := reqString(Params{"segment": "read1"}, "segment")
	if err != nil || s != "read1" {
		t.Errorf("reqString() = %q, %v, want read1, nil", s, err)
	}
}

func TestAsIntAcceptsTOMLNumericShapes(t *testing.T) {
	cases := []any{int64(5), int(5), float64(5)}
	for _, v := range cases {
		n, ok := asInt(v)
		if !ok || n != 5 {
			t.Errorf("asInt(%v) = %d, %v, want 5, true", v, n, ok)
		}
	}
	if _, ok := asInt("5"); ok {
		t.Error("asInt(string) = true, want false")
	}
}

func TestReqKindParsesEachLiteral(t *testing.T) {
	cases := map[string]tagstore.Kind{
		"numeric":  tagstore.KindNumeric,
		"bool":     tagstore.KindBool,
		"string":   tagstore.KindString,
		"location": tagstore.KindLocation,
	}
	for lit, want := range cases {
		k, err := reqKind(Params{"kind": lit}, "kind")
		if err != nil || k != want {
			t.Errorf("reqKind(%q) = %v, %v, want %v, nil", lit, k, err, want)
		}
	}
	if _, err := reqKind(Params{"kind": "not_a_kind"}, "kind"); err == nil {
		t.Error("reqKind(not_a_kind) = nil error, want an error")
	}
}

func TestParseCompareAllOperators(t *testing.T) {
	cases := map[string]NumericCompare{
		"lt": CompareLess, "le": CompareLessEqual, "gt": CompareGreater,
		"ge": CompareGreaterEqual, "eq": CompareEqual,
	}
	for lit, want := range cases {
		got, err := parseCompare(lit)
		if err != nil || got != want {
			t.Errorf("parseCompare(%q) = %v, %v, want %v, nil", lit, got, err, want)
		}
	}
	if _, err := parseCompare(">="); err == nil {
		t.Error(`parseCompare(">=") = nil error, want an error (only lt/le/gt/ge/eq are valid)`)
	}
}

func TestParseFormatAllValues(t *testing.T) {
	cases := map[string]OutputFormat{"fastq": FormatFastq, "fasta": FormatFasta, "bam": FormatBAM}
	for lit, want := range cases {
		got, err := parseFormat(lit)
		if err != nil || got != want {
			t.Errorf("parseFormat(%q) = %v, %v, want %v, nil", lit, got, err, want)
		}
	}
	if _, err := parseFormat("sam"); err == nil {
		t.Error("parseFormat(sam) = nil error, want an error")
	}
}

func TestNewDeclUsesCallerSuppliedKindNotConfig(t *testing.T) {
	// The "kind" field here is the step dispatch name (as it would be in a
	// real config), not a tag kind; newDecl must not try to parse it.
	p := Params{"segment": "read1", "tag": "len1", "kind": "length"}
	seg, decl, err := newDecl(p, tagstore.KindNumeric)
	if err != nil {
		t.Fatalf("newDecl() = %v", err)
	}
	if seg.SegmentName != "read1" || decl.TagLabel != "len1" || decl.Kind != tagstore.KindNumeric {
		t.Errorf("newDecl() = %+v, %+v", seg, decl)
	}
}

func TestReqBarcodeTableParsesRows(t *testing.T) {
	rows := []any{
		map[string]any{"barcode": "AAAA", "output": "sample1"},
		map[string]any{"barcode": "CCCC", "output": "sample2"},
	}
	entries, err := reqBarcodeTable(Params{"barcodes": rows}, "barcodes")
	if err != nil {
		t.Fatalf("reqBarcodeTable() = %v", err)
	}
	if len(entries) != 2 || entries[0].Output != "sample1" || string(entries[0].Barcode) != "AAAA" {
		t.Errorf("reqBarcodeTable() = %+v", entries)
	}
}
