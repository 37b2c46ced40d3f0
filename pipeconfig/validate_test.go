package pipeconfig

import (
	"strings"
	"testing"
)

func minimalValidRaw() *RawConfig {
	return &RawConfig{
		Input: RawInput{
			Segments: []string{"read1", "read2"},
			Format:   "fastq",
		},
		Output: RawOutput{Prefix: "out"},
		Steps: []map[string]any{
			{"kind": "write_reads", "out_prefix": "reads"},
		},
	}
}

func TestValidateMinimalConfig(t *testing.T) {
	cfg, err := Validate(minimalValidRaw())
	if err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if len(cfg.Steps) != 1 {
		t.Fatalf("len(Steps) = %d, want 1", len(cfg.Steps))
	}
	if cfg.Separator != '_' {
		t.Errorf("default Separator = %q, want '_'", cfg.Separator)
	}
	if cfg.FakeQual != 'I' {
		t.Errorf("default FakeQual = %q, want 'I'", cfg.FakeQual)
	}
}

func TestValidateRejectsNoSegments(t *testing.T) {
	raw := minimalValidRaw()
	raw.Input.Segments = nil
	if _, err := Validate(raw); err == nil {
		t.Fatal("Validate() with no segments = nil, want error")
	}
}

func TestValidateRejectsDuplicateSegmentNames(t *testing.T) {
	raw := minimalValidRaw()
	raw.Input.Segments = []string{"read1", "read1"}
	_, err := Validate(raw)
	if err == nil || !strings.Contains(err.Error(), "duplicate segment name") {
		t.Fatalf("Validate() = %v, want a duplicate-segment-name error", err)
	}
}

func TestValidateRequiresPrefixOrStdout(t *testing.T) {
	raw := minimalValidRaw()
	raw.Output.Prefix = ""
	_, err := Validate(raw)
	if err == nil || !strings.Contains(err.Error(), "prefix or stdout") {
		t.Fatalf("Validate() = %v, want a prefix-or-stdout error", err)
	}
}

func TestValidateRejectsPrefixAndStdoutTogether(t *testing.T) {
	raw := minimalValidRaw()
	raw.Output.Stdout = true
	_, err := Validate(raw)
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("Validate() = %v, want a mutually-exclusive error", err)
	}
}

func TestValidateRejectsUnknownSegmentInStep(t *testing.T) {
	raw := minimalValidRaw()
	raw.Steps = append(raw.Steps, map[string]any{"kind": "uppercase", "segment": "no_such_segment"})
	_, err := Validate(raw)
	if err == nil || !strings.Contains(err.Error(), "unknown segment") {
		t.Fatalf("Validate() = %v, want an unknown-segment error", err)
	}
}

func TestValidateTagProducerConsumerGraph(t *testing.T) {
	raw := minimalValidRaw()
	// by_numeric_tag references "score" before anything declares it.
	raw.Steps = append([]map[string]any{
		{"kind": "by_numeric_tag", "tag": "score", "compare": "ge", "threshold": 1.0},
	}, raw.Steps...)
	_, err := Validate(raw)
	if err == nil || !strings.Contains(err.Error(), "undeclared tag") {
		t.Fatalf("Validate() = %v, want an undeclared-tag error", err)
	}
}

func TestValidateFlagsDeclaredButUnusedTag(t *testing.T) {
	raw := minimalValidRaw()
	raw.Steps = append([]map[string]any{
		{"kind": "length", "segment": "read1", "tag": "len_read1"},
	}, raw.Steps...)
	_, err := Validate(raw)
	if err == nil || !strings.Contains(err.Error(), "never used") {
		t.Fatalf("Validate() = %v, want a tag-never-used error", err)
	}
}

func TestValidateAllowsDeclareThenConsume(t *testing.T) {
	raw := minimalValidRaw()
	raw.Steps = []map[string]any{
		{"kind": "length", "segment": "read1", "tag": "len_read1"},
		{"kind": "by_numeric_tag", "tag": "len_read1", "compare": "ge", "threshold": 10.0},
		{"kind": "write_reads", "out_prefix": "reads"},
	}
	if _, err := Validate(raw); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateExpandsReportMetaStep(t *testing.T) {
	raw := minimalValidRaw()
	raw.Steps = append([]map[string]any{
		{"kind": "report", "name": "summary", "count": true},
	}, raw.Steps...)
	cfg, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if len(cfg.Steps) != 2 {
		t.Fatalf("len(Steps) = %d, want 2 (expanded report aggregator + write_reads)", len(cfg.Steps))
	}
}

func TestValidateFileFormatConsistency(t *testing.T) {
	raw := minimalValidRaw()
	raw.Input.Files = []RawInputFile{
		{Segment: "read1", Path: "r1.fastq"},
	}
	_, err := Validate(raw)
	if err == nil || !strings.Contains(err.Error(), "no file entry") {
		t.Fatalf("Validate() = %v, want a missing-file-entry error for read2", err)
	}
}

func TestValidateFileFormatConsistencyCoversEverySegment(t *testing.T) {
	raw := minimalValidRaw()
	raw.Input.Files = []RawInputFile{
		{Segment: "read1", Path: "r1.fastq"},
		{Segment: "read2", Path: "r2.fastq"},
	}
	if _, err := Validate(raw); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateAccumulatesMultipleErrors(t *testing.T) {
	raw := minimalValidRaw()
	raw.Input.Segments = []string{"read1", "read1"}
	raw.Output.Prefix = ""
	_, err := Validate(raw)
	if err == nil {
		t.Fatal("Validate() = nil, want an error")
	}
	me, ok := err.(*MultiError)
	if !ok {
		t.Fatalf("Validate() error is %T, want *MultiError", err)
	}
	if len(me.Errors()) < 2 {
		t.Errorf("len(Errors()) = %d, want at least 2 accumulated errors", len(me.Errors()))
	}
}
