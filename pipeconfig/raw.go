// Package pipeconfig implements C7 (the config validator) and C11 (the
// TOML config loader): decoding a pipeline definition from TOML into
// RawConfig, validating it against spec.md §4.7's ordered rule set, and
// building the validated Config the runtime (package runtime) consumes.
//
// Grounded on the teacher's "accumulate every error, report together"
// idiom (grailbio/base/errors.Once, encoding/pam/pamutil/index.go's
// validation style) generalized into MultiError so configuration problems
// are never reported one at a time.
package pipeconfig

// RawConfig is the TOML-decoded, pre-validation representation of a
// pipeline (spec.md GLOSSARY "RawConfig"). A hand-built RawConfig (as in
// tests) and one produced by Load take the identical path through
// Validate.
type RawConfig struct {
	Input      RawInput         `toml:"input"`
	Output     RawOutput        `toml:"output"`
	Validation RawValidation    `toml:"validation"`
	Report     RawReport        `toml:"report"`
	Steps      []map[string]any `toml:"steps"`
}

// RawInput describes the input segments and the files backing them.
type RawInput struct {
	// Segments names every parallel input stream, in order (e.g.
	// ["read1", "read2", "index1"]).
	Segments []string `toml:"segments"`
	// Format is "fastq", "fasta", or "bam"; mixing formats within one
	// segment is forbidden (spec.md §6).
	Format string `toml:"format"`
	// Compression is "auto" (infer from extension), "none", "gzip", or
	// "zstd".
	Compression string `toml:"compression"`
	// BlockSize is the target read count per block; must be a multiple
	// of len(Segments) when Interleaved is set.
	BlockSize int `toml:"block_size"`
	// Interleaved puts every segment's reads in one file, in fixed
	// rotation.
	Interleaved bool `toml:"interleaved"`
	// FakeQual is decoded into Config.FakeQual (default 'I'). The FASTA
	// reader does not read it: FASTA quality strings are always
	// synthesized from a fixed placeholder byte.
	FakeQual string `toml:"fake_qual"`
	// IncludeMapped/IncludeUnmapped are decoded but nothing reads them; a
	// BAM input is not filtered by mapping state.
	IncludeMapped   bool `toml:"include_mapped"`
	IncludeUnmapped bool `toml:"include_unmapped"`
	// Files lists one entry per segment (or, if Interleaved, one entry
	// whose Segment is ignored and whose Path holds every segment's
	// reads in rotation).
	Files []RawInputFile `toml:"files"`
}

// RawInputFile is one physical file backing a segment.
type RawInputFile struct {
	Segment string `toml:"segment"`
	Path    string `toml:"path"`
	// Format optionally overrides RawInput.Format for this file; empty
	// means "use RawInput.Format".
	Format string `toml:"format"`
}

// RawOutput describes where and how writer-family steps emit output.
type RawOutput struct {
	Prefix         string `toml:"prefix"`
	Dir            string `toml:"dir"`
	Separator      string `toml:"separator"`
	AllowOverwrite bool   `toml:"allow_overwrite"`
	// Stdout directs a single interleaved stream to standard output,
	// mutually exclusive with file outputs (spec.md §6).
	Stdout bool `toml:"stdout"`
}

// RawValidation toggles optional input-data validation passes.
type RawValidation struct {
	// CheckPairedNames requires every segment's read name (up to the
	// first whitespace or /1, /2 suffix) to match the first segment's,
	// catching the "paired-read-name mismatch" data error (spec.md §7).
	CheckPairedNames bool `toml:"check_paired_names"`
}

// RawReport names the run's JSON (and optional HTML) report destination.
type RawReport struct {
	Path     string `toml:"path"`
	HTMLPath string `toml:"html_path"`
}
