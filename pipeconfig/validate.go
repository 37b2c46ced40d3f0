package pipeconfig

import (
	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/steps"
	"github.com/grailbio/fqproc/tagstore"
)

// Config is the fully validated, expanded pipeline the runtime consumes:
// every step concrete and constructed, segment names resolved, and the
// demultiplex router populated. Building one is the only way the runtime
// package accepts a pipeline, so it never needs to re-check anything
// Validate already proved.
type Config struct {
	Input     pipestep.InputInfo
	Files     []RawInputFile
	Format    string
	Compression string
	BlockSize int
	Interleaved bool
	FakeQual  byte
	CheckPairedNames bool

	Steps  []pipestep.Step
	Router *demux.Router

	OutputPrefix   string
	OutputDir      string
	Separator      byte
	AllowOverwrite bool
	Stdout         bool

	ReportPath     string
	ReportHTMLPath string
}

// Validate runs the full ordered check spec.md §4.7 describes, returning a
// ready-to-run *Config or a *MultiError listing everything wrong. The
// order matters: later checks assume earlier ones held (e.g. per-step
// segment resolution assumes the segment list itself is already sound), so
// a single early fatal condition (no segments at all) short-circuits
// before steps are even expanded.
func Validate(raw *RawConfig) (*Config, error) {
	var errs MultiError

	// 1. segment definitions
	if len(raw.Input.Segments) == 0 {
		errs.Addf("input: at least one segment must be declared")
		return nil, errs.ErrOrNil()
	}
	seen := make(map[string]bool, len(raw.Input.Segments))
	for _, s := range raw.Input.Segments {
		if s == "" {
			errs.Addf("input: segment names must be non-empty")
			continue
		}
		if seen[s] {
			errs.Addf("input: duplicate segment name %q", s)
		}
		seen[s] = true
	}
	input := pipestep.InputInfo{SegmentNames: raw.Input.Segments}

	// 2. output destination viability
	if raw.Output.Prefix == "" && !raw.Output.Stdout {
		errs.Addf("output: must set either prefix or stdout")
	}
	if raw.Output.Prefix != "" && raw.Output.Stdout {
		errs.Addf("output: prefix and stdout are mutually exclusive")
	}
	sep := byte('_')
	if raw.Output.Separator != "" {
		sep = raw.Output.Separator[0]
	}

	// 3. report flag/step coherence: every "report" pseudo-step needs at
	// least one aggregator flag and its required fields; expandReport
	// itself enforces this, so nothing extra is needed here beyond
	// running expansion below and folding its errors in.

	// 4. barcode table validity happens inside steps.New's
	// reqBarcodeTable/factory path; folded in during step construction.

	if errs.HasErrors() {
		return nil, &errs
	}

	router := demux.NewRouter()
	env := steps.Env{Router: router}

	// 5. expand meta-steps (report, extract_region) into concrete steps.
	var built []pipestep.Step
	reportNo := 0
	for i, rawStep := range raw.Steps {
		expanded, err := expandStep(rawStep, env, &reportNo)
		if err != nil {
			errs.Addf("step %d: %w", i, err)
			continue
		}
		built = append(built, expanded...)
	}
	if errs.HasErrors() {
		return nil, &errs
	}

	// 6. per-step segment resolution.
	for i, st := range built {
		if err := st.ValidateSegments(input); err != nil {
			errs.Addf("step %d (%s): %w", i, st.Name(), err)
		}
	}

	// 7. cross-step validation (each step sees the full, expanded list).
	for i, st := range built {
		if err := st.ValidateOthers(input, built, i); err != nil {
			errs.Addf("step %d (%s): %w", i, st.Name(), err)
		}
	}

	// 8. tag producer/consumer graph + 9. unused-tag check, in one pass
	// over the pipeline in declaration order (spec.md §4.3 "a tag must be
	// declared before it is used, and every declared tag must be used or
	// explicitly dropped by a later step").
	live := make(map[string]tagstore.Kind)
	declaredAt := make(map[string]int)
	usedAfterDecl := make(map[string]bool)
	for i, st := range built {
		for _, use := range st.UsesTags(live) {
			kind, ok := live[use.Label]
			if !ok {
				errs.Addf("step %d (%s): uses undeclared tag %q", i, st.Name(), use.Label)
				continue
			}
			if !use.Kinds.Accepts(kind) {
				errs.Addf("step %d (%s): tag %q has kind %s, not accepted", i, st.Name(), use.Label, kind)
				continue
			}
			usedAfterDecl[use.Label] = true
		}
		if st.RemovesAllTags() {
			for label := range live {
				delete(live, label)
			}
		}
		for _, label := range st.RemovesTags() {
			delete(live, label)
		}
		if decl, ok := st.DeclaresTag(); ok {
			if _, exists := declaredAt[decl.Label]; exists {
				errs.Addf("step %d (%s): redeclares tag %q", i, st.Name(), decl.Label)
			}
			live[decl.Label] = decl.Kind
			declaredAt[decl.Label] = i
		}
	}
	for label, idx := range declaredAt {
		if !usedAfterDecl[label] {
			errs.Addf("step %d: tag %q is declared but never used", idx, label)
		}
	}

	// 10. file-format consistency: Files entries (per-segment input files)
	// must either be absent (single multiplexed format/compression pair
	// applies to every segment) or cover every declared segment exactly
	// once.
	if len(raw.Input.Files) > 0 {
		bySeg := make(map[string]bool, len(raw.Input.Files))
		for _, f := range raw.Input.Files {
			if !seen[f.Segment] {
				errs.Addf("input: file entry references unknown segment %q", f.Segment)
				continue
			}
			if bySeg[f.Segment] {
				errs.Addf("input: duplicate file entry for segment %q", f.Segment)
			}
			bySeg[f.Segment] = true
		}
		for s := range seen {
			if !bySeg[s] {
				errs.Addf("input: segment %q has no file entry", s)
			}
		}
	}

	// 11. name-collision check: output names a demultiplex step registers
	// must not collide with each other in a way that would overwrite one
	// output file with another (the router already merges same-name
	// outputs across multiple demultiplex steps by design; the only real
	// collision is an output name equal to "unmatched", the bucket name
	// write_reads always uses for reads no barcode matched).
	for _, name := range router.Names() {
		if name == "unmatched" {
			errs.Addf("demultiplex: %q is a reserved output name", name)
		}
	}

	if errs.HasErrors() {
		return nil, &errs
	}

	cfg := &Config{
		Input:            input,
		Files:            raw.Input.Files,
		Format:           raw.Input.Format,
		Compression:      raw.Input.Compression,
		BlockSize:        raw.Input.BlockSize,
		Interleaved:      raw.Input.Interleaved,
		CheckPairedNames: raw.Validation.CheckPairedNames,
		Steps:            built,
		Router:           router,
		OutputPrefix:     raw.Output.Prefix,
		OutputDir:        raw.Output.Dir,
		Separator:        sep,
		AllowOverwrite:   raw.Output.AllowOverwrite,
		Stdout:           raw.Output.Stdout,
		ReportPath:       raw.Report.Path,
		ReportHTMLPath:   raw.Report.HTMLPath,
	}
	if raw.Input.FakeQual != "" {
		cfg.FakeQual = raw.Input.FakeQual[0]
	} else {
		cfg.FakeQual = 'I'
	}
	return cfg, nil
}
