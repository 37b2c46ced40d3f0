package steps

import (
	"fmt"

	"github.com/grailbio/fqproc/demux"
	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/tagstore"
)

// Params is a step's raw configuration table, as decoded from one TOML
// step block by pipeconfig (keys are whatever the user wrote; values are
// go-toml/v2's generic decode types: string, int64, float64, bool,
// []any, map[string]any).
type Params map[string]any

// Factory builds one concrete Step from its decoded Params. env carries
// the shared objects a handful of step kinds need at construction time
// (the demux Router, mainly) that don't belong in the TOML table itself.
type Factory func(p Params, env Env) (Step, error)

// Env is the set of shared, pipeline-wide objects a step factory may need
// beyond its own Params.
type Env struct {
	Router *demux.Router
}

// Step is a local alias for pipestep.Step, so callers that only need to
// build steps don't have to import pipestep themselves.
type Step = pipestep.Step

// Registry maps a step's config-file name to the factory that builds it.
// list-steps and pipeconfig's step-construction pass both use this; it is
// the single place new step kinds must be wired in to become reachable
// from configuration.
var Registry = map[string]Factory{
	// trim
	"cut_start": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		n, err := reqInt(p, "n")
		if err != nil {
			return nil, err
		}
		return &CutStart{segStep: segStep{SegmentName: seg}, N: n}, nil
	},
	"cut_end": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		n, err := reqInt(p, "n")
		if err != nil {
			return nil, err
		}
		return &CutEnd{segStep: segStep{SegmentName: seg}, N: n}, nil
	},
	"max_len": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		n, err := reqInt(p, "n")
		if err != nil {
			return nil, err
		}
		return &MaxLen{segStep: segStep{SegmentName: seg}, N: n}, nil
	},
	"prefix": func(p Params, _ Env) (Step, error) {
		return newSeqOp(p, func(s segStep, seq []byte, q byte) Step {
			return &Prefix{segStep: s, Seq: seq, QualVal: q}
		})
	},
	"postfix": func(p Params, _ Env) (Step, error) {
		return newSeqOp(p, func(s segStep, seq []byte, q byte) Step {
			return &Postfix{segStep: s, Seq: seq, QualVal: q}
		})
	},
	"replace": func(p Params, _ Env) (Step, error) {
		return newSeqOp(p, func(s segStep, seq []byte, q byte) Step {
			return &Replace{segStep: s, Seq: seq, QualVal: q}
		})
	},
	"reverse_complement": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		return &ReverseComplement{segStep: segStep{SegmentName: seg}}, nil
	},
	"uppercase": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		return Uppercase(seg), nil
	},
	"lowercase": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		return Lowercase(seg), nil
	},
	"swap": func(p Params, _ Env) (Step, error) {
		a, err := reqString(p, "segment_a")
		if err != nil {
			return nil, err
		}
		b, err := reqString(p, "segment_b")
		if err != nil {
			return nil, err
		}
		return &Swap{SegmentA: a, SegmentB: b, IfTag: optString(p, "if_tag", "")}, nil
	},
	"merge_reads": func(p Params, _ Env) (Step, error) {
		a, err := reqString(p, "segment_a")
		if err != nil {
			return nil, err
		}
		b, err := reqString(p, "segment_b")
		if err != nil {
			return nil, err
		}
		return &MergeReads{SegmentA: a, SegmentB: b, Separator: []byte(optString(p, "separator", ""))}, nil
	},

	// filter
	"head": func(p Params, _ Env) (Step, error) {
		n, err := reqInt(p, "n")
		if err != nil {
			return nil, err
		}
		return &Head{N: n}, nil
	},
	"skip": func(p Params, _ Env) (Step, error) {
		n, err := reqInt(p, "n")
		if err != nil {
			return nil, err
		}
		return &Skip{N: n}, nil
	},
	"sample": func(p Params, _ Env) (Step, error) {
		prob, err := reqFloat(p, "p")
		if err != nil {
			return nil, err
		}
		return &Sample{P: prob, Seed: uint64(optInt(p, "seed", 0))}, nil
	},
	"by_bool_tag": func(p Params, _ Env) (Step, error) {
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		return &ByBoolTag{Tag: tag, Negate: optBool(p, "negate", false)}, nil
	},
	"by_numeric_tag": func(p Params, _ Env) (Step, error) {
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		cmp, err := reqString(p, "compare")
		if err != nil {
			return nil, err
		}
		c, err := parseCompare(cmp)
		if err != nil {
			return nil, err
		}
		threshold, err := reqFloat(p, "threshold")
		if err != nil {
			return nil, err
		}
		return &ByNumericTag{Tag: tag, Compare: c, Threshold: threshold}, nil
	},
	"min_total_len": func(p Params, _ Env) (Step, error) {
		n, err := reqInt(p, "n")
		if err != nil {
			return nil, err
		}
		return &MinTotalLen{N: n}, nil
	},
	"max_total_len": func(p Params, _ Env) (Step, error) {
		n, err := reqInt(p, "n")
		if err != nil {
			return nil, err
		}
		return &MaxTotalLen{N: n}, nil
	},
	"too_many_n": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		frac, err := reqFloat(p, "max_frac")
		if err != nil {
			return nil, err
		}
		return &TooManyN{segStep: segStep{SegmentName: seg}, MaxFrac: frac}, nil
	},
	"qualified_bases": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		minQual, err := reqInt(p, "min_qual")
		if err != nil {
			return nil, err
		}
		minFrac, err := reqFloat(p, "min_frac")
		if err != nil {
			return nil, err
		}
		return &QualifiedBases{segStep: segStep{SegmentName: seg}, MinQual: minQual, MinFrac: minFrac, Offset: optInt(p, "offset", 33)}, nil
	},
	"mean_quality": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		minMean, err := reqFloat(p, "min_mean")
		if err != nil {
			return nil, err
		}
		return &MeanQuality{segStep: segStep{SegmentName: seg}, MinMean: minMean, Offset: optInt(p, "offset", 33)}, nil
	},
	"duplicates": func(p Params, _ Env) (Step, error) {
		segs, err := reqStringSlice(p, "segments")
		if err != nil {
			return nil, err
		}
		return &Duplicates{
			Segments: segs,
			FPRate:   optFloat(p, "fp_rate", 0),
			Capacity: uint(optInt(p, "capacity", 1<<20)),
			Seed:     uint64(optInt(p, "seed", 0)),
		}, nil
	},

	// extract
	"iupac": func(p Params, _ Env) (Step, error) {
		return newDeclaringMatch(p, func(s segStep, d declStep, pattern []byte, mm int) Step {
			return &IUPACMatch{segStep: s, declStep: d, Pattern: pattern, MaxMismatch: mm}
		})
	},
	"iupac_suffix": func(p Params, _ Env) (Step, error) {
		return newDeclaringMatch(p, func(s segStep, d declStep, pattern []byte, mm int) Step {
			return &IUPACSuffix{segStep: s, declStep: d, Pattern: pattern, MaxMismatch: mm}
		})
	},
	"iupac_with_indel": func(p Params, _ Env) (Step, error) {
		return newDeclaringMatch(p, func(s segStep, d declStep, pattern []byte, mm int) Step {
			return &IUPACWithIndel{segStep: s, declStep: d, Pattern: pattern, MaxMismatch: mm}
		})
	},
	"anchor": func(p Params, _ Env) (Step, error) {
		return newDeclaringMatch(p, func(s segStep, d declStep, pattern []byte, mm int) Step {
			return &Anchor{segStep: s, declStep: d, Seq: pattern, MaxMismatch: mm}
		})
	},
	"regions": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindLocation)
		if err != nil {
			return nil, err
		}
		start, err := reqInt(p, "start")
		if err != nil {
			return nil, err
		}
		length, err := reqInt(p, "len")
		if err != nil {
			return nil, err
		}
		return &Regions{segStep: s, declStep: d, Start: start, Len: length}, nil
	},
	"regex": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindLocation)
		if err != nil {
			return nil, err
		}
		pattern, err := reqString(p, "pattern")
		if err != nil {
			return nil, err
		}
		return &Regex{segStep: s, declStep: d, Pattern: pattern}, nil
	},
	"longest_poly_x": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		base := optString(p, "base", "N")
		return &LongestPolyX{segStep: s, declStep: d, Base: base[0]}, nil
	},
	"length": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		return &Length{segStep: s, declStep: d}, nil
	},
	"gc_content": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		return &GCContent{segStep: s, declStep: d}, nil
	},
	"n_count": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		return &NCount{segStep: s, declStep: d}, nil
	},
	"base_content": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		base := optString(p, "base", "G")
		return &BaseContent{segStep: s, declStep: d, Base: base[0]}, nil
	},
	"expected_error": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		return &ExpectedError{segStep: s, declStep: d, Offset: optInt(p, "offset", 33)}, nil
	},
	"complexity": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		return &Complexity{segStep: s, declStep: d}, nil
	},
	"kmers": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindNumeric)
		if err != nil {
			return nil, err
		}
		set, err := reqStringSlice(p, "set")
		if err != nil {
			return nil, err
		}
		kmers := make([][]byte, len(set))
		for i, k := range set {
			kmers[i] = []byte(k)
		}
		return &Kmers{segStep: s, declStep: d, Set: kmers}, nil
	},
	"eval_expression": func(p Params, _ Env) (Step, error) {
		expr, err := reqString(p, "expression")
		if err != nil {
			return nil, err
		}
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		kind, err := reqKind(p, "result_kind")
		if err != nil {
			return nil, err
		}
		if kind == tagstore.KindLocation {
			return nil, fmt.Errorf(`field "result_kind": eval_expression cannot produce a location`)
		}
		return &EvalExpression{Expression: expr, TagLabel: tag, Kind: kind}, nil
	},
	"regions_to_length": func(p Params, _ Env) (Step, error) {
		src, err := reqString(p, "source_tag")
		if err != nil {
			return nil, err
		}
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		return &RegionsToLength{SourceTag: src, TagLabel: tag}, nil
	},
	"concat_tags": func(p Params, _ Env) (Step, error) {
		src, err := reqStringSlice(p, "source_tags")
		if err != nil {
			return nil, err
		}
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		return &ConcatTags{SourceTags: src, Separator: []byte(optString(p, "separator", "_")), TagLabel: tag}, nil
	},
	"other_file": func(p Params, _ Env) (Step, error) {
		s, d, err := newDecl(p, tagstore.KindBool)
		if err != nil {
			return nil, err
		}
		path, err := reqString(p, "path")
		if err != nil {
			return nil, err
		}
		return &OtherFile{segStep: s, declStep: d, Path: path}, nil
	},
	"other_file_by_name": func(p Params, _ Env) (Step, error) {
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		path, err := reqString(p, "path")
		if err != nil {
			return nil, err
		}
		return &OtherFileByName{TagLabel: tag, Kind: tagstore.KindBool, Path: path}, nil
	},

	// demultiplex (needs Env.Router)
	"demultiplex": func(p Params, env Env) (Step, error) {
		if env.Router == nil {
			return nil, fmt.Errorf("steps: demultiplex: no Router in Env")
		}
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		offset, err := reqInt(p, "offset")
		if err != nil {
			return nil, err
		}
		table, err := reqBarcodeTable(p, "barcodes")
		if err != nil {
			return nil, err
		}
		return &Demultiplex{
			segStep:         segStep{SegmentName: seg},
			BarcodeTable:    table,
			BarcodeOffset:   offset,
			MaxMismatch:     optInt(p, "max_mismatch", 0),
			OutputUnmatched: optBool(p, "output_unmatched", true),
			Router:          env.Router,
		}, nil
	},

	// writer / reporting sinks
	"store_tag_in_sequence": func(p Params, _ Env) (Step, error) {
		seg, err := reqString(p, "segment")
		if err != nil {
			return nil, err
		}
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		q := optString(p, "qual", "I")
		return &StoreTagInSequence{segStep: segStep{SegmentName: seg}, Tag: tag, QualVal: q[0]}, nil
	},
	"store_tag_in_comment": func(p Params, _ Env) (Step, error) {
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		return &StoreTagInComment{Tag: tag}, nil
	},
	"store_tag_location_in_comment": func(p Params, _ Env) (Step, error) {
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		return &StoreTagLocationInComment{Tag: tag}, nil
	},
	"store_tags_in_table": func(p Params, _ Env) (Step, error) {
		path, err := reqString(p, "path")
		if err != nil {
			return nil, err
		}
		return &StoreTagsInTable{Path: path}, nil
	},
	"store_tag_in_fastq": func(p Params, _ Env) (Step, error) {
		tag, err := reqString(p, "tag")
		if err != nil {
			return nil, err
		}
		prefix, err := reqString(p, "out_prefix")
		if err != nil {
			return nil, err
		}
		return &StoreTagInFastq{Tag: tag, OutPrefix: prefix}, nil
	},
	"write_reads": func(p Params, env Env) (Step, error) {
		if env.Router == nil {
			return nil, fmt.Errorf("steps: write_reads: no Router in Env")
		}
		prefix, err := reqString(p, "out_prefix")
		if err != nil {
			return nil, err
		}
		format, err := parseFormat(optString(p, "format", "fastq"))
		if err != nil {
			return nil, err
		}
		return &WriteReads{OutPrefix: prefix, Format: format, Router: env.Router, Level: optInt(p, "level", 0)}, nil
	},
}

// New builds the step named kind from p, using env for steps that need
// pipeline-shared objects.
func New(kind string, p Params, env Env) (Step, error) {
	f, ok := Registry[kind]
	if !ok {
		return nil, fmt.Errorf("steps: unknown step kind %q", kind)
	}
	s, err := f(p, env)
	if err != nil {
		return nil, fmt.Errorf("steps: %s: %w", kind, err)
	}
	return s, nil
}

// Names returns every registered step kind, for `list-steps`.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for k := range Registry {
		names = append(names, k)
	}
	return names
}
