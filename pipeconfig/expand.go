package pipeconfig

import (
	"fmt"

	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/steps"
)

// expandStep turns one raw step definition into zero or more concrete
// steps. Most kinds expand 1:1 via steps.New; "report" and
// "extract_region" are meta-steps expanded here, per spec.md §4.7 "expand
// meta-steps (Report into aggregators, extract_region into
// extract_regions)" — performed after basic validation but before the
// producer/consumer-graph check, as spec.md §9 DESIGN NOTES directs.
func expandStep(raw map[string]any, env steps.Env, reportNo *int) ([]pipestep.Step, error) {
	kind, _ := raw["kind"].(string)
	switch kind {
	case "report":
		return expandReport(raw, reportNo)
	case "extract_region":
		rewritten := make(map[string]any, len(raw))
		for k, v := range raw {
			rewritten[k] = v
		}
		rewritten["kind"] = "regions"
		st, err := steps.New("regions", rewritten, env)
		if err != nil {
			return nil, err
		}
		return []pipestep.Step{st}, nil
	case "":
		return nil, fmt.Errorf("step missing required field %q", "kind")
	default:
		st, err := steps.New(kind, raw, env)
		if err != nil {
			return nil, err
		}
		return []pipestep.Step{st}, nil
	}
}

// expandReport is never executed as a step itself (spec.md §4.6 "the
// Report itself never executes"); it is rewritten into the concrete
// aggregators its flags select, each sharing the user-supplied report
// name and each getting the next slot in the run-wide, stable report_no
// sequence (*reportNo is shared across every "report" step in the
// pipeline so ordering is global, not per-step).
func expandReport(raw map[string]any, reportNo *int) ([]pipestep.Step, error) {
	name, _ := raw["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("report: missing required field %q", "name")
	}
	next := func() int {
		n := *reportNo
		*reportNo++
		return n
	}
	var out []pipestep.Step
	if b, _ := raw["count"].(bool); b {
		rc := &steps.ReportCount{}
		setReportMeta(rc, name, next())
		out = append(out, rc)
	}
	if b, _ := raw["length_distribution"].(bool); b {
		seg, _ := raw["segment"].(string)
		if seg == "" {
			return nil, fmt.Errorf("report %q: length_distribution requires %q", name, "segment")
		}
		rld := &steps.ReportLengthDistribution{SegmentName: seg}
		setReportMeta(rld, name, next())
		out = append(out, rld)
	}
	if b, _ := raw["duplicate_count"].(bool); b {
		tag, _ := raw["dup_tag"].(string)
		if tag == "" {
			return nil, fmt.Errorf("report %q: duplicate_count requires %q", name, "dup_tag")
		}
		rdc := &steps.ReportDuplicateCount{DupTag: tag}
		setReportMeta(rdc, name, next())
		out = append(out, rdc)
	}
	if b, _ := raw["duplicate_fragment_count"].(bool); b {
		tag, _ := raw["dup_tag"].(string)
		if tag == "" {
			return nil, fmt.Errorf("report %q: duplicate_fragment_count requires %q", name, "dup_tag")
		}
		rdfc := &steps.ReportDuplicateFragmentCount{DupTag: tag}
		setReportMeta(rdfc, name, next())
		out = append(out, rdfc)
	}
	if b, _ := raw["base_statistics"].(bool); b {
		seg, _ := raw["segment"].(string)
		if seg == "" {
			return nil, fmt.Errorf("report %q: base_statistics requires %q", name, "segment")
		}
		rbs := &steps.ReportBaseStatistics{SegmentName: seg}
		setReportMeta(rbs, name, next())
		out = append(out, rbs)
	}
	if b, _ := raw["count_oligos"].(bool); b {
		seg, _ := raw["segment"].(string)
		oligosRaw, ok := raw["oligos"].([]any)
		if seg == "" || !ok {
			return nil, fmt.Errorf("report %q: count_oligos requires %q and %q", name, "segment", "oligos")
		}
		oligos := make([][]byte, len(oligosRaw))
		for i, o := range oligosRaw {
			s, _ := o.(string)
			oligos[i] = []byte(s)
		}
		rco := &steps.ReportCountOligos{SegmentName: seg, Oligos: oligos}
		setReportMeta(rco, name, next())
		out = append(out, rco)
	}
	if b, _ := raw["tag_histogram"].(bool); b {
		tag, _ := raw["histogram_tag"].(string)
		if tag == "" {
			return nil, fmt.Errorf("report %q: tag_histogram requires %q", name, "histogram_tag")
		}
		rth := &steps.ReportTagHistogram{Tag: tag}
		setReportMeta(rth, name, next())
		out = append(out, rth)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("report %q: no aggregator flags set (count, length_distribution, duplicate_count, duplicate_fragment_count, base_statistics, count_oligos, tag_histogram)", name)
	}
	return out, nil
}

// reportMeta is satisfied by every *steps.ReportXxx aggregator via its
// embedded (unexported) reportBase, which implements SetReportMeta.
type reportMeta interface {
	SetReportMeta(name string, no int)
}

// setReportMeta assigns the user-facing group name and global report_no
// slot to a freshly constructed aggregator.
func setReportMeta(s pipestep.Step, name string, no int) {
	if m, ok := s.(reportMeta); ok {
		m.SetReportMeta(name, no)
	}
}
