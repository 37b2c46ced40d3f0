package steps

import (
	"testing"

	"github.com/grailbio/fqproc/tagstore"
)

// TestNewBuildsEveryDeclaringStepKindFromRealisticConfig guards against the
// newDecl "kind" field collision: each of these step kinds' own config
// table uses "kind" for dispatch (the same key New itself was looked up
// under), so the declared tag's Kind must never be read back out of p.
func TestNewBuildsEveryDeclaringStepKindFromRealisticConfig(t *testing.T) {
	cases := []struct {
		kind   string
		params Params
		want   tagstore.Kind
	}{
		{"regions", Params{"kind": "regions", "segment": "read1", "tag": "t", "start": int64(0), "len": int64(4)}, tagstore.KindLocation},
		{"regex", Params{"kind": "regex", "segment": "read1", "tag": "t", "pattern": "AC.T"}, tagstore.KindLocation},
		{"longest_poly_x", Params{"kind": "longest_poly_x", "segment": "read1", "tag": "t"}, tagstore.KindNumeric},
		{"length", Params{"kind": "length", "segment": "read1", "tag": "t"}, tagstore.KindNumeric},
		{"gc_content", Params{"kind": "gc_content", "segment": "read1", "tag": "t"}, tagstore.KindNumeric},
		{"n_count", Params{"kind": "n_count", "segment": "read1", "tag": "t"}, tagstore.KindNumeric},
		{"base_content", Params{"kind": "base_content", "segment": "read1", "tag": "t"}, tagstore.KindNumeric},
		{"expected_error", Params{"kind": "expected_error", "segment": "read1", "tag": "t"}, tagstore.KindNumeric},
		{"complexity", Params{"kind": "complexity", "segment": "read1", "tag": "t"}, tagstore.KindNumeric},
		{"kmers", Params{"kind": "kmers", "segment": "read1", "tag": "t", "set": []any{"AA"}}, tagstore.KindNumeric},
		{"other_file", Params{"kind": "other_file", "segment": "read1", "tag": "t", "path": "/dev/null"}, tagstore.KindBool},
	}
	for _, tc := range cases {
		step, err := New(tc.kind, tc.params, Env{})
		if err != nil {
			t.Fatalf("New(%q) = %v, want a constructed step", tc.kind, err)
		}
		decl, ok := step.DeclaresTag()
		if !ok {
			t.Fatalf("New(%q).DeclaresTag() = false, want true", tc.kind)
		}
		if decl.Kind != tc.want {
			t.Errorf("New(%q).DeclaresTag().Kind = %v, want %v", tc.kind, decl.Kind, tc.want)
		}
	}
}

func TestNewEvalExpressionUsesResultKindNotKind(t *testing.T) {
	step, err := New("eval_expression", Params{
		"kind":        "eval_expression",
		"expression":  "len_read1",
		"tag":         "t",
		"result_kind": "numeric",
	}, Env{})
	if err != nil {
		t.Fatalf("New(eval_expression) = %v", err)
	}
	decl, _ := step.DeclaresTag()
	if decl.Kind != tagstore.KindNumeric {
		t.Errorf("DeclaresTag().Kind = %v, want KindNumeric", decl.Kind)
	}
}

func TestNewUnknownKindErrors(t *testing.T) {
	if _, err := New("not_a_real_kind", Params{}, Env{}); err == nil {
		t.Fatal("New(not_a_real_kind) = nil, want an error")
	}
}

func TestNamesIncludesEveryRegisteredKind(t *testing.T) {
	names := Names()
	if len(names) != len(Registry) {
		t.Fatalf("len(Names()) = %d, want %d", len(names), len(Registry))
	}
	found := make(map[string]bool, len(names))
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"length", "regions", "write_reads", "demultiplex"} {
		if !found[want] {
			t.Errorf("Names() missing %q", want)
		}
	}
}
