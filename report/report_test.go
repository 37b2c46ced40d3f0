package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/fqproc/pipestep"
)

func TestAssembleOrdersGroupsAndEntriesByReportNo(t *testing.T) {
	results := []*pipestep.FinalizeReportResult{
		{GroupName: "lengths", Name: "length_distribution", ReportNo: 2, Data: map[string]int{"50": 3}},
		{GroupName: "counts", Name: "molecule_count", ReportNo: 0, Data: 42},
		{GroupName: "lengths", Name: "count", ReportNo: 1, Data: 7},
		nil,
	}
	doc := Assemble(results)
	if len(doc.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(doc.Groups))
	}
	if doc.Groups[0].Name != "counts" {
		t.Errorf("Groups[0].Name = %q, want counts (lowest report_no)", doc.Groups[0].Name)
	}
	if doc.Groups[1].Name != "lengths" {
		t.Errorf("Groups[1].Name = %q, want lengths", doc.Groups[1].Name)
	}
	lengths := doc.Groups[1]
	if len(lengths.Entries) != 2 || lengths.Entries[0].Name != "count" || lengths.Entries[1].Name != "length_distribution" {
		t.Errorf("lengths.Entries = %+v, want [count, length_distribution] in report_no order", lengths.Entries)
	}
}

func TestAssembleSkipsNilAndUnnamedResults(t *testing.T) {
	doc := Assemble([]*pipestep.FinalizeReportResult{nil, {GroupName: "", Name: "x", Data: 1}})
	if len(doc.Groups) != 0 {
		t.Errorf("len(Groups) = %d, want 0", len(doc.Groups))
	}
}

func TestDocumentMarshalJSONPreservesOrder(t *testing.T) {
	doc := Assemble([]*pipestep.FinalizeReportResult{
		{GroupName: "z", Name: "a", ReportNo: 1, Data: 1},
		{GroupName: "a", Name: "b", ReportNo: 0, Data: 2},
	})
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() = %v", err)
	}
	s := string(data)
	if strings.Index(s, `"a"`) > strings.Index(s, `"z"`) {
		t.Errorf("expected group %q before %q in %s", "a", "z", s)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round-trip unmarshal failed: %v", err)
	}
	if decoded["a"]["b"].(float64) != 2 {
		t.Errorf("decoded a.b = %v, want 2", decoded["a"]["b"])
	}
}

func TestWriteJSON(t *testing.T) {
	doc := Assemble([]*pipestep.FinalizeReportResult{
		{GroupName: "counts", Name: "molecule_count", ReportNo: 0, Data: 3},
	})
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteJSON(path, doc); err != nil {
		t.Fatalf("WriteJSON() = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() = %v", err)
	}
	var decoded map[string]map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal written file: %v", err)
	}
	if decoded["counts"]["molecule_count"].(float64) != 3 {
		t.Errorf("counts.molecule_count = %v, want 3", decoded["counts"]["molecule_count"])
	}
}

func TestWriteHTML(t *testing.T) {
	doc := Assemble([]*pipestep.FinalizeReportResult{
		{GroupName: "counts", Name: "molecule_count", ReportNo: 0, Data: 3},
	})
	path := filepath.Join(t.TempDir(), "report.html")
	if err := WriteHTML(path, doc); err != nil {
		t.Fatalf("WriteHTML() = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() = %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "counts") || !strings.Contains(s, "molecule_count") {
		t.Errorf("rendered HTML missing expected content: %s", s)
	}
}
