// Package report implements C13: assembling the finalize-time fragments
// every report aggregator (and, if it ever declares one, a demultiplex
// step) contributes into one ordered JSON document, keyed by the
// user-supplied report name and, within each name, by report_no
// (spec.md §4.6 "Report entries are keyed by the user-supplied name").
//
// JSON field order isn't significant to spec.md itself, but a report
// rendered in report_no order is far easier for a human to diff between
// runs than one reordered by Go map iteration, so Document implements its
// own MarshalJSON rather than handing a map[string]any to encoding/json.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"sort"

	"github.com/grailbio/fqproc/pipestep"
)

// Entry is one named metric within a Group.
type Entry struct {
	Name     string
	ReportNo int
	Data     any
}

// Group is every metric contributed under one user-supplied report name.
type Group struct {
	Name    string
	Entries []Entry
}

// Document is the full, ordered report.
type Document struct {
	Groups []Group
}

// Assemble collects every non-nil finalize result into a Document, with
// groups ordered by their lowest report_no and entries in report_no order
// within each group.
func Assemble(results []*pipestep.FinalizeReportResult) *Document {
	var order []string
	groups := make(map[string]*Group)
	for _, r := range results {
		if r == nil || r.GroupName == "" {
			continue
		}
		g, ok := groups[r.GroupName]
		if !ok {
			g = &Group{Name: r.GroupName}
			groups[r.GroupName] = g
			order = append(order, r.GroupName)
		}
		g.Entries = append(g.Entries, Entry{Name: r.Name, ReportNo: r.ReportNo, Data: r.Data})
	}
	doc := &Document{}
	minNo := make(map[string]int, len(order))
	for _, name := range order {
		g := groups[name]
		sort.SliceStable(g.Entries, func(i, j int) bool { return g.Entries[i].ReportNo < g.Entries[j].ReportNo })
		lo := g.Entries[0].ReportNo
		for _, e := range g.Entries {
			if e.ReportNo < lo {
				lo = e.ReportNo
			}
		}
		minNo[name] = lo
		doc.Groups = append(doc.Groups, *g)
	}
	sort.SliceStable(doc.Groups, func(i, j int) bool {
		return minNo[doc.Groups[i].Name] < minNo[doc.Groups[j].Name]
	})
	return doc
}

// MarshalJSON renders {"<group>": {"<metric>": data, ...}, ...} preserving
// Assemble's ordering rather than encoding/json's default (alphabetical,
// via map[string]any) ordering.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for gi, g := range d.Groups {
		if gi > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(g.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteByte('{')
		for ei, e := range g.Entries {
			if ei > 0 {
				buf.WriteByte(',')
			}
			ename, err := json.Marshal(e.Name)
			if err != nil {
				return nil, err
			}
			buf.Write(ename)
			buf.WriteByte(':')
			edata, err := json.Marshal(e.Data)
			if err != nil {
				return nil, fmt.Errorf("report: marshaling %s.%s: %w", g.Name, e.Name, err)
			}
			buf.Write(edata)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WriteJSON renders doc as indented JSON to path.
func WriteJSON(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshaling document: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("report: writing %s: %w", path, err)
	}
	return nil
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>fqproc report</title></head>
<body>
<h1>fqproc report</h1>
{{range .Groups}}
<h2>{{.Name}}</h2>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>metric</th><th>value</th></tr>
{{range .Entries}}<tr><td>{{.Name}}</td><td><pre>{{printf "%v" .Data}}</pre></td></tr>
{{end}}</table>
{{end}}
</body></html>
`))

// WriteHTML renders a minimal human-readable HTML view of doc to path.
func WriteHTML(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()
	if err := htmlTemplate.Execute(f, doc); err != nil {
		return fmt.Errorf("report: rendering %s: %w", path, err)
	}
	return nil
}
