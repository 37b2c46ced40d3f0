package steps

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/fqproc/pipestep"
	"github.com/grailbio/fqproc/tagstore"
	kzip "github.com/klauspost/compress/gzip"
)

func TestStoreTagInSequenceAppendsValue(t *testing.T) {
	s := &StoreTagInSequence{segStep: segStep{SegmentName: "read1"}, Tag: "umi", QualVal: 'I'}
	s.ValidateSegments(oneSegmentInput())
	c := newCombined(t, []string{"ACGT"})
	c.Tags.Declare("umi", 1)
	c.Tags.Set("umi", 0, tagstore.String([]byte("TTTT")))
	s.Apply(c, oneSegmentInput(), 1)
	if got := seqAt(c, 0, 0); got != "ACGTTTTT" {
		t.Errorf("seq = %q, want ACGTTTTT", got)
	}
}

func TestStoreTagInCommentAppendsToEveryName(t *testing.T) {
	s := &StoreTagInComment{Tag: "umi"}
	c := newCombined(t, []string{"ACGT"})
	c.Tags.Declare("umi", 1)
	c.Tags.Set("umi", 0, tagstore.String([]byte("TTTT")))
	s.Apply(c, oneSegmentInput(), 1)
	name := string(c.Segments[0].Entries[0].Name.Bytes(c.Segments[0].Arena))
	if !strings.HasSuffix(name, " TTTT") {
		t.Errorf("name = %q, want a trailing ' TTTT'", name)
	}
}

func TestStoreTagLocationInCommentFormatsRange(t *testing.T) {
	s := &StoreTagLocationInComment{Tag: "bc"}
	c := newCombined(t, []string{"ACGT"})
	c.Tags.Declare("bc", 1)
	c.Tags.Set("bc", 0, tagstore.LocationValue(tagstore.Hits{
		{Sequence: []byte("AC"), Loc: &tagstore.Location{SegmentIndex: 0, Start: 0, Len: 2}},
	}))
	s.Apply(c, oneSegmentInput(), 1)
	name := string(c.Segments[0].Entries[0].Name.Bytes(c.Segments[0].Arena))
	if !strings.HasSuffix(name, " bc=0-2") {
		t.Errorf("name = %q, want a trailing ' bc=0-2'", name)
	}
}

func TestStoreTagsInTableWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	s := &StoreTagsInTable{Path: "tags.tsv"}
	if _, err := s.Init(oneSegmentInput(), "", dir, '_', false); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	c := newCombined(t, []string{"ACGT"})
	c.Tags.Declare("len", 1)
	c.Tags.Set("len", 0, tagstore.Numeric(4))
	s.Apply(c, oneSegmentInput(), 1)
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "tags.tsv"))
	if err != nil {
		t.Fatalf("ReadFile() = %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "ReadName\tlen" {
		t.Fatalf("lines = %v, want a header row then one data row", lines)
	}
	if !strings.HasSuffix(lines[1], "\t4") {
		t.Errorf("data row = %q, want trailing tab-4", lines[1])
	}
}

func readGzipLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open(%s) = %v", path, err)
	}
	defer f.Close()
	gr, err := kzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader() = %v", err)
	}
	defer gr.Close()
	var lines []string
	sc := bufio.NewScanner(gr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scanning %s: %v", path, err)
	}
	return lines
}

func TestWriteReadsWritesFastqWithoutRouter(t *testing.T) {
	dir := t.TempDir()
	s := &WriteReads{OutPrefix: "out", Format: FormatFastq}
	input := oneSegmentInput()
	if _, err := s.Init(input, "", dir, '_', false); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	c := newCombined(t, []string{"ACGT"})
	if _, _, err := s.Apply(c, input, 1); err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("Finalize() = %v", err)
	}
	lines := readGzipLines(t, filepath.Join(dir, "out.unmatched.read1.fastq.gz"))
	if len(lines) != 4 || lines[1] != "ACGT" {
		t.Fatalf("lines = %v, want a 4-line FASTQ record with sequence ACGT", lines)
	}
}

var _ pipestep.Step = (*WriteReads)(nil)
