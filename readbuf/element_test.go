package readbuf

import (
	"bytes"
	"testing"
)

func TestElementBytes(t *testing.T) {
	arena := []byte("hello world")
	local := Local(0, 5)
	if got := string(local.Bytes(arena)); got != "hello" {
		t.Errorf("local.Bytes = %q, want %q", got, "hello")
	}

	owned := Owned([]byte("separate"))
	if got := string(owned.Bytes(arena)); got != "separate" {
		t.Errorf("owned.Bytes = %q, want %q", got, "separate")
	}
	if owned.IsLocal() {
		t.Error("owned element reports IsLocal")
	}
}

func TestElementOwnedIsIndependentCopy(t *testing.T) {
	src := []byte("ACGT")
	owned := Owned(src)
	src[0] = 'X'
	if got := string(owned.Bytes(nil)); got != "ACGT" {
		t.Errorf("mutating the source mutated the owned element: got %q", got)
	}
}

func TestElementCutStartCutEnd(t *testing.T) {
	arena := []byte("ACGTACGT")
	e := Local(0, 8)
	cut := e.CutStart(2)
	if got := string(cut.Bytes(arena)); got != "GTACGT" {
		t.Errorf("CutStart(2) = %q, want %q", got, "GTACGT")
	}
	cut2 := e.CutEnd(2)
	if got := string(cut2.Bytes(arena)); got != "ACGTAC" {
		t.Errorf("CutEnd(2) = %q, want %q", got, "ACGTAC")
	}
}

func TestElementPostfixRelocatesIntoArena(t *testing.T) {
	arena := []byte("ACGT")
	e := Local(0, 4)
	e2 := e.Postfix([]byte("NN"), &arena)
	if got := string(e2.Bytes(arena)); got != "ACGTNN" {
		t.Errorf("Postfix = %q, want %q", got, "ACGTNN")
	}
}

func TestElementReplaceReusesRangeWhenItFits(t *testing.T) {
	arena := []byte("ACGTACGT")
	e := Local(0, 8)
	before := len(arena)
	e2 := e.Replace([]byte("TTTT"), &arena)
	if len(arena) != before {
		t.Errorf("Replace with a same-or-shorter value grew the arena: before %d after %d", before, len(arena))
	}
	if got := string(e2.Bytes(arena)); got != "TTTT" {
		t.Errorf("Replace = %q, want %q", got, "TTTT")
	}
}

func TestElementReverseComplement(t *testing.T) {
	arena := []byte("ACGTN")
	e := Local(0, 5)
	e2 := e.ReverseComplement(arena)
	if got := string(e2.Bytes(arena)); got != "NACGT" {
		t.Errorf("ReverseComplement = %q, want %q", got, "NACGT")
	}
}

func TestSwapWithBothLocalSameSize(t *testing.T) {
	arenaA := []byte("AAAA")
	arenaB := []byte("CCCC")
	a := Local(0, 4)
	b := Local(0, 4)
	na, nb := SwapWith(a, b, &arenaA, &arenaB)
	if !bytes.Equal(na.Bytes(arenaA), []byte("CCCC")) {
		t.Errorf("swapped a = %q, want CCCC", na.Bytes(arenaA))
	}
	if !bytes.Equal(nb.Bytes(arenaB), []byte("AAAA")) {
		t.Errorf("swapped b = %q, want AAAA", nb.Bytes(arenaB))
	}
}
