package readbuf

import "testing"

func TestBlockAppendOwnedAndValidate(t *testing.T) {
	b := NewBlock(64)
	b.AppendOwned([]byte("r1"), []byte("ACGT"), []byte("IIII"))
	b.AppendOwned([]byte("r2"), []byte("AC"), []byte("II"))
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestBlockValidateCatchesSeqQualMismatch(t *testing.T) {
	b := NewBlock(64)
	b.Entries = append(b.Entries, Read{Name: Owned([]byte("r1")), Seq: Owned([]byte("ACGT")), Qual: Owned([]byte("III"))})
	if err := b.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for mismatched seq/qual length")
	}
}

func TestBlockAppendLocal(t *testing.T) {
	b := NewBlock(64)
	b.Arena = append(b.Arena, "nameACGTIIII"...)
	b.AppendLocal([2]int{0, 4}, [2]int{4, 8}, [2]int{8, 12})
	if got := string(b.Entries[0].NameBytes(b.Arena)); got != "name" {
		t.Errorf("name = %q, want %q", got, "name")
	}
	if got := string(b.Entries[0].SeqBytes(b.Arena)); got != "ACGT" {
		t.Errorf("seq = %q, want %q", got, "ACGT")
	}
}

func TestBlockApplyBoolFilter(t *testing.T) {
	b := NewBlock(64)
	b.AppendOwned([]byte("r1"), []byte("A"), []byte("I"))
	b.AppendOwned([]byte("r2"), []byte("C"), []byte("I"))
	b.AppendOwned([]byte("r3"), []byte("G"), []byte("I"))
	b.ApplyBoolFilter([]bool{true, false, true})
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if got := string(b.Entries[0].NameBytes(b.Arena)); got != "r1" {
		t.Errorf("entry 0 = %q, want r1", got)
	}
	if got := string(b.Entries[1].NameBytes(b.Arena)); got != "r3" {
		t.Errorf("entry 1 = %q, want r3", got)
	}
}

func TestBlockApplyBoolFilterPanicsOnLengthMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on keep length mismatch")
		}
	}()
	b := NewBlock(64)
	b.AppendOwned([]byte("r1"), []byte("A"), []byte("I"))
	b.ApplyBoolFilter([]bool{true, false})
}

func TestBlockDrain(t *testing.T) {
	b := NewBlock(64)
	for _, n := range []string{"r1", "r2", "r3", "r4"} {
		b.AppendOwned([]byte(n), []byte("A"), []byte("I"))
	}
	b.Drain(1, 3)
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	if got := string(b.Entries[0].NameBytes(b.Arena)); got != "r1" {
		t.Errorf("entry 0 = %q, want r1", got)
	}
	if got := string(b.Entries[1].NameBytes(b.Arena)); got != "r4" {
		t.Errorf("entry 1 = %q, want r4", got)
	}
}
