package filter

import "testing"

func TestNewPicksExactAtZeroFalsePositiveRate(t *testing.T) {
	f := New(1, 100, 0)
	if _, ok := f.(*exact); !ok {
		t.Fatalf("New(seed, cap, 0) = %T, want *exact", f)
	}
}

func TestNewPicksApproxOtherwise(t *testing.T) {
	f := New(1, 100, 0.01)
	if _, ok := f.(*approx); !ok {
		t.Fatalf("New(seed, cap, 0.01) = %T, want *approx", f)
	}
}

func testFilterExactSemantics(t *testing.T, f Filter) {
	t.Helper()
	e1 := Entry{[]byte("AC"), []byte("GT")}
	e2 := Entry{[]byte("ACG"), []byte("T")}

	if f.Contains(e1) {
		t.Fatal("fresh filter reports Contains(e1) = true")
	}
	if was := f.ContainsOrInsert(e1); was {
		t.Fatal("first ContainsOrInsert(e1) reported already-present")
	}
	if !f.Contains(e1) {
		t.Fatal("Contains(e1) = false after insert")
	}
	if f.Contains(e2) {
		t.Fatal("canonicalKey must distinguish (AC,GT) from (ACG,T); Contains(e2) = true before any insert")
	}
	if was := f.ContainsOrInsert(e1); !was {
		t.Error("second ContainsOrInsert(e1) did not report already-present")
	}
}

func TestExactFilterSemantics(t *testing.T) {
	testFilterExactSemantics(t, NewExact())
}

func TestApproxFilterSemantics(t *testing.T) {
	testFilterExactSemantics(t, NewApprox(42, 16, 0.01))
}

func TestApproxFilterGrowsPastInitialCapacity(t *testing.T) {
	f := NewApprox(7, 4, 0.1).(*approx)
	for i := 0; i < 200; i++ {
		e := Entry{[]byte{byte(i), byte(i >> 8)}}
		f.Insert(e)
	}
	if len(f.filters) < 2 {
		t.Errorf("expected the filter chain to have grown past one shard, got %d", len(f.filters))
	}
	for i := 0; i < 200; i++ {
		e := Entry{[]byte{byte(i), byte(i >> 8)}}
		if !f.Contains(e) {
			t.Fatalf("entry %d not found after growth", i)
		}
	}
}

func TestCanonicalKeyIsDeterministic(t *testing.T) {
	e := Entry{[]byte("ACGT"), []byte("TTTT")}
	k1 := canonicalKey(e)
	k2 := canonicalKey(e)
	if string(k1) != string(k2) {
		t.Error("canonicalKey is not deterministic for the same entry")
	}
}
