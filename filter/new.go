package filter

// New returns the exact filter when fpRate == 0 (spec.md §8 property 6:
// "Deduplication with false_positive_rate = 0 is exact"), and the scalable
// approximate filter otherwise.
func New(seed uint64, capacity uint, fpRate float64) Filter {
	if fpRate == 0 {
		return NewExact()
	}
	return NewApprox(seed, capacity, fpRate)
}
