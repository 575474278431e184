package sts

// OutcomeDistribution tallies per-block outcome categories into a dense,
// gap-free count vector covering every integer category between the merge
// thresholds inclusive. Categories at or below the minimum threshold fold
// into the minimum bucket, categories at or above the maximum threshold fold
// into the maximum bucket. The dense representation guarantees index
// alignment with a theoretical probability table: unobserved categories
// stay at zero instead of being absent.
type OutcomeDistribution struct {
	min    int
	max    int
	counts []int
	total  int
}

// NewOutcomeDistribution creates a distribution for categories in
// [min, max]. min must not exceed max.
func NewOutcomeDistribution(min, max int) *OutcomeDistribution {
	if max < min {
		max = min
	}
	return &OutcomeDistribution{
		min:    min,
		max:    max,
		counts: make([]int, max-min+1),
	}
}

// Add records one observation of the given outcome category, folding it
// into the nearest threshold bucket when it lies outside [min, max].
func (d *OutcomeDistribution) Add(category int) {
	if category < d.min {
		category = d.min
	}
	if category > d.max {
		category = d.max
	}
	d.counts[category-d.min]++
	d.total++
}

// Counts returns the merged count vector v_i ordered by category. The sum
// of the returned counts equals Total.
func (d *OutcomeDistribution) Counts() []int {
	return d.counts
}

// Total returns the number of observations recorded so far.
func (d *OutcomeDistribution) Total() int {
	return d.total
}
