package vision

// Match pairs a reference descriptor with its nearest live descriptor.
type Match struct {
	RefIdx   int
	LiveIdx  int
	Distance int
}

// ratioMatch finds, for every reference descriptor, the best and second-best live
// descriptor by Hamming distance and keeps the pair when best < ratio*second.
// With fewer than two live descriptors the test is undefined and nothing is kept.
func ratioMatch(ref, live []Descriptor, ratio float64) []Match {
	if len(ref) == 0 || len(live) < 2 {
		return nil
	}

	var good []Match
	for i, rd := range ref {
		best, second := -1, -1
		bestIdx := -1
		for j, ld := range live {
			d := rd.Hamming(ld)
			switch {
			case best < 0 || d < best:
				second = best
				best, bestIdx = d, j
			case second < 0 || d < second:
				second = d
			}
		}
		if float64(best) < ratio*float64(second) {
			good = append(good, Match{RefIdx: i, LiveIdx: bestIdx, Distance: best})
		}
	}
	return good
}
