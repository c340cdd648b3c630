package training

import (
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices so that each class keeps its share
// of the test fraction. Every class with at least two members contributes at
// least one row to each side. Both index lists are returned sorted.
func StratifiedSplit(y []int, testSize float64, rng *rand.Rand) (train, test []int) {
	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	for _, c := range classes {
		members := byClass[c]
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

		n := len(members)
		k := int(math.Round(float64(n) * testSize))
		if n >= 2 {
			k = min(max(k, 1), n-1)
		}
		test = append(test, members[:k]...)
		train = append(train, members[k:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

func pick(x [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}
