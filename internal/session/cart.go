package session

// Random is the source of every random decision a session makes.
// *rand.Rand from math/rand satisfies it.
type Random interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// SampleRemovals picks the item ids to remove from a cart snapshot.
//
// Every line contributes Quantity copies of its id. The number of picks is a
// uniform draw below len(items)-1 (none for carts with fewer than two lines),
// capped by the number of units. Ids may repeat.
func SampleRemovals(rnd Random, items []CartLineItem) []int {
	target := 0
	if len(items)-1 > 0 {
		target = rnd.Intn(len(items) - 1)
	}

	var units []int
	for _, item := range items {
		for i := 0; i < item.Quantity; i++ {
			units = append(units, item.ID)
		}
	}

	rnd.Shuffle(len(units), func(i, j int) {
		units[i], units[j] = units[j], units[i]
	})

	if target > len(units) {
		target = len(units)
	}
	return units[:target]
}
