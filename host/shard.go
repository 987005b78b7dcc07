package host

// ListLoader reports the current number of entries a device holds for
// a given coarse list id, used to pick the least-loaded device for
// IVF add-sharding.
type ListLoader func(device, listID int) int

// ShardIVFAdd assigns each of len(listIDs) vectors (vector i targets
// coarse list listIDs[i]) to one of numDevices devices: the device
// holding the fewest existing entries for that list wins, ties
// breaking toward the first such device, per spec.md §4.7. The result
// groups vector indices by (device, list) so the caller can issue one
// RPC per group.
func ShardIVFAdd(listIDs []int, numDevices int, load ListLoader) map[DeviceList]([]int) {
	groups := make(map[DeviceList][]int)
	// Track loads we've already committed to this call so that
	// multiple vectors targeting the same list within one add batch
	// still balance against each other, not just against pre-call state.
	committed := make(map[DeviceList]int)

	for i, listID := range listIDs {
		best := 0
		bestLoad := load(0, listID) + committed[DeviceList{Device: 0, List: listID}]
		for d := 1; d < numDevices; d++ {
			l := load(d, listID) + committed[DeviceList{Device: d, List: listID}]
			if l < bestLoad {
				bestLoad = l
				best = d
			}
		}
		key := DeviceList{Device: best, List: listID}
		groups[key] = append(groups[key], i)
		committed[key]++
	}
	return groups
}

// DeviceList keys a (device, coarse list) group.
type DeviceList struct {
	Device int
	List   int
}

// BaseLoader reports a device's current Flat base length.
type BaseLoader func(device int) int

// ShardFlatAdd assigns n vectors across numDevices devices: the first
// vector goes to the device with the smallest current base, and
// subsequent vectors of the same call round-robin starting from there,
// per spec.md §4.7. Returns the device index for each of the n
// vectors, in order.
func ShardFlatAdd(n, numDevices int, load BaseLoader) []int {
	if numDevices == 0 {
		return nil
	}
	start := 0
	smallest := load(0)
	for d := 1; d < numDevices; d++ {
		if load(d) < smallest {
			smallest = load(d)
			start = d
		}
	}

	assignment := make([]int, n)
	for i := 0; i < n; i++ {
		assignment[i] = (start + i) % numDevices
	}
	return assignment
}
