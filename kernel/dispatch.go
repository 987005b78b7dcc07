package kernel

// DispatchLevel names the host tile width the reference kernels in
// this package were sized for. It is informational only: it never
// changes the result of a computation. Its width is read by MaxLanes
// and reported by `enginectl caps`.
type DispatchLevel int

const (
	DispatchScalar DispatchLevel = iota
	DispatchSSE2
	DispatchNEON
	DispatchAVX2
	DispatchAVX512
)

func (l DispatchLevel) String() string {
	switch l {
	case DispatchSSE2:
		return "sse2"
	case DispatchNEON:
		return "neon"
	case DispatchAVX2:
		return "avx2"
	case DispatchAVX512:
		return "avx512"
	default:
		return "scalar"
	}
}

var (
	currentLevel DispatchLevel
	currentWidth int
	currentName  string
)

// CurrentLevel returns the dispatch level chosen at init time.
func CurrentLevel() DispatchLevel { return currentLevel }

// CurrentWidth returns the tile width, in bytes, associated with the
// current dispatch level.
func CurrentWidth() int { return currentWidth }

// CurrentName returns a short human-readable dispatch level name,
// surfaced by `enginectl caps`.
func CurrentName() string { return currentName }

// MaxLanes returns how many elements of T fit in the current tile
// width, with a floor of 1.
func MaxLanes[T Lanes]() int {
	var zero T
	size := 4
	switch any(zero).(type) {
	case Float16, int8, uint8:
		size = 1
	case float64:
		size = 8
	}
	if _, ok := any(zero).(Float16); ok {
		size = 2
	}
	n := currentWidth / size
	if n < 1 {
		return 1
	}
	return n
}
