package debugger

// Standard multisample positions in 1/16 pixel units, as (x, y) pairs.
var (
	samplePattern2 = []int8{
		4, 4, -4, -4,
	}
	samplePattern4 = []int8{
		-2, -6, 6, -2, -6, 2, 2, 6,
	}
	samplePattern8 = []int8{
		1, -3, -1, 3, 5, 1, -3, -5,
		-5, 5, -7, -1, 3, 7, 7, -7,
	}
	samplePattern16 = []int8{
		1, 1, -1, -3, -3, 2, 4, -1,
		-5, -2, 2, 5, 5, 3, 3, -5,
		-2, 6, 0, -7, -4, -6, -6, 4,
		-8, 0, 7, -4, 6, 7, -7, -8,
	}
)

// SamplePosition returns the position of sample idx in a pattern of count
// samples, in pixels relative to the pixel centre. ok is false for
// non-standard counts and out of range indices.
func SamplePosition(count, idx uint32) (x, y float32, ok bool) {
	var pattern []int8
	switch count {
	case 2:
		pattern = samplePattern2
	case 4:
		pattern = samplePattern4
	case 8:
		pattern = samplePattern8
	case 16:
		pattern = samplePattern16
	default:
		return 0, 0, false
	}
	if idx >= count {
		return 0, 0, false
	}
	return float32(pattern[2*idx]) / 16, float32(pattern[2*idx+1]) / 16, true
}
