package imagehash

// lengthPenalty is the per-nibble cost charged when fingerprints differ in
// length, so truncated or corrupt hashes are penalized instead of being
// silently compared on a shared prefix.
const lengthPenalty = 4

// popcount4 maps a nibble value to its set-bit count.
var popcount4 = [16]int{0, 1, 1, 2, 1, 2, 2, 3, 1, 2, 2, 3, 2, 3, 3, 4}

// Distance returns the Hamming distance between two hex fingerprints,
// nibble-wise, plus a penalty of 4 bits per length-mismatched nibble.
func Distance(a, b string) int {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}

	dist := lengthPenalty * (len(long) - len(short))
	for i := 0; i < len(short); i++ {
		av, aok := nibbleValue(short[i])
		bv, bok := nibbleValue(long[i])
		if !aok || !bok {
			dist += lengthPenalty
			continue
		}
		dist += popcount4[av^bv]
	}

	return dist
}

func nibbleValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
