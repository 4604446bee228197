// Package hashing implements the exact bucket-selection hash the
// distributor uses to fall back onto the fixed serializer pool when no
// dialog or transaction affinity exists.
package hashing

// DJB2 hashes b the way the distributor's pool fallback requires: no case
// folding, no normalization, byte-exact. h0 = 5381; for each byte c,
// h = h*33 XOR c.
func DJB2(b []byte) int64 {
	var h int64 = 5381
	for _, c := range b {
		h = h*33 ^ int64(c)
	}
	return h
}

// Bucket combines one or more strings with DJB2 and reduces the result
// into [0, p) by absolute value modulo p. Strings are hashed in order as
// one continuous byte run, each part continuing the running hash of the
// previous one, so the result equals hashing the parts' concatenation
// (Bucket(p, "ab", "c") == Bucket(p, "a", "bc")).
func Bucket(p int, parts ...string) int {
	var h int64 = 5381
	for _, s := range parts {
		for i := 0; i < len(s); i++ {
			h = h*33 ^ int64(s[i])
		}
	}
	if h < 0 {
		h = -h
	}
	return int(h % int64(p))
}
