package cli

// Diff compares two byte slices. It returns the offset of the first
// difference, or -1 when they are equal, and the number of differing
// positions; bytes past the shorter slice all count as different.
func Diff(a, b []byte) (first, count int) {
	first = -1
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if len(a) != len(b) {
		if first < 0 {
			first = n
		}
		count += len(a) + len(b) - 2*n
	}
	return first, count
}
