package crypto

// Zero overwrites a byte slice in memory with zeros. Used to scrub key
// material and raw passwords once they are no longer needed.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
