package utils

// Btoi64 reads the first 8 bytes of val as a little-endian uint64.
func Btoi64(val []byte) uint64 {
	r := uint64(0)
	for i := uint64(0); i < 8; i++ {
		r |= uint64(val[i]) << (8 * i)
	}
	return r
}

// I64tob is the inverse of Btoi64.
func I64tob(val uint64) []byte {
	r := make([]byte, 8)
	for i := uint64(0); i < 8; i++ {
		r[i] = byte(val >> (8 * i))
	}
	return r
}
