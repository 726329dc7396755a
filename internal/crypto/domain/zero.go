package domain

import (
	"github.com/awnumar/memguard"
)

// SecureErase overwrites a byte slice with zeros to clear key material from memory.
//
// This is best effort: the Go runtime may have copied the slice during growth or escape
// analysis. Long-lived keys use MasterKey, which keeps its material in a memguard enclave
// instead of ordinary heap memory.
func SecureErase(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
}
