// Package shortid generates short labels for log correlation.
package shortid

import (
	"crypto/rand"
	"encoding/hex"
)

const lenBytes = 4

// ID labels a long-lived object, such as a connection, in logs. It is not
// guaranteed to be unique.
type ID string

// New generates a new ID of 8 hex characters.
func New() ID {
	p := make([]byte, lenBytes)
	_, _ = rand.Read(p)
	return ID(hex.EncodeToString(p))
}

// String implements the fmt.Stringer interface.
func (id ID) String() string {
	return string(id)
}
