// Package invite generates the short codes users type to join a project.
package invite

import "crypto/rand"

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLen  = 6
)

// NewCode returns a random 6-character code of uppercase letters and digits.
// Callers draw again if the code is already taken; the projects table
// enforces uniqueness either way.
func NewCode() string {
	b := make([]byte, codeLen)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
