// Package ids generates job identifiers and short-code suffixes.
package ids

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/runoshun/swarm-factory/internal/domain"
)

const (
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixSize     = 4
)

// Ensure Generator implements domain.IDGenerator.
var _ domain.IDGenerator = Generator{}

// Generator issues random UUIDv4 job IDs and nanoid suffixes.
type Generator struct{}

// NewJobID returns a random UUID.
func (Generator) NewJobID() string {
	return uuid.NewString()
}

// NewSuffix returns a short lowercase alphanumeric suffix.
func (Generator) NewSuffix() string {
	return gonanoid.MustGenerate(suffixAlphabet, suffixSize)
}
