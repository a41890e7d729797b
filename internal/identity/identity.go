// Package identity produces collision-resistant, time-sortable identifiers
// for leads and activity entries.
package identity

import "github.com/google/uuid"

// Generator issues ids. UUIDv7 embeds a millisecond timestamp prefix, so
// ids sort by creation time; on the rare entropy failure it falls back to
// a random v4 id, keeping collision resistance at the cost of sortability.
type Generator struct{}

// NewGenerator creates an id generator
func NewGenerator() *Generator {
	return &Generator{}
}

// NewID returns a fresh identifier
func (g *Generator) NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
