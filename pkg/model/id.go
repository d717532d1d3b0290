package model

import (
	"fmt"

	"github.com/gofrs/uuid/v5"
)

// IDGenerator produces the identifier for a new entity. Identifiers are
// prefixed, lexicographically sortable strings (UUIDv7 based), e.g.
// "lap_0190b6e2-...". The generator is injected into the constructor
// functions so tests can use deterministic ids.
type IDGenerator func(prefix string) string

func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source is broken
		panic(fmt.Sprintf("id generation failed: %v", err))
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}
