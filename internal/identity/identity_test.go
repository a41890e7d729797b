package identity_test

import (
	"testing"

	"github.com/funneldesk/funnel-api/internal/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerator_NewID(t *testing.T) {
	gen := identity.NewGenerator()

	t.Run("ids are unique", func(t *testing.T) {
		seen := make(map[uuid.UUID]bool)
		for i := 0; i < 1000; i++ {
			id := gen.NewID()
			assert.False(t, seen[id])
			seen[id] = true
		}
	})

	t.Run("ids sort by creation time", func(t *testing.T) {
		a := gen.NewID()
		b := gen.NewID()
		// UUIDv7 string order follows the embedded timestamp prefix
		assert.LessOrEqual(t, a.String(), b.String())
	})
}
