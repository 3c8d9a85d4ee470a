// Package governance enforces catalog data policy: who may touch
// verified records, how complete a record is, and the
// discontinue/restore workflow.
package governance

import (
	"strings"

	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
)

// Roles allowed to mutate VERIFIED records. Everything below VERIFIED is
// open to any actor.
var privilegedRoles = map[string]struct{}{
	"ADMIN":       {},
	"SUPER_ADMIN": {},
	"SYSTEM":      {},
}

// Guard implements the mutation policy consulted by the catalog write
// path.
type Guard struct{}

func NewGuard() *Guard { return &Guard{} }

func (g *Guard) CanMutate(status meddomain.Status, actorID, actorRole string) bool {
	if status != meddomain.StatusVerified {
		return true
	}
	if _, ok := privilegedRoles[strings.ToUpper(strings.TrimSpace(actorRole))]; ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(actorID)) {
	case "system", "admin":
		return true
	}
	return false
}
