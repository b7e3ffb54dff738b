// internal/transition/transition.go

// Package transition decides whether a freshly classified status, compared
// against a clinic's last-known status, is worth notifying subscribers about.
package transition

import "clinic-scout/internal/models"

// IsNotifyWorthy reports whether the change from old to newStatus is a
// status flip subscribers should hear about. A nil old status means the
// clinic was never recorded before; a brand-new clinic that is OPEN counts.
// Re-confirming an already-OPEN clinic does not.
func IsNotifyWorthy(old *models.Status, newStatus models.Status) bool {
	if newStatus != models.StatusOpen {
		return false
	}
	return old == nil || *old != models.StatusOpen
}
