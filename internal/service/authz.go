// Package service implements the board's resource access rules on top of the
// repositories: existence checks, ownership, reply-blocking deletes and
// idempotent likes.
package service

import "newsboard/internal/models"

// CanMutate reports whether the acting user may update or delete a resource
// owned by ownerID. Ownership is the only mutation permission.
func CanMutate(actingUserID, ownerID uint) bool {
	return actingUserID != 0 && actingUserID == ownerID
}

func requireUser(userID uint) error {
	if userID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	return nil
}
