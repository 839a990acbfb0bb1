package services

import (
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/models"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role models.UserRole
}

func (a Actor) Is(roles ...models.UserRole) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}
