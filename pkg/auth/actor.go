package auth

import "github.com/google/uuid"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID  uuid.UUID
	IsStaff bool
}

// CanAccess reports whether the actor may act on resources owned by ownerID.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	if a.IsStaff {
		return true
	}
	return a.UserID != uuid.Nil && a.UserID == ownerID
}

// Ref returns a pointer to the actor's user id for audit columns, or nil when anonymous.
func (a Actor) Ref() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
