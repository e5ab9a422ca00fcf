package domain

import "github.com/google/uuid"

// ConnectionID identifies one transport connection while it is open.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}
