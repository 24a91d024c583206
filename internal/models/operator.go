package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator is an admin user of the ledger API.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
