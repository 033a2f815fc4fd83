package models

import "github.com/google/uuid"

// ensureID assigns a fresh id unless the caller already chose one.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
