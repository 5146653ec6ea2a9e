package models

import (
	"time"

	"github.com/google/uuid"
)

// CopywriterMaster is an immutable persona document describing one copywriter's style.
// Stored in the copywriter_masters table and shared by all organizations.
type CopywriterMaster struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Squad     CopySquad `json:"squad"`
	Document  string    `json:"document"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
