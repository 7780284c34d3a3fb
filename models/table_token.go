package models

import "time"

// TableToken is the secret behind a table's QR code.
//
// ActiveTableNumber mirrors TableNumber while the token is active and is NULL
// once retired; its unique index is what keeps a table down to a single
// active token on every supported database.
type TableToken struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Token             string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"token"`
	TableNumber       int        `gorm:"not null;index" json:"table_number"`
	IsActive          bool       `gorm:"not null" json:"is_active"`
	ActiveTableNumber *int       `gorm:"uniqueIndex" json:"-"`
	ActivationCode    string     `gorm:"type:varchar(6);not null" json:"activation_code"`
	SessionActive     bool       `gorm:"not null;default:false" json:"session_active"`
	SessionStart      *time.Time `json:"session_start,omitempty"`
	SessionEnd        *time.Time `json:"session_end,omitempty"`
	LastUsed          time.Time  `gorm:"not null" json:"last_used"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
}

// SessionExpired reports whether the session window closed before now.
// Expiry is derived at read time and never written back.
func (t *TableToken) SessionExpired(now time.Time) bool {
	return t.SessionEnd != nil && !now.Before(*t.SessionEnd)
}

// UsableAt reports whether the token may be used to place an order at now.
func (t *TableToken) UsableAt(now time.Time) bool {
	return t.IsActive && !t.SessionExpired(now)
}
