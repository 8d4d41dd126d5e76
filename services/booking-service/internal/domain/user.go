package domain

import "time"

// User is the local read model of an identity seen in a verified token.
type User struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"index"`
	Name      string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity is the verified caller of a ledger operation.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
}
