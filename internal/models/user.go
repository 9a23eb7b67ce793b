// Package models provides data models for the earnings tracker.
package models

import (
	"time"
)

// DefaultCurrency is stored when signup omits a currency
const DefaultCurrency = "USD"

// User represents a registered user
type User struct {
	ID           int64     `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Currency     string    `json:"currency" db:"currency"`
	Timezone     string    `json:"timezone" db:"timezone"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserStats holds the running totals row created at signup
type UserStats struct {
	UserID        int64     `json:"user_id" db:"user_id"`
	TotalHours    float64   `json:"total_hours" db:"total_hours"`
	TotalEarnings float64   `json:"total_earnings" db:"total_earnings"`
	LastUpdated   time.Time `json:"last_updated" db:"last_updated"`
}
