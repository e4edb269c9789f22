package domain

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id"` // UUID
	Name         string    `json:"name"`
	Email        string    `json:"email"` // Unique email address
	PasswordHash string    `json:"-"`     // Bcrypt hashed password (never serialized)
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	List() ([]*User, error)
}
