package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrOperatorNotFound = errors.New("operator not found")
var ErrOperatorExists = errors.New("operator already exists")

// Operator models an authenticated actor on the admin API.
type Operator struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
