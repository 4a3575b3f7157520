package models

import "time"

// User represents a registered account
type User struct {
	UserID       string    `json:"user_id" dynamodbav:"user_id"` // Primary Key
	Email        string    `json:"email" dynamodbav:"email"`     // Unique, case-sensitive
	PasswordHash string    `json:"-" dynamodbav:"password_hash"` // bcrypt hash (never in JSON)
	DisplayName  string    `json:"display_name" dynamodbav:"display_name"`
	IsActive     bool      `json:"is_active" dynamodbav:"is_active"`
	IsAdmin      bool      `json:"is_admin" dynamodbav:"is_admin"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
}

// LoginRequest represents login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents registration request payload
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name" validate:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}
