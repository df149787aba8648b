package model

// User represents an account in the system
type User struct {
	ID             int64    `db:"id" json:"id"`
	Username       string   `db:"username" json:"username"`
	Email          string   `db:"email" json:"email"`
	HashedPassword string   `db:"hashed_password" json:"-"`
	Role           UserRole `db:"role" json:"role"`
	IsActive       bool     `db:"is_active" json:"isActive"`
}

// LoginRequest is the credential payload for POST /auth/login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries an issued access token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegisterRequest creates a new uploader/reviewer account (admin only)
type RegisterRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Role     UserRole `json:"role" validate:"required,oneof=reviewer uploader"`
}

// UserUpdateRequest patches role and/or active flag (admin only)
type UserUpdateRequest struct {
	Role     *UserRole `json:"role,omitempty" validate:"omitempty,oneof=reviewer uploader"`
	IsActive *bool     `json:"isActive,omitempty"`
}
