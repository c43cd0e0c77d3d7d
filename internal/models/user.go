// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level in the system.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleCustomer Role = "customer"
)

// User is an account known to the site. Sign-in happens elsewhere; this
// service only reads the session and the profile verification state.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	DisplayName        string     `json:"display_name"`
	Role               Role       `json:"role"`
	VerificationSecret *string    `json:"-"` // Nullable; set when verification starts
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanPublish returns true if the user may create posts and stories.
func (u *User) CanPublish() bool {
	return u.Role == RoleAdmin || u.Role == RoleEditor
}

// Verified returns true once the profile verification code was confirmed.
func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}

// NeedsVerificationSetup returns true if no verification secret exists yet.
func (u *User) NeedsVerificationSetup() bool {
	return u.VerificationSecret == nil && !u.Verified()
}
