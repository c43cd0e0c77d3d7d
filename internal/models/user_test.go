// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"testing"
	"time"
)

// TestUserIsAdmin verifies that IsAdmin returns true only for the admin role.
func TestUserIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{name: "admin role", role: RoleAdmin, want: true},
		{name: "editor role", role: RoleEditor, want: false},
		{name: "customer role", role: RoleCustomer, want: false},
		{name: "empty role", role: Role(""), want: false},
		{name: "uppercase ADMIN", role: Role("ADMIN"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Role: tt.role}
			got := u.IsAdmin()
			if got != tt.want {
				t.Errorf("User{Role: %q}.IsAdmin() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestUserCanPublish(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleAdmin, true},
		{RoleEditor, true},
		{RoleCustomer, false},
		{Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			u := &User{Role: tt.role}
			if got := u.CanPublish(); got != tt.want {
				t.Errorf("User{Role: %q}.CanPublish() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

// TestUserVerificationState covers the three stages of profile verification.
func TestUserVerificationState(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	now := time.Now()

	tests := []struct {
		name       string
		secret     *string
		verifiedAt *time.Time
		needsSetup bool
		verified   bool
	}{
		{name: "not started", needsSetup: true},
		{name: "secret issued", secret: &secret},
		{name: "confirmed", secret: &secret, verifiedAt: &now, verified: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{VerificationSecret: tt.secret, VerifiedAt: tt.verifiedAt}
			if got := u.NeedsVerificationSetup(); got != tt.needsSetup {
				t.Errorf("NeedsVerificationSetup() = %v, want %v", got, tt.needsSetup)
			}
			if got := u.Verified(); got != tt.verified {
				t.Errorf("Verified() = %v, want %v", got, tt.verified)
			}
		})
	}
}
