// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is a newsletter recipient. The unsubscribe token is only
// stored as a bcrypt hash.
type Subscriber struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	TokenHash      string     `json:"-"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Active returns true while the subscriber still receives mail.
func (s *Subscriber) Active() bool {
	return s.UnsubscribedAt == nil
}
