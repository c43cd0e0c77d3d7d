// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"marketsite/internal/middleware"
	"marketsite/internal/models"
	"marketsite/internal/validation"
)

// verificationIssuer is shown in authenticator apps next to the account.
const verificationIssuer = "Marketsite"

// UserRepo reads and updates profile verification state.
type UserRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetVerificationSecret(ctx context.Context, userID uuid.UUID, secret string) error
	MarkVerified(ctx context.Context, userID uuid.UUID) error
}

// Profile serves the signed-in user's profile and its verification flow.
type Profile struct {
	users     UserRepo
	validator *validation.Validator
}

// NewProfile creates the profile handler.
func NewProfile(users UserRepo, v *validation.Validator) *Profile {
	if v == nil {
		v = validation.New()
	}
	return &Profile{users: users, validator: v}
}

type confirmRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (req *confirmRequest) normalize() {
	req.Code = strings.TrimSpace(req.Code)
}

// user loads the account behind the session, writing 401 when it is gone.
func (h *Profile) user(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "Please sign in to continue.")
		return nil, false
	}
	u, err := h.users.FindByID(r.Context(), sess.UserID)
	if err != nil {
		serverError(w, "find user failed", err, "user_id", sess.UserID)
		return nil, false
	}
	if u == nil {
		writeError(w, http.StatusUnauthorized, "Please sign in to continue.")
		return nil, false
	}
	return u, true
}

// Me returns the signed-in user with what the account may do. Roles come
// from the stored account, so a promotion shows before the session is
// reissued.
func (h *Profile) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":                   u,
		"verified":               u.Verified(),
		"needsVerificationSetup": u.NeedsVerificationSetup(),
		"canPublish":             u.CanPublish(),
		"isAdmin":                u.IsAdmin(),
	})
}

// StartVerification issues a new authenticator secret and returns it with
// a QR code for scanning. Starting again replaces the previous secret.
func (h *Profile) StartVerification(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}
	if u.Verified() {
		writeError(w, http.StatusConflict, "Your profile is already verified.")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      verificationIssuer,
		AccountName: u.Email,
	})
	if err != nil {
		serverError(w, "totp generate failed", err, "user_id", u.ID)
		return
	}

	if err := h.users.SetVerificationSecret(r.Context(), u.ID, key.Secret()); err != nil {
		serverError(w, "save verification secret failed", err, "user_id", u.ID)
		return
	}

	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		serverError(w, "qr encode failed", err, "user_id", u.ID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"otpauthUrl": key.URL(),
		"secret":     key.Secret(),
		"qrCode":     "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// ConfirmVerification checks a code from the authenticator app and marks
// the profile verified.
func (h *Profile) ConfirmVerification(w http.ResponseWriter, r *http.Request) {
	u, ok := h.user(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	if u.Verified() {
		writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
		return
	}
	if u.NeedsVerificationSetup() {
		writeError(w, http.StatusConflict, "Start verification before entering a code.")
		return
	}

	if !totp.Validate(req.Code, *u.VerificationSecret) {
		slog.Warn("verification code rejected", "user_id", u.ID)
		writeError(w, http.StatusUnprocessableEntity, "That code is not valid. Please try again.")
		return
	}

	if err := h.users.MarkVerified(r.Context(), u.ID); err != nil {
		serverError(w, "mark verified failed", err, "user_id", u.ID)
		return
	}

	slog.Info("profile verified", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}
