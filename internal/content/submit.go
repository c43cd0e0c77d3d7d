// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"marketsite/internal/validation"
)

// FallbackMessage is shown for transport failures and unexpected responses.
const FallbackMessage = "Something went wrong. Please try again."

var (
	// ErrInFlight is returned when Submit is called while a previous
	// submission is still being validated or sent.
	ErrInFlight = errors.New("a submission is already in progress")

	// ErrClosed is returned when a result arrives after Close.
	ErrClosed = errors.New("submitter closed")
)

// State is the lifecycle of a submission.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// busy reports whether the state blocks a new submission.
func (s State) busy() bool {
	return s == StateValidating || s == StateSubmitting
}

// Record is the normalized document returned by the persistence API.
type Record struct {
	ID        string    `json:"id"`
	Type      DocType   `json:"type"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RejectionError carries the persistence API's own error message, which
// is shown to the user verbatim.
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// TransportError wraps network failures and malformed responses. Its
// message is always FallbackMessage.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return FallbackMessage }
func (e *TransportError) Unwrap() error { return e.Err }

// Persister is the persistence API. Create stores a new document; Replace
// overwrites the document stored under slug.
type Persister interface {
	Create(ctx context.Context, p *Payload) (*Record, error)
	Replace(ctx context.Context, slug string, p *Payload) (*Record, error)
}

// Submitter drives one editor's submissions through the lifecycle
// Idle → Validating → Submitting → Succeeded | Failed.
type Submitter struct {
	persister  Persister
	validator  *validation.Validator
	serializer Serializer
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	lastErr error
	closed  atomic.Bool
}

// NewSubmitter creates a Submitter that sends through p.
func NewSubmitter(p Persister, v *validation.Validator, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	if v == nil {
		v = validation.New()
	}
	return &Submitter{persister: p, validator: v, logger: logger}
}

// State returns the current lifecycle state.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last failed submission.
func (s *Submitter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close marks the owner as gone. Results that arrive afterwards are dropped.
func (s *Submitter) Close() {
	s.closed.Store(true)
}

// Submit validates f and sends it. An empty editSlug creates a document,
// otherwise the document stored under editSlug is replaced. The form is
// never modified, so a failed submission can be retried as is.
func (s *Submitter) Submit(ctx context.Context, f *Form, editSlug string) (*Record, error) {
	s.mu.Lock()
	if s.state.busy() {
		s.mu.Unlock()
		return nil, ErrInFlight
	}
	s.state = StateValidating
	s.lastErr = nil
	s.mu.Unlock()

	if err := f.Validate(s.validator); err != nil {
		s.finish(StateFailed, err)
		return nil, err
	}

	payload, err := s.serializer.Serialize(f)
	if err != nil {
		s.finish(StateFailed, err)
		return nil, err
	}

	s.setState(StateSubmitting)

	var rec *Record
	if editSlug == "" {
		rec, err = s.persister.Create(ctx, payload)
	} else {
		rec, err = s.persister.Replace(ctx, editSlug, payload)
	}

	if s.closed.Load() {
		return nil, ErrClosed
	}

	if err != nil {
		var rejected *RejectionError
		if !errors.As(err, &rejected) {
			s.logger.Error("content submission failed", "error", err, "slug", editSlug)
			err = &TransportError{Err: err}
		}
		s.finish(StateFailed, err)
		return nil, err
	}

	s.finish(StateSucceeded, nil)
	return rec, nil
}

func (s *Submitter) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Submitter) finish(st State, err error) {
	s.mu.Lock()
	s.state = st
	s.lastErr = err
	s.mu.Unlock()
}
