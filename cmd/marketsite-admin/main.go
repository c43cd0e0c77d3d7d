// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Command marketsite-admin runs operator tasks against the marketsite
// database and Valkey: applying migrations, managing accounts and issuing
// sessions for API clients and local development. It also submits post and
// story drafts to a running API.
//
//	marketsite-admin migrate
//	marketsite-admin user create -email a@b.c -name "Ana" -role editor
//	marketsite-admin user delete -email a@b.c
//	marketsite-admin session issue -email a@b.c
//	marketsite-admin document submit -file draft.json -token SESSION
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"marketsite/internal/cache"
	"marketsite/internal/config"
	"marketsite/internal/database"
	"marketsite/internal/models"
	"marketsite/internal/session"
	"marketsite/internal/store"
)

// errUsage marks a bad command line; main prints usage for it.
var errUsage = errors.New("usage")

const usage = `usage:
  marketsite-admin migrate
  marketsite-admin user create -email EMAIL [-name NAME] [-role admin|editor|customer]
  marketsite-admin user delete -email EMAIL
  marketsite-admin session issue -email EMAIL
  marketsite-admin document submit -file DRAFT [-slug SLUG] [-api URL] [-token SESSION]
`

// sessionIDLength matches the length of ids issued by the sign-in service.
const sessionIDLength = 32

// userRepo is the part of store.UserStore the commands use.
type userRepo interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, displayName string, role models.Role) (*models.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// sessionWriter is the part of session.Store the commands use.
type sessionWriter interface {
	Put(ctx context.Context, id string, data *session.Data) error
}

// app carries the dependencies of the account and session commands.
type app struct {
	users    userRepo
	sessions sessionWriter
	out      io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	// Drafts go through the HTTP API and need no local services.
	if args[0] == "document" {
		if len(args) < 2 || args[1] != "submit" {
			return errUsage
		}
		return submitDocument(ctx, args[2:], out, remotePersister)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := database.Connect(ctx, cfg.DSN(), database.PoolOptions{MaxOpen: 2})
	if err != nil {
		return err
	}
	defer db.Close()

	if args[0] == "migrate" {
		return migrate(ctx, db, out)
	}

	a := &app{users: store.NewUserStore(db), out: out}
	if args[0] == "session" {
		client, err := cache.ConnectValkey(ctx, cache.ValkeyOptions{
			Host:     cfg.ValkeyHost,
			Port:     cfg.ValkeyPort,
			Password: cfg.ValkeyPassword,
			DB:       cfg.ValkeyDB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		a.sessions = session.NewStore(client)
	}
	return a.dispatch(ctx, args)
}

func migrate(ctx context.Context, db *sql.DB, out io.Writer) error {
	version, err := database.Migrate(ctx, db)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema at version %d\n", version)
	return nil
}

// dispatch routes the account and session subcommands.
func (a *app) dispatch(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	switch args[0] + " " + args[1] {
	case "user create":
		return a.createUser(ctx, args[2:])
	case "user delete":
		return a.deleteUser(ctx, args[2:])
	case "session issue":
		return a.issueSession(ctx, args[2:])
	}
	return errUsage
}

func (a *app) createUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("user create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name; defaults to the email's local part")
	role := fs.String("role", string(models.RoleCustomer), "admin, editor or customer")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	addr := strings.ToLower(strings.TrimSpace(*email))
	if !strings.Contains(addr, "@") {
		return fmt.Errorf("%w: -email is required", errUsage)
	}
	r, err := parseRole(*role)
	if err != nil {
		return err
	}
	display := strings.TrimSpace(*name)
	if display == "" {
		display, _, _ = strings.Cut(addr, "@")
	}

	existing, err := a.users.FindByEmail(ctx, addr)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("user %s already exists", addr)
	}

	u, err := a.users.Create(ctx, addr, display, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created %s %s (%s)\n", u.Role, u.Email, u.ID)
	return nil
}

func (a *app) deleteUser(ctx context.Context, args []string) error {
	u, err := a.userFromFlags(ctx, "user delete", args)
	if err != nil {
		return err
	}
	if err := a.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", u.Email)
	return nil
}

func (a *app) issueSession(ctx context.Context, args []string) error {
	u, err := a.userFromFlags(ctx, "session issue", args)
	if err != nil {
		return err
	}

	id, err := gonanoid.New(sessionIDLength)
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	data := &session.Data{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
	if err := a.sessions.Put(ctx, id, data); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s\n", id)
	return nil
}

// userFromFlags parses -email and loads that user.
func (a *app) userFromFlags(ctx context.Context, name string, args []string) (*models.User, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" {
		return nil, fmt.Errorf("%w: -email is required", errUsage)
	}

	u, err := a.users.FindByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("no user with email %s", addr)
	}
	return u, nil
}

func parseRole(s string) (models.Role, error) {
	switch r := models.Role(strings.ToLower(strings.TrimSpace(s))); r {
	case models.RoleAdmin, models.RoleEditor, models.RoleCustomer:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", errUsage, s)
}
