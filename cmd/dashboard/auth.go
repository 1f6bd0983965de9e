package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/taufik7000/efarina-finance-flow/internal/apperr"
	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/notify"
	"github.com/taufik7000/efarina-finance-flow/internal/session"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stdout)
	return fs
}

// visited reports which flags were given explicitly.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (a *app) credentials(email, password string) (string, string, error) {
	var err error
	if email == "" {
		if email, err = a.prompt.Line("Email: "); err != nil {
			return "", "", fmt.Errorf("read email: %w", err)
		}
	}
	if password == "" {
		if password, err = a.prompt.Password("Password: "); err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
	}
	if email == "" || password == "" {
		return "", "", fmt.Errorf("email and password are required")
	}
	return email, password, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, p, err := a.credentials(*email, *password)
	if err != nil {
		return err
	}
	return a.store.SignIn(ctx, e, p)
}

func (a *app) logout(ctx context.Context) error {
	if a.store.State() != session.Authenticated {
		fmt.Fprintln(a.stdout, "Tidak ada sesi aktif")
		return nil
	}
	return a.store.SignOut(ctx)
}

func (a *app) whoami(ctx context.Context) error {
	id := a.store.Identity()
	if id == nil {
		return apperr.NotAuthenticated("dashboard.whoami")
	}
	fmt.Fprintf(a.stdout, "Email:      %s\n", id.Email)
	fmt.Fprintf(a.stdout, "ID:         %s\n", id.ID)

	var rows []models.User
	q := backend.Query{}.Eq("id", id.ID).WithLimit(1)
	if err := a.remote.Select(ctx, a.store.AccessToken(), backend.Users, q, &rows); err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.stdout, "Profil:     (belum ada)")
		return nil
	}
	p := rows[0]
	fmt.Fprintf(a.stdout, "Nama:       %s\n", p.Name)
	fmt.Fprintf(a.stdout, "Role:       %s\n", p.Role)
	fmt.Fprintf(a.stdout, "Departemen: %s\n", p.Department)
	fmt.Fprintf(a.stdout, "Status:     %s\n", p.Status)
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := a.flags("signup")
	email := fs.String("email", "", "Email address")
	name := fs.String("name", "", "Full name")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, p, err := a.credentials(*email, *password)
	if err != nil {
		return err
	}
	n := strings.TrimSpace(*name)
	if n == "" {
		n, _, _ = strings.Cut(e, "@")
	}
	_, err = a.store.SignUp(ctx, e, p, n)
	return err
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := a.flags("profile")
	name := fs.String("name", "", "New full name")
	department := fs.String("department", "", "New department")
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := visited(fs)
	var upd session.ProfileUpdate
	if set["name"] {
		upd.Name = name
	}
	if set["department"] {
		upd.Department = department
	}
	if upd.Name == nil && upd.Department == nil {
		return fmt.Errorf("nothing to update, use -name or -department")
	}
	return a.store.UpdateProfile(ctx, upd)
}

func (a *app) password(ctx context.Context) error {
	token := a.store.AccessToken()
	if token == "" {
		return apperr.NotAuthenticated("dashboard.password")
	}
	pw, err := a.prompt.Password("Password baru: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := a.prompt.Password("Ulangi password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if pw != confirm {
		return fmt.Errorf("passwords do not match")
	}
	if _, err := a.remote.UpdateUser(ctx, token, nil, &pw); err != nil {
		return apperr.New(apperr.KindMutation, "dashboard.password", err)
	}
	notify.NewWriter(a.stdout).Notify(ctx, notify.Success("Password diperbarui", "Sesi lain telah dikeluarkan"))
	return nil
}

func (a *app) watch(ctx context.Context) error {
	unsubscribe := a.store.Subscribe(func(ev backend.EventType, _ *backend.Session) {
		fmt.Fprintf(a.stdout, "event: %s\n", ev)
	})
	defer unsubscribe()
	fmt.Fprintln(a.stdout, "Menunggu event sesi, tekan Ctrl+C untuk berhenti")
	return a.store.Watch(ctx)
}
