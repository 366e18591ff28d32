package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-tab-session/access"
	"github.com/jrsteele09/go-tab-session/authority"
	"github.com/jrsteele09/go-tab-session/authority/fakeauthority"
	"github.com/jrsteele09/go-tab-session/internal/utils"
	"github.com/jrsteele09/go-tab-session/location"
	"github.com/jrsteele09/go-tab-session/sessions"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":      {summary: "log this tab in", run: runLogin},
	"logout":     {summary: "log this tab out", run: runLogout},
	"status":     {summary: "show this tab's session", run: runStatus},
	"lockout":    {summary: "show or reset the shared login lockout", run: runLockout},
	"grant":      {summary: "edit a role's permissions or a user's roles", run: runGrant},
	"serve-fake": {summary: "serve an in-memory authority for local testing", run: runServeFake},
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("TABSESSION_PASSWORD"), "account password")
	userType := fs.String("user-type", "", "restrict to an account type, e.g. admin")
	lat := fs.Float64("lat", math.NaN(), "latitude to report with the login")
	lon := fs.Float64("lon", math.NaN(), "longitude to report with the login")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login needs -email and -password")
	}

	var coords *location.Coordinates
	if !math.IsNaN(*lat) && !math.IsNaN(*lon) {
		coords = &location.Coordinates{Latitude: *lat, Longitude: *lon}
	}
	m, err := a.manager(sessions.WithLocationResolver(a.resolver(coords)))
	if err != nil {
		return err
	}

	res := m.Login(ctx, sessions.Credentials{Email: *email, Password: *password}, sessions.LoginOptions{UserType: *userType})
	switch res.Status {
	case sessions.StatusSuccess:
		fmt.Printf("logged in as %s (%s)\n", utils.Value(res.User).Email, m.State().Guard)
		fmt.Printf("tab: %s\n", m.GetOrCreateTabIdentity(ctx))
		return nil
	case sessions.StatusGated:
		return fmt.Errorf("%s (retry after %dms)", res.Message, res.RetryAfterMs())
	default:
		return fmt.Errorf("login %s: %s", res.Status, res.Message)
	}
}

func runLogout(ctx context.Context, a *app, args []string) error {
	m, err := a.manager()
	if err != nil {
		return err
	}
	if !m.RestoreSession(ctx).IsAuthenticated {
		fmt.Println("not logged in")
		return nil
	}
	if err := m.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("session cleared locally only")
	}
	fmt.Println("logged out")
	return nil
}

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	offline := fs.Bool("offline", false, "do not ask the authority to confirm the token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	rec := m.RestoreSession(ctx)
	if !*offline {
		rec = m.Revalidate(ctx)
	}

	fmt.Printf("tab:           %s\n", rec.TabID)
	fmt.Printf("authenticated: %t\n", rec.IsAuthenticated)
	if rec.IsAuthenticated {
		u := utils.Value(rec.User)
		fmt.Printf("guard:         %s\n", rec.Guard)
		fmt.Printf("user:          %s <%s>\n", u.Name, u.Email)
		if len(u.Roles) > 0 {
			fmt.Printf("roles:         %s\n", strings.Join(u.Roles, ", "))
		}
	}
	return nil
}

func runLockout(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lockout", flag.ContinueOnError)
	reset := fs.Bool("reset", false, "clear the failure counter and any lock")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *reset {
		a.guard.RecordSuccess(ctx)
	}

	s := a.guard.State(ctx)
	gate := a.guard.CheckGate(ctx)
	fmt.Printf("attempts: %d/%d\n", s.Attempts, a.guard.Threshold())
	if gate.Allowed {
		fmt.Println("locked:   no")
		return nil
	}
	fmt.Printf("locked:   until %s\n", s.LockUntil.Format(time.RFC3339))
	fmt.Println(gate.Message())
	return nil
}

func runGrant(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	kind := fs.String("kind", string(access.SubjectRole), "role (edit permissions) or user (edit roles)")
	id := fs.String("id", "", "role or user id")
	items := fs.String("items", "", "comma separated desired items")
	mode := fs.String("mode", string(access.ModeAdditive), "additive or replace")
	dryRun := fs.Bool("dry-run", false, "print the plan without applying it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	subject := access.Subject{Kind: access.SubjectKind(*kind), ID: *id}
	if err := subject.Validate(); err != nil {
		return err
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	if !m.RestoreSession(ctx).IsAuthenticated {
		return errors.New("not logged in")
	}

	ac := a.client.Access(m.Token)
	current, err := ac.Granted(ctx, subject)
	if err != nil {
		return err
	}

	editor := access.NewEditor(ac, subject, current)
	plan := editor.Preview(access.NewSet(strings.Split(*items, ",")...), access.Mode(*mode))
	fmt.Printf("%s (%s): +%v -%v\n", subject, plan.Mode, plan.ToAdd.Sorted(), plan.ToRemove.Sorted())
	if *dryRun {
		editor.Discard()
		return nil
	}

	confirmed, err := editor.Commit(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", authority.Message(err), err)
	}
	fmt.Printf("now granted: %s\n", strings.Join(confirmed.Sorted(), ", "))
	return nil
}

// userFlag collects repeated -user email:password:type values.
type userFlag []string

func (u *userFlag) String() string     { return strings.Join(*u, ",") }
func (u *userFlag) Set(v string) error { *u = append(*u, v); return nil }

func runServeFake(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("serve-fake", flag.ContinueOnError)
	var users userFlag
	fs.Var(&users, "user", "seed account as email:password:type (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(users) == 0 {
		users = userFlag{"admin@example.com:password:admin"}
	}

	fake := fakeauthority.NewFakeAuthority()
	for _, entry := range users {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("bad -user %q, want email:password:type", entry)
		}
		if _, err := fake.AddUser(parts[0], parts[1], parts[2]); err != nil {
			return err
		}
		log.Info().Str("email", parts[0]).Str("user_type", parts[2]).Msg("seeded account")
	}

	base, err := url.Parse(a.cfg.GetAuthorityURL())
	if err != nil {
		return err
	}
	prefix := strings.TrimRight(base.Path, "/")
	server := &http.Server{Addr: base.Host, Handler: http.StripPrefix(prefix, fake)}

	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(server) }()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("fake authority listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
