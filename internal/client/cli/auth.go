package cli

import (
	"context"
	"time"

	"github.com/dmitrijs2005/applytrack/internal/client/auth"
	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/validate"
	"github.com/dustin/go-humanize"
)

// now is a test seam for the clock used by whoami.
var now = time.Now

const minPasswordLen = 6

// Signup prompts for the account details, validates them locally and
// creates the account. The backend sends a verification email; the user
// logs in after verifying.
func (a *App) Signup(ctx context.Context) error {
	var in models.Signup
	var err error
	if in.FirstName, err = a.prompt("First name"); err != nil {
		return err
	}
	if in.LastName, err = a.prompt("Last name"); err != nil {
		return err
	}
	if in.Email, err = a.prompt("Email"); err != nil {
		return err
	}
	if in.Password, err = a.password("Password"); err != nil {
		return err
	}
	confirm, err := a.password("Confirm password")
	if err != nil {
		return err
	}

	if err := validateSignup(in, confirm); err != nil {
		return err
	}

	res, err := a.Accounts.Signup(ctx, in)
	if err != nil {
		return err
	}
	msg := "Account created. Check your email to verify it, then log in."
	if res != nil && res.Message != "" {
		msg = "Account created: " + res.Message + ". Log in once your email is verified."
	}
	a.println(msg)
	return nil
}

func validateSignup(in models.Signup, confirm string) error {
	return validate.New().
		Required("firstName", in.FirstName).
		Required("email", in.Email).
		Email("email", in.Email).
		MinLen("password", in.Password, minPasswordLen).
		Custom("confirmPassword", in.Password != confirm, "passwords do not match").
		Err()
}

// Verify confirms an email address with the token from the verification mail.
func (a *App) Verify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("verify <token>")
	}
	if err := a.Accounts.Verify(ctx, args[0]); err != nil {
		return err
	}
	a.println("Email verified. You can log in now.")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	var creds models.Credentials
	var err error
	if creds.Email, err = a.prompt("Email"); err != nil {
		return err
	}
	if creds.Password, err = a.password("Password"); err != nil {
		return err
	}

	if err := validate.New().
		Required("email", creds.Email).
		Email("email", creds.Email).
		Required("password", creds.Password).
		Err(); err != nil {
		return err
	}

	u, err := a.Session.Login(ctx, creds)
	if err != nil {
		return err
	}
	a.println("Welcome,", u.DisplayName()+"!")
	return nil
}

// Logout ends the session. The signed-out notice is printed by the session
// hook.
func (a *App) Logout(ctx context.Context) error {
	a.Session.Logout(ctx)
	return nil
}

// WhoAmI shows the current user and, for JWT tokens, when the session
// expires.
func (a *App) WhoAmI(ctx context.Context) error {
	u := a.Session.User()
	if u == nil {
		if hint := a.Session.CachedUser(ctx); hint != nil {
			a.println("Not signed in (last user:", hint.DisplayName()+")")
		} else {
			a.println("Not signed in")
		}
		return nil
	}

	a.printf("%s <%s>\n", u.DisplayName(), u.Email)
	if u.ID != "" {
		a.println("id:", u.ID)
	}
	if !u.Verified {
		a.println("email not verified")
	}

	info, err := auth.Inspect(a.Session.Token())
	if err != nil {
		a.log.Debug(ctx, "token is opaque", "error", err)
		return nil
	}
	switch t := now(); {
	case info.ExpiresAt.IsZero():
		a.println("session does not expire")
	case info.Expired(t):
		a.println("session expired", humanize.RelTime(info.ExpiresAt, t, "ago", "from now"))
	default:
		a.println("session expires", humanize.RelTime(info.ExpiresAt, t, "ago", "from now"))
	}
	return nil
}

// Refresh re-reads the user from the backend.
func (a *App) Refresh(ctx context.Context) error {
	u, err := a.Session.Refresh(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		a.println("Not signed in")
		return nil
	}
	a.println("Signed in as", u.DisplayName())
	return nil
}
