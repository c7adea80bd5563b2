package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/applytrack/internal/client/models"
	"github.com/dmitrijs2005/applytrack/internal/client/services"
	"github.com/dmitrijs2005/applytrack/internal/logging"
)

// Accounts covers the account calls that do not change the session.
type Accounts interface {
	Signup(ctx context.Context, in models.Signup) (*models.AuthResponse, error)
	Verify(ctx context.Context, token string) error
}

// Deps are the services the App drives.
type Deps struct {
	Accounts  Accounts
	Session   *services.Session
	Profiles  *services.Profiles
	Documents *services.Documents
	Jobs      *services.Jobs

	// DownloadDir is where download writes when no directory is given.
	DownloadDir string
}

type App struct {
	Deps
	log    logging.Logger
	reader *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	// pendingType is the document type of the upload in progress. It is
	// kept after a failed upload and cleared after a successful one.
	pendingType models.DocumentType
}

func NewApp(d Deps, in io.Reader, out io.Writer, log logging.Logger) *App {
	if log == nil {
		log = logging.Discard()
	}
	a := &App{Deps: d, log: log, reader: bufio.NewReader(in), out: out}
	d.Session.OnSignedOut(a.signedOut)
	return a
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	a.println("Welcome to applytrack (type 'help' for commands)")
	if u := a.Session.User(); u != nil {
		a.println("Signed in as", u.DisplayName())
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.Session.State() == services.StateAuthenticated
}

func (a *App) getStatus() string {
	if u := a.Session.User(); u != nil {
		return fmt.Sprintf("(%s) ", u.DisplayName())
	}
	return ""
}

func (a *App) signedOut() {
	a.pendingType = ""
	a.println("You have been signed out.")
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *App) prompt(text string) (string, error) {
	return getSimpleText(a.reader, text, a.out)
}

func (a *App) password(text string) (string, error) {
	pw, err := getPassword(a.reader, text, a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
