package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/applytrack/internal/client/client"
	"github.com/dmitrijs2005/applytrack/internal/validate"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Signup(ctx context.Context) error
	Verify(ctx context.Context, args []string) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Refresh(ctx context.Context) error

	Profile(ctx context.Context, args []string) error
	Skill(ctx context.Context, args []string) error

	Docs(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	RemoveDocument(ctx context.Context, args []string) error

	Jobs(ctx context.Context) error
	AddJob(ctx context.Context) error
	SetStatus(ctx context.Context, args []string) error
	RemoveJob(ctx context.Context, args []string) error
	Overview(ctx context.Context) error
}

const (
	helpAnonymous = "Available commands: signup, verify <token>, login, whoami, exit"
	helpSignedIn  = "Available commands: whoami, refresh, profile [edit|rm], skill add|rm <category> <value>, " +
		"docs [kind] [query], upload <path> [resume|cover-letter|other], download <id> [dir], rmdoc <id>, " +
		"jobs, addjob, status <id> <status>, rmjob <id>, overview, logout, exit"
)

// errUsage is returned by handlers whose arguments are missing.
type errUsage string

func (e errUsage) Error() string { return "Usage: " + string(e) }

// runREPL starts a simple read–eval–print loop for the applytrack CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that need a session are refused
// while signed out. Handler errors are printed and the loop continues. The
// loop exits on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("at %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}

		handler, public, ok := lookup(a, cmd)
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if !public && !a.isLoggedIn() {
			printlnFn("Please log in first.")
			continue
		}
		if err := handler(ctx, args); err != nil {
			printlnFn(describe(err))
		}
	}
}

type handlerFunc func(ctx context.Context, args []string) error

func noArgs(fn func(context.Context) error) handlerFunc {
	return func(ctx context.Context, _ []string) error { return fn(ctx) }
}

// lookup resolves cmd to its handler and whether it runs without a session.
func lookup(a execIface, cmd string) (handlerFunc, bool, bool) {
	switch cmd {
	case "help":
		return noArgs(func(context.Context) error {
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}
			return nil
		}), true, true
	case "signup", "register":
		return noArgs(a.Signup), true, true
	case "verify":
		return a.Verify, true, true
	case "login":
		return noArgs(a.Login), true, true
	case "whoami":
		return noArgs(a.WhoAmI), true, true
	case "logout":
		return noArgs(a.Logout), true, true
	case "refresh":
		return noArgs(a.Refresh), false, true
	case "profile":
		return a.Profile, false, true
	case "skill":
		return a.Skill, false, true
	case "docs":
		return a.Docs, false, true
	case "upload":
		return a.Upload, false, true
	case "download":
		return a.Download, false, true
	case "rmdoc":
		return a.RemoveDocument, false, true
	case "l", "jobs":
		return noArgs(a.Jobs), false, true
	case "addjob":
		return noArgs(a.AddJob), false, true
	case "status":
		return a.SetStatus, false, true
	case "rmjob":
		return a.RemoveJob, false, true
	case "overview":
		return noArgs(a.Overview), false, true
	}
	return nil, false, false
}

// describe turns a handler error into the line shown to the user.
func describe(err error) string {
	var usage errUsage
	if errors.As(err, &usage) {
		return usage.Error()
	}
	var verr *validate.Error
	if errors.As(err, &verr) {
		return "Invalid input: " + verr.Error()
	}
	if errors.Is(err, client.ErrUnauthorized) {
		return "Error: " + client.Message(err) + " (try 'login')"
	}
	return "Error: " + client.Message(err)
}
