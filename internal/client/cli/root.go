package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	u := a.session.User()
	if u == nil {
		return "(guest)"
	}
	return fmt.Sprintf("(%s %s)", u.Email, a.session.StatusInfo().Label)
}

// Root restores any stored session and runs the REPL until exit.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to Pulse CLI (type 'help' for commands)")

	a.session.Init(ctx)
	if a.isLoggedIn() {
		printlnFn(fmt.Sprintf("Signed in as %s", a.session.User().Email))
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
