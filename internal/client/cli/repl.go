package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Status(ctx context.Context) error
	SendVerification(ctx context.Context) error
	VerifyEmail(ctx context.Context) error
	SetupProfile(ctx context.Context) error
	UploadAvatar(ctx context.Context) error
	SetPricing(ctx context.Context) error
	SubmitPayout(ctx context.Context) error
	Ping(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the Pulse CLI.
//
// It reads a line from in, parses the first token as the command, and
// dispatches to methods on 'a'. Command errors are printed and the loop
// continues. The loop exits on EOF or when the user types "exit" or "quit".
//
//	Not logged in:
//	  help, register, login, ping, exit | quit
//
//	Logged in:
//	  help, me, status, send-code, verify, profile, avatar, pricing,
//	  payout, ping, logout, exit | quit
func runREPL(ctx context.Context, a execIface, statusFn func() string, in *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pulse %s > ", statusFn()))
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, status, send-code, verify, profile, avatar, pricing, payout, ping, logout, exit")
			} else {
				printlnFn("Available commands: register, login, ping, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "ping":
			cmdErr = a.Ping(ctx)

		case "me", "status", "send-code", "verify", "profile", "avatar", "pricing", "payout", "logout":
			if !a.isLoggedIn() {
				printlnFn("Please log in first.")
				continue
			}
			cmdErr = dispatchAuthed(ctx, a, cmd)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}
	}
}

func dispatchAuthed(ctx context.Context, a execIface, cmd string) error {
	switch cmd {
	case "me":
		return a.Me(ctx)
	case "status":
		return a.Status(ctx)
	case "send-code":
		return a.SendVerification(ctx)
	case "verify":
		return a.VerifyEmail(ctx)
	case "profile":
		return a.SetupProfile(ctx)
	case "avatar":
		return a.UploadAvatar(ctx)
	case "pricing":
		return a.SetPricing(ctx)
	case "payout":
		return a.SubmitPayout(ctx)
	case "logout":
		return a.Logout(ctx)
	}
	return nil
}
