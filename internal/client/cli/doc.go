// Package cli provides the interactive Pulse command-line client.
//
// It wires configuration, the token store, the API client and the Session,
// then runs a REPL. On start the stored session (if any) is restored; the
// user can then sign up, log in, inspect dashboard access and walk through
// creator onboarding.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
