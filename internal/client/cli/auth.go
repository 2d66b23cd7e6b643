package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/pulse/internal/client/client"
	"github.com/dmitrijs2005/pulse/internal/client/models"
	"github.com/dmitrijs2005/pulse/internal/common"
)

// getSimpleText, getOptionalText and getPassword are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText   = GetSimpleText
	getOptionalText = GetOptionalText
	getPassword     = GetPassword
)

// Register prompts for account details and signs up. Creators are the
// default role; "subscriber" may be typed instead.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	first, err := getSimpleText(a.reader, "First name", a.out)
	if err != nil {
		return err
	}
	last, err := getSimpleText(a.reader, "Last name", a.out)
	if err != nil {
		return err
	}
	role, err := getOptionalText(a.reader, "Role (creator or subscriber)", "creator", a.out)
	if err != nil {
		return err
	}

	in := models.SignupRequest{
		Email:     email,
		Password:  string(password),
		FirstName: first,
		LastName:  last,
		Role:      strings.ToLower(role),
	}
	if err := a.session.Register(ctx, in); err != nil {
		return err
	}

	printlnFn("Account created.")
	return nil
}

// Login prompts for credentials and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Login(ctx, email, string(password)); err != nil {
		return err
	}
	printlnFn("Login successful")
	return nil
}

// Logout signs out locally and on the server.
func (a *App) Logout(ctx context.Context) error {
	a.session.Logout(ctx)
	return nil
}

func (a *App) Ping(ctx context.Context) error {
	if err := a.api.Ping(ctx); err != nil {
		return err
	}
	printlnFn("Server is reachable.")
	return nil
}

// describe renders err for the terminal.
func describe(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, client.ErrSessionExpired):
		return "your session has expired, please log in again"
	case errors.As(err, &apiErr):
		return apiErr.Error()
	}
	return err.Error()
}
