package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/netx"
)

var errNoUser = errors.New("no user loaded")

// uploadFile is a test seam for the presigned PUT of an avatar.
var uploadFile = func(ctx context.Context, url, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	return netx.UploadToPresignedURL(ctx, nil, url, f, st.Size(), mime.TypeByExtension(filepath.Ext(path)))
}

// Me prints the signed-in account.
func (a *App) Me(ctx context.Context) error {
	if err := a.session.Reload(ctx); err != nil {
		return err
	}
	u := a.session.User()
	if u == nil {
		return errNoUser
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s\n", u.FullName())
	fmt.Fprintf(w, "Email\t%s\n", u.Email)
	fmt.Fprintf(w, "Role\t%s\n", u.Role)
	fmt.Fprintf(w, "Email verified\t%t\n", u.EmailVerified)
	if u.NewsletterName != nil {
		fmt.Fprintf(w, "Newsletter\t%s\n", *u.NewsletterName)
	}
	if u.SubscriptionPrice != nil {
		fmt.Fprintf(w, "Price\tKES %s\n", formatCents(*u.SubscriptionPrice))
	}
	if u.PayoutPhone != nil {
		fmt.Fprintf(w, "Payout phone\t%s\n", *u.PayoutPhone)
	}
	return w.Flush()
}

// Status prints the onboarding position and which features are open.
func (a *App) Status(ctx context.Context) error {
	if err := a.session.Reload(ctx); err != nil {
		return err
	}
	info := a.session.StatusInfo()
	acc := a.session.Access()

	printlnFn(fmt.Sprintf("%s (%d%%): %s", info.Label, a.session.Progress(), info.Description))
	if acc.IsReadOnly {
		printlnFn("Dashboard is read-only.")
	}
	if acc.ShowMockData {
		printlnFn("Analytics show sample data until you start earning.")
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, f := range access.Features() {
		fa := acc.Features[f]
		state := "locked"
		if fa.Enabled {
			state = "open"
		}
		detail := fa.Reason
		if fa.Note != "" {
			detail = fa.Note
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", f, state, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if acc.NextStep != nil {
		printlnFn(fmt.Sprintf("Next: %s. %s", acc.NextStep.Title, acc.NextStep.Description))
	}
	return nil
}

func (a *App) SendVerification(ctx context.Context) error {
	if err := a.session.ResendVerification(ctx); err != nil {
		return err
	}
	printlnFn("Verification code sent. Check your inbox.")
	return nil
}

func (a *App) VerifyEmail(ctx context.Context) error {
	code, err := getSimpleText(a.reader, "Verification code", a.out)
	if err != nil {
		return err
	}
	if err := a.session.VerifyEmail(ctx, code); err != nil {
		return err
	}
	printlnFn("Email verified.")
	return nil
}

func (a *App) SetupProfile(ctx context.Context) error {
	def := ""
	if u := a.session.User(); u != nil && u.NewsletterName != nil {
		def = *u.NewsletterName
	}
	newsletter, err := getOptionalText(a.reader, "Newsletter name", def, a.out)
	if err != nil {
		return err
	}
	sender, err := getOptionalText(a.reader, "Sender name", newsletter, a.out)
	if err != nil {
		return err
	}
	if err := a.session.SetupProfile(ctx, newsletter, sender); err != nil {
		return err
	}
	printlnFn("Profile saved.")
	return nil
}

// UploadAvatar asks the server for a presigned URL and PUTs a local image
// to it.
func (a *App) UploadAvatar(ctx context.Context) error {
	path, err := getSimpleText(a.reader, "Path to image", a.out)
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("no file given")
	}

	up, err := a.session.AvatarUploadURL(ctx)
	if err != nil {
		return err
	}
	if err := uploadFile(ctx, up.URL, path); err != nil {
		return err
	}
	printlnFn("Avatar uploaded.")
	return nil
}

func (a *App) SetPricing(ctx context.Context) error {
	raw, err := getSimpleText(a.reader, "Monthly price in KES", a.out)
	if err != nil {
		return err
	}
	cents, err := parseCents(raw)
	if err != nil {
		return err
	}
	if err := a.session.SetPricing(ctx, cents); err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("Price set to KES %s.", formatCents(cents)))
	return nil
}

func (a *App) SubmitPayout(ctx context.Context) error {
	phone, err := getSimpleText(a.reader, "M-Pesa phone number", a.out)
	if err != nil {
		return err
	}
	if err := a.session.SubmitPayout(ctx, phone); err != nil {
		return err
	}
	printlnFn("Payout details submitted for review.")
	return nil
}

// parseCents turns "500" or "499.99" into minor units.
func parseCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if v <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return int64(math.Round(v * 100)), nil
}

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}
