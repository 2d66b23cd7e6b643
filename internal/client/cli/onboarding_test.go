package cli

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/client/client"
	"github.com/dmitrijs2005/pulse/internal/client/models"
	"github.com/stretchr/testify/require"
)

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "500", want: 50000},
		{in: "499.99", want: 49999},
		{in: "1,250.5", want: 125050},
		{in: " 12 ", want: 1200},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "NaN", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseCents(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	require.Equal(t, "500.00", formatCents(50000))
	require.Equal(t, "0.05", formatCents(5))
}

func TestSetPricing(t *testing.T) {
	lines := capturePrint(t)
	stubInputs(t, nil, "750")

	s := &fakeSession{user: &models.User{Email: "a@b.c"}}
	app, _ := newTestApp(s, &fakeAPI{})

	require.NoError(t, app.SetPricing(context.Background()))
	require.Equal(t, int64(75000), s.price)
	require.Contains(t, *lines, "Price set to KES 750.00.")
}

func TestSetPricing_InvalidAmountSkipsServer(t *testing.T) {
	capturePrint(t)
	stubInputs(t, nil, "free")

	s := &fakeSession{user: &models.User{}}
	app, _ := newTestApp(s, &fakeAPI{})

	require.Error(t, app.SetPricing(context.Background()))
	require.Zero(t, s.price)
}

func TestVerifyEmailAndPayout(t *testing.T) {
	capturePrint(t)
	stubInputs(t, nil, "123456", "+254700000000")

	s := &fakeSession{user: &models.User{}}
	app, _ := newTestApp(s, &fakeAPI{})

	require.NoError(t, app.VerifyEmail(context.Background()))
	require.NoError(t, app.SubmitPayout(context.Background()))
	require.Equal(t, "123456", s.code)
	require.Equal(t, "+254700000000", s.phone)
}

func TestSetupProfile_SenderDefaultsToNewsletter(t *testing.T) {
	capturePrint(t)
	stubInputs(t, nil, "Weekly Notes", "")

	s := &fakeSession{user: &models.User{}}
	app, _ := newTestApp(s, &fakeAPI{})

	require.NoError(t, app.SetupProfile(context.Background()))
	require.Equal(t, [2]string{"Weekly Notes", "Weekly Notes"}, s.profile)
}

func TestSendVerification_Error(t *testing.T) {
	capturePrint(t)
	s := &fakeSession{user: &models.User{}, err: client.ErrSessionExpired}
	app, _ := newTestApp(s, &fakeAPI{})

	require.ErrorIs(t, app.SendVerification(context.Background()), client.ErrSessionExpired)
}

func TestStatus_ListsFeatures(t *testing.T) {
	lines := capturePrint(t)
	s := &fakeSession{user: &models.User{CreatorStatus: access.StatusPricingSet}}
	app, out := newTestApp(s, &fakeAPI{})

	require.NoError(t, app.Status(context.Background()))
	require.Equal(t, 1, s.reloads)
	require.True(t, strings.HasPrefix((*lines)[0], "Pricing Set ("))

	for _, f := range access.Features() {
		require.Contains(t, out.String(), string(f))
	}
}

func TestMe(t *testing.T) {
	capturePrint(t)
	name, price := "Weekly Notes", int64(50000)
	s := &fakeSession{user: &models.User{
		Email:             "ann@example.com",
		FirstName:         "Ann",
		LastName:          "Doe",
		Role:              "creator",
		NewsletterName:    &name,
		SubscriptionPrice: &price,
	}}
	app, out := newTestApp(s, &fakeAPI{})

	require.NoError(t, app.Me(context.Background()))
	require.Contains(t, out.String(), "Ann Doe")
	require.Contains(t, out.String(), "Weekly Notes")
	require.Contains(t, out.String(), "KES 500.00")
}

func TestUploadAvatar(t *testing.T) {
	capturePrint(t)

	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
	stubInputs(t, nil, path)

	app, _ := newTestApp(&fakeSession{
		user:   &models.User{},
		upload: &client.AvatarUpload{Key: "avatars/u-1", URL: srv.URL + "/bucket/avatars/u-1"},
	}, &fakeAPI{})

	require.NoError(t, app.UploadAvatar(context.Background()))
	require.Equal(t, []byte("png"), got)
}

func TestUploadAvatar_ServerRejects(t *testing.T) {
	capturePrint(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "me.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
	stubInputs(t, nil, path)

	app, _ := newTestApp(&fakeSession{
		user:   &models.User{},
		upload: &client.AvatarUpload{URL: srv.URL},
	}, &fakeAPI{})

	require.ErrorContains(t, app.UploadAvatar(context.Background()), "403")
}
