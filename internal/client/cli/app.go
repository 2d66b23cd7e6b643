package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/pulse/internal/access"
	"github.com/dmitrijs2005/pulse/internal/client/client"
	"github.com/dmitrijs2005/pulse/internal/client/config"
	"github.com/dmitrijs2005/pulse/internal/client/models"
	"github.com/dmitrijs2005/pulse/internal/client/services"
	"github.com/dmitrijs2005/pulse/internal/client/session"
	"github.com/dmitrijs2005/pulse/internal/filex"
	"github.com/dmitrijs2005/pulse/internal/logging"
)

// sessionService is the part of *services.Session the commands use.
type sessionService interface {
	Init(ctx context.Context)
	Register(ctx context.Context, in models.SignupRequest) error
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context)
	User() *models.User
	IsAuthenticated() bool
	Access() access.DashboardAccess
	Progress() int
	StatusInfo() access.StatusInfo
	Reload(ctx context.Context) error
	ResendVerification(ctx context.Context) error
	VerifyEmail(ctx context.Context, code string) error
	SetupProfile(ctx context.Context, newsletterName, senderName string) error
	SetPricing(ctx context.Context, priceCents int64) error
	SubmitPayout(ctx context.Context, phone string) error
	AvatarUploadURL(ctx context.Context) (*client.AvatarUpload, error)
}

// apiService is the part of *client.Client used directly by commands.
type apiService interface {
	Ping(ctx context.Context) error
	State() client.State
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	api     apiService
	session sessionService
	reader  *bufio.Reader
	out     io.Writer

	mu     sync.Mutex
	screen string
}

// NewApp opens the configured token store and builds the API client and
// session on top of it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, "text", c.LogLevel)

	a := &App{
		config: c,
		logger: logger,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	var store session.TokenStore
	switch c.Store {
	case config.StoreCookie:
		cs, err := session.NewCookieStore(c.ServerURL)
		if err != nil {
			return nil, err
		}
		store = cs
	default:
		if err := filex.EnsureParentDir(c.DBFile); err != nil {
			return nil, err
		}
		db, err := session.OpenDatabase(ctx, c.DBFile)
		if err != nil {
			return nil, fmt.Errorf("error initializing database: %w", err)
		}
		a.db = db
		store = session.NewSQLiteStore(db)
	}

	api := client.New(c.ServerURL, store,
		client.WithNavigator(a),
		client.WithLogger(logger),
		client.WithTimeout(c.RequestTimeout),
	)
	a.api = api
	a.session = services.NewSession(api, a, logger)
	return a, nil
}

// Navigate implements client.Navigator for a terminal: it announces the
// screen change.
func (a *App) Navigate(path string) {
	a.mu.Lock()
	changed := a.screen != path
	a.screen = path
	a.mu.Unlock()

	if !changed {
		return
	}
	switch path {
	case client.LoginPath:
		printlnFn("You are signed out. Type 'login' to sign in.")
	case client.DashboardPath:
		if u := a.session.User(); u != nil {
			printlnFn(fmt.Sprintf("Welcome, %s!", u.FullName()))
		}
	}
}

func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}
