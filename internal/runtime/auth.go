// internal/runtime/auth.go
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	gc "github.com/Twine-Labs/instantly-email-warming-filter/internal/gmail"
)

// ErrMissingClientSecret is returned when the OAuth client secret file does
// not exist. The operator has to download one from the Google console; the
// process exits cleanly rather than retrying.
var ErrMissingClientSecret = errors.New("client secret file not found")

// Options locates the two credential files the filter depends on.
type Options struct {
	ClientSecretFile string // OAuth client registration, e.g. client_secret.json
	CredentialsFile  string // persisted user token, e.g. credentials.json
}

// HasToken reports whether a persisted user token exists.
func HasToken(opts Options) bool {
	_, err := os.Stat(opts.CredentialsFile)
	return err == nil
}

// NewGmailClient builds an authenticated Gmail client. When no token file
// exists it runs the interactive authorization flow and persists the result.
// The returned bool is true when a fresh login happened.
func NewGmailClient(ctx context.Context, opts Options, logger *slog.Logger) (gc.Client, bool, error) {
	b, err := os.ReadFile(opts.ClientSecretFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, fmt.Errorf("%w: %s", ErrMissingClientSecret, opts.ClientSecretFile)
		}
		return nil, false, fmt.Errorf("read client secret: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, gmail.GmailModifyScope, "openid")
	if err != nil {
		return nil, false, fmt.Errorf("parse client secret: %w", err)
	}

	loggedIn := false
	tok, err := tokenFromFile(opts.CredentialsFile)
	if err != nil {
		logger.Info("no stored credentials, starting interactive login", "path", opts.CredentialsFile)
		tok, err = tokenFromWeb(ctx, conf)
		if err != nil {
			return nil, false, fmt.Errorf("interactive login: %w", err)
		}
		if err := saveToken(opts.CredentialsFile, tok); err != nil {
			return nil, false, err
		}
		loggedIn = true
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, tok)))
	if err != nil {
		return nil, false, fmt.Errorf("create gmail service: %w", err)
	}
	return NewGoogleAPIClient(svc), loggedIn, nil
}

// tokenFromWeb walks the operator through the auth-code flow on the terminal.
func tokenFromWeb(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}
	tok, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create token file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("encode token file %s: %w", path, err)
	}
	return nil
}

func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
