package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// DefaultCallbackAddr is where the local OAuth2 redirect listener binds.
const DefaultCallbackAddr = "localhost:8085"

// OAuth2Config holds what the interactive OAuth2 flow needs.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CallbackAddr string
	Timeout      time.Duration
}

func (c OAuth2Config) callbackAddr() string {
	if c.CallbackAddr == "" {
		return DefaultCallbackAddr
	}
	return c.CallbackAddr
}

func (c OAuth2Config) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  "http://" + c.callbackAddr() + "/callback",
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// AuthenticateInteractive runs the browser OAuth2 flow and returns a token
// carrying a refresh token. The URL to visit is passed to announce.
func AuthenticateInteractive(ctx context.Context, config OAuth2Config, announce func(authURL string)) (*oauth2.Token, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, errors.New("client ID and client secret are required")
	}

	oauthConfig := config.oauthConfig()
	state := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	fail := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			fail(errors.New("oauth callback state mismatch"))
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "no authorization code received", http.StatusBadRequest)
			fail(errors.New("no authorization code received"))
			return
		}
		select {
		case codeCh <- code:
		default:
		}
		_, _ = fmt.Fprint(w, "Authentication complete. You can close this window.")
	})

	listener, err := net.Listen("tcp", config.callbackAddr())
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			fail(fmt.Errorf("callback server: %w", serveErr))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	announce(oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-waitCtx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", waitCtx.Err())
	}

	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if config.TokenFile != "" {
		if err := SaveToken(config.TokenFile, token); err != nil {
			return token, err
		}
	}

	return token, nil
}

// LoadToken reads a token previously written by SaveToken.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return token, nil
}

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	return nil
}

// GetOrCreateToken returns the cached token when it has a refresh token and
// otherwise runs the interactive flow.
func GetOrCreateToken(ctx context.Context, config OAuth2Config, logger *slog.Logger, announce func(string)) (*oauth2.Token, error) {
	if config.TokenFile != "" {
		token, err := LoadToken(config.TokenFile)
		if err == nil && token.RefreshToken != "" {
			logger.Info("using cached sheets token", "file", config.TokenFile)
			return token, nil
		}
		logger.Debug("no usable cached token", "file", config.TokenFile, "error", err)
	}

	return AuthenticateInteractive(ctx, config, announce)
}
