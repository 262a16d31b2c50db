package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	DefaultPrompt         = "consent"
	DefaultLoadTimeout    = 15 * time.Second
	DefaultConsentTimeout = 5 * time.Minute
	callbackPath          = "/oauth2/callback"
)

// LoopbackTokenSource runs the OAuth authorization code flow with PKCE for
// an installed application: it listens on 127.0.0.1, hands the consent URL
// to OpenURL and waits for Google to redirect back.
type LoopbackTokenSource struct {
	// ClientSecret is optional for desktop clients.
	ClientSecret string
	// Endpoint defaults to Google.
	Endpoint oauth2.Endpoint
	// ListenAddr defaults to 127.0.0.1:0.
	ListenAddr string
	// OpenURL shows the consent URL to the operator. The default logs it.
	OpenURL func(authURL string) error
	// LoadTimeout bounds starting the listener and handing out the URL.
	LoadTimeout time.Duration
	// ConsentTimeout bounds the wait for the redirect.
	ConsentTimeout time.Duration
	Logger         *slog.Logger
}

type callbackResult struct {
	code string
	err  error
}

func (s *LoopbackTokenSource) AcquireToken(ctx context.Context, req TokenRequest) (Token, error) {
	clientID := strings.TrimSpace(req.ClientID)
	if clientID == "" {
		return Token{}, ErrClientIDRequired
	}
	scope := strings.TrimSpace(req.Scope)
	if scope == "" {
		scope = BusinessProfileScope
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, s.loadTimeout())
	defer cancelLoad()

	var lc net.ListenConfig
	ln, err := lc.Listen(loadCtx, "tcp", s.listenAddr())
	if err != nil {
		return Token{}, fmt.Errorf("%w: starting callback listener: %v", ErrIdentityServiceUnavailable, err)
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: s.ClientSecret,
		Endpoint:     s.endpoint(),
		RedirectURL:  "http://" + ln.Addr().String() + callbackPath,
		Scopes:       strings.Fields(scope),
	}
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go srv.Serve(ln)
	defer srv.Close()

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier)}
	if req.Prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", req.Prompt))
	}
	authURL := conf.AuthCodeURL(state, opts...)

	opened := make(chan error, 1)
	go func() { opened <- s.openURL(authURL) }()
	select {
	case err := <-opened:
		if err != nil {
			return Token{}, fmt.Errorf("%w: %v", ErrIdentityServiceUnavailable, err)
		}
	case <-loadCtx.Done():
		return Token{}, fmt.Errorf("%w: timed out opening the consent page", ErrIdentityServiceUnavailable)
	}

	var res callbackResult
	timer := time.NewTimer(s.consentTimeout())
	defer timer.Stop()
	select {
	case res = <-results:
	case <-timer.C:
		return Token{}, fmt.Errorf("%w: no answer from Google sign-in", ErrIdentityServiceUnavailable)
	case <-ctx.Done():
		return Token{}, ctx.Err()
	}
	if res.err != nil {
		return Token{}, res.err
	}

	issued := time.Now()
	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Token{}, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if tok.AccessToken == "" {
		return Token{}, errors.New("token missing from Google answer")
	}

	t := Token{AccessToken: tok.AccessToken, IssuedAt: issued}
	switch {
	case tok.ExpiresIn > 0:
		t.ExpiresIn = int(tok.ExpiresIn)
	case !tok.Expiry.IsZero():
		t.ExpiresIn = int(tok.Expiry.Sub(issued).Seconds())
	}
	return t, nil
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = errors.New("OAuth state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("Google sign-in failed: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("authorization code missing")
		default:
			res.code = q.Get("code")
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, res.err.Error())
		} else {
			fmt.Fprintln(w, "Connexion Google réussie, vous pouvez fermer cette fenêtre.")
		}

		select {
		case results <- res:
		default:
		}
	})
	return mux
}

func (s *LoopbackTokenSource) endpoint() oauth2.Endpoint {
	if s.Endpoint.AuthURL == "" {
		return endpoints.Google
	}
	return s.Endpoint
}

func (s *LoopbackTokenSource) listenAddr() string {
	if s.ListenAddr == "" {
		return "127.0.0.1:0"
	}
	return s.ListenAddr
}

func (s *LoopbackTokenSource) loadTimeout() time.Duration {
	if s.LoadTimeout <= 0 {
		return DefaultLoadTimeout
	}
	return s.LoadTimeout
}

func (s *LoopbackTokenSource) consentTimeout() time.Duration {
	if s.ConsentTimeout <= 0 {
		return DefaultConsentTimeout
	}
	return s.ConsentTimeout
}

func (s *LoopbackTokenSource) openURL(authURL string) error {
	if s.OpenURL != nil {
		return s.OpenURL(authURL)
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("open this address to connect Google", "url", authURL)
	return nil
}
