package configure

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kiosk404/mirror/internal/mirror/service/plugin"
	"github.com/kiosk404/mirror/pkg/utils/json"
)

const callbackPage = `<!doctype html><title>mirror</title><p>Authorization received. Return to the terminal.</p>`

// LoopbackOAuth runs the authorization-code flow from the terminal: it
// prints the authorization URL and receives the redirect on a local port.
type LoopbackOAuth struct {
	out    io.Writer
	client *http.Client

	redirect string
}

var _ plugin.OAuthHelper = (*LoopbackOAuth)(nil)

// NewLoopbackOAuth returns a helper that prints instructions to out.
func NewLoopbackOAuth(out io.Writer) *LoopbackOAuth {
	return &LoopbackOAuth{out: out, client: &http.Client{Timeout: 30 * time.Second}}
}

type callback struct {
	code, state string
	err         error
}

// Authorize listens on the host and port of req.RedirectURI, or on a random
// loopback port when it is empty, and waits for the provider's redirect.
func (o *LoopbackOAuth) Authorize(ctx context.Context, req plugin.AuthRequest) (string, string, error) {
	redirect := req.RedirectURI
	if redirect == "" {
		redirect = "http://127.0.0.1:0/callback"
	}
	ru, err := url.Parse(redirect)
	if err != nil {
		return "", "", fmt.Errorf("redirect uri: %w", err)
	}

	ln, err := net.Listen("tcp", ru.Host)
	if err != nil {
		return "", "", fmt.Errorf("listen for oauth redirect: %w", err)
	}
	ru.Host = ln.Addr().String()
	if ru.Path == "" {
		ru.Path = "/"
	}
	o.redirect = ru.String()

	state, err := randomState()
	if err != nil {
		ln.Close()
		return "", "", err
	}
	authURL, err := authorizationURL(req, o.redirect, state)
	if err != nil {
		ln.Close()
		return "", "", err
	}

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(ru.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		cb := callback{code: q.Get("code"), state: q.Get("state")}
		switch {
		case q.Get("error") != "":
			cb.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case cb.state != state:
			cb.err = errors.New("authorization state mismatch")
		case cb.code == "":
			cb.err = errors.New("authorization redirect without code")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, callbackPage)
		select {
		case results <- cb:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(o.out, "Open this URL in a browser to authorize:\n\n  %s\n\nWaiting for the redirect on %s ...\n", authURL, o.redirect)

	select {
	case cb := <-results:
		return cb.code, cb.state, cb.err
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// Exchange trades code for a token response at req.TokenURL.
func (o *LoopbackOAuth) Exchange(ctx context.Context, req plugin.AuthRequest, code string) (map[string]any, error) {
	redirect := req.RedirectURI
	if redirect == "" {
		redirect = o.redirect
	}
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {redirect},
		"client_id":    {req.ClientID},
	}
	if req.ClientSecret != "" {
		form.Set("client_secret", req.ClientSecret)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("token exchange: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var token map[string]any
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("token exchange: decode response: %w", err)
	}
	return token, nil
}

func authorizationURL(req plugin.AuthRequest, redirect, state string) (string, error) {
	u, err := url.Parse(req.AuthURL)
	if err != nil {
		return "", fmt.Errorf("authorization url: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", redirect)
	q.Set("state", state)
	if len(req.Scopes) > 0 {
		q.Set("scope", strings.Join(req.Scopes, " "))
	}
	for k, v := range req.Extra {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
