// ABOUTME: Login wall protecting admin views behind a single credential pair
// ABOUTME: Serves login/logout pages and a Protect decorator for wrapped handlers

// Package loginwall gates HTTP handlers behind a username/password
// login. Protected requests without a valid session redirect to the
// login page and return to where they came from after signing in.
package loginwall

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Configuration errors
var (
	errMissingCredentials = errors.New("loginwall: username and password hash required")
	errMissingSecret      = errors.New("loginwall: signing secret required")
)

// SessionCookieName is the cookie holding the signed session token.
const SessionCookieName = "modeladmin_session"

// dummyHash keeps bcrypt comparison time flat when the username is
// wrong, so response timing does not reveal which part failed.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Options configures the wall's single credential pair and session
// behavior.
type Options struct {
	// Username and PasswordHash (bcrypt) are the one accepted login.
	Username     string
	PasswordHash string
	// Secret signs the session tokens.
	Secret []byte
	// SessionTTL bounds how long a login lasts. Defaults to 12 hours.
	SessionTTL time.Duration
}

// Wall holds the credential pair and session codec.
type Wall struct {
	username     string
	passwordHash string
	sessions     *JWTSessions
	ttl          time.Duration
	logger       *slog.Logger
}

// New builds a wall from the options. The credential pair and secret
// are required; there is no open mode.
func New(opts Options) (*Wall, error) {
	if opts.Username == "" || opts.PasswordHash == "" {
		return nil, errMissingCredentials
	}
	if len(opts.Secret) == 0 {
		return nil, errMissingSecret
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Wall{
		username:     opts.Username,
		passwordHash: opts.PasswordHash,
		sessions:     NewJWTSessions(opts.Secret),
		ttl:          ttl,
		logger:       slog.Default().With("component", "loginwall"),
	}, nil
}

// RegisterRoutes registers the login and logout pages.
func (wall *Wall) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /login/{$}", wall.handleLoginPage)
	mux.HandleFunc("POST /login/{$}", wall.handleLogin)
	mux.HandleFunc("GET /logout/{$}", wall.handleLogout)

	wall.logger.Info("login routes registered")
}

// Protect wraps a handler to require a valid session. Requests without
// one are sent to the login page with the original URL as the next
// parameter.
func (wall *Wall) Protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := wall.userFromSession(r); err != nil {
			target := "/login/?next=" + url.QueryEscape(requestURL(r))
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// userFromSession returns the username carried by the session cookie.
func (wall *Wall) userFromSession(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return wall.sessions.Verify(cookie.Value)
}

// handleLoginPage renders the login page
func (wall *Wall) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// Already logged in: skip straight to the destination.
	if _, err := wall.userFromSession(r); err == nil {
		http.Redirect(w, r, safeNext(r, r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	wall.renderLoginPage(w, "", r.URL.Query().Get("next"))
}

// handleLogin processes login form submission
func (wall *Wall) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		wall.renderLoginPage(w, "Invalid form data", "")
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	next := r.FormValue("next")

	if username == "" || password == "" {
		wall.renderLoginPage(w, "Username and password required", next)
		return
	}

	if username != wall.username {
		// Dummy bcrypt comparison to maintain constant timing
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		wall.renderLoginPage(w, "Invalid username or password", next)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(wall.passwordHash), []byte(password)); err != nil {
		wall.renderLoginPage(w, "Invalid username or password", next)
		return
	}

	token, err := wall.sessions.Generate(username, wall.ttl)
	if err != nil {
		wall.logger.Error("failed to generate session token", "error", err)
		wall.renderLoginPage(w, "An error occurred", next)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(wall.ttl),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	wall.logger.Info("login successful", "username", username)
	http.Redirect(w, r, safeNext(r, next), http.StatusSeeOther)
}

// handleLogout clears the session cookie
func (wall *Wall) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.Redirect(w, r, "/login/", http.StatusSeeOther)
}

// requestURL rebuilds the absolute URL of the request for the next
// parameter.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// safeNext resolves the post-login redirect target. Absolute URLs are
// honored only for this host; anything else falls back to the root, so
// the next parameter cannot redirect off-site.
func safeNext(r *http.Request, raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "/"
	}
	if u.Host != "" && u.Host != r.Host {
		return "/"
	}
	if !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
