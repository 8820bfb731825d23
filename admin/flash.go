// ABOUTME: One-shot flash messages carried across redirects in a cookie
// ABOUTME: Set before the redirect, consumed and cleared on the next render

package admin

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const (
	flashSuccess = "success"
	flashError   = "error"
)

// flashMessage is one notice shown on the page after a redirect.
type flashMessage struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

func (a *Admin) flashCookieName() string {
	return a.name + "_flash"
}

// setFlash stores a message for the next page render. The cookie is
// scoped to this admin's base path so two admins on one mux keep
// separate flashes.
func (a *Admin) setFlash(w http.ResponseWriter, message, category string) {
	payload, err := json.Marshal(flashMessage{Message: message, Category: category})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.flashCookieName(),
		Value:    base64.URLEncoding.EncodeToString(payload),
		Path:     a.basePath,
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// consumeFlash returns the pending message, if any, and clears it.
func (a *Admin) consumeFlash(w http.ResponseWriter, r *http.Request) *flashMessage {
	c, err := r.Cookie(a.flashCookieName())
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     a.flashCookieName(),
		Value:    "",
		Path:     a.basePath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	payload, err := base64.URLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msg flashMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil
	}
	return &msg
}
