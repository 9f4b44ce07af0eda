package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/ovenlight/bakeshop-api/internal/newsletter"
)

type newsletterRequest struct {
	Email  string `json:"email"`
	Source string `json:"source,omitempty"`
}

// NewsletterSignup subscribes an email address, throttled per client IP.
func (h *Handler) NewsletterSignup(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	source := req.Source
	if source == "" {
		source = "storefront"
	}

	err := h.news.Signup(r.Context(), req.Email, source, signupKey(r))
	switch {
	case errors.Is(err, newsletter.ErrRateLimited):
		respondError(w, r, http.StatusTooManyRequests, "too many signup attempts, try again later")
	case errors.Is(err, newsletter.ErrInvalidEmail):
		respondError(w, r, http.StatusBadRequest, "invalid email address")
	case err != nil:
		respondInternal(w, r, err)
	default:
		respondJSON(w, r, http.StatusAccepted, map[string]string{"status": "subscribed"})
	}
}

// signupKey identifies the client for throttling, preferring proxy headers.
func signupKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
