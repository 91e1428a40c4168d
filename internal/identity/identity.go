// Package identity resolves the chat user behind an HTTP or WebSocket request.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/erp-assistant/internal/domain"
)

const (
	AnonCookieName   = "erp_anon_id"
	UserHeaderName   = "X-User-ID"
	NameHeaderName   = "X-User-Name"
	ChannelWeb       = "web"
	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const userKey contextKey = iota

var (
	anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,128}$`)
)

// UserFromContext returns the user injected by Middleware.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(userKey).(domain.User)
	return u, ok
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	u, _ := UserFromContext(ctx)
	return u.ID
}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func generateAnonID() string {
	return "anon_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func deriveUsername(userID string) string {
	if strings.HasPrefix(userID, "anon_") && len(userID) > 13 {
		return "anon-" + userID[len(userID)-8:]
	}
	return userID
}

func setAnonCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) string {
	var id string
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		id = c.Value
	} else {
		id = generateAnonID()
	}
	setAnonCookie(w, id, !isDev)
	return id
}

// FromRequest resolves the caller. An explicit, well-formed X-User-ID wins;
// otherwise the anonymous device cookie is reused or issued.
func FromRequest(w http.ResponseWriter, r *http.Request, isDev bool) domain.User {
	userID := strings.TrimSpace(r.Header.Get(UserHeaderName))
	if !userIDPattern.MatchString(userID) {
		userID = getOrCreateAnonID(w, r, isDev)
	}
	return domain.User{
		ID:        userID,
		Channel:   ChannelWeb,
		Username:  deriveUsername(userID),
		FirstName: strings.TrimSpace(r.Header.Get(NameHeaderName)),
	}
}

// Middleware injects the resolved chat user into the request context.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := FromRequest(w, r, isDev)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
