package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	DeviceHeader     = "X-Device-ID"
	deviceCookieName = "prometna_device"
	deviceCookieAge  = 400 * 24 * 60 * 60
)

type deviceKey struct{}

// WithDeviceID stores the device id on the context.
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceKey{}, id)
}

// DeviceID returns the device id set by IdentifyDevice, or "".
func DeviceID(ctx context.Context) string {
	id, _ := ctx.Value(deviceKey{}).(string)
	return id
}

// IdentifyDevice resolves the calling browser from the X-Device-ID header or the
// device cookie. Unknown browsers get a fresh id and a long-lived cookie.
func IdentifyDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := parseDeviceID(r.Header.Get(DeviceHeader))
		if id == "" {
			if c, err := r.Cookie(deviceCookieName); err == nil {
				id = parseDeviceID(c.Value)
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     deviceCookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   deviceCookieAge,
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
	})
}

func parseDeviceID(v string) string {
	u, err := uuid.Parse(strings.TrimSpace(v))
	if err != nil {
		return ""
	}
	return u.String()
}

// RequireAdminToken guards operator endpoints with a bearer token.
// An empty token disables the endpoint entirely.
func RequireAdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
