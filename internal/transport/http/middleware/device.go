package middleware

import (
	"context"
	"net/http"
	"strings"
)

// DeviceHeader identifies the viewer's device. The viewer session store is
// keyed by it.
const DeviceHeader = "X-Device-ID"

const maxDeviceIDLen = 128

// RequireDevice rejects requests without a usable device id.
func RequireDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(DeviceHeader))
		if id == "" || len(id) > maxDeviceIDLen {
			writeJSONError(w, r, http.StatusBadRequest, "missing or invalid "+DeviceHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
	})
}

// OptionalDevice records the device id when one is sent and rejects only a
// malformed one.
func OptionalDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(DeviceHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id := strings.TrimSpace(raw)
		if id == "" || len(id) > maxDeviceIDLen {
			writeJSONError(w, r, http.StatusBadRequest, "missing or invalid "+DeviceHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
	})
}

func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceIDKey, id)
}

func DeviceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceIDKey).(string)
	return id, ok && id != ""
}
