package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireDevice(t *testing.T) {
	var got string
	h := RequireDevice(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = DeviceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"present", " tv-42 ", http.StatusOK},
		{"missing", "", http.StatusBadRequest},
		{"too long", strings.Repeat("x", maxDeviceIDLen+1), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(DeviceHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "tv-42", got)
			}
		})
	}
}

func TestOptionalDevice(t *testing.T) {
	tests := []struct {
		name   string
		header string
		code   int
		want   string
	}{
		{"absent", "", http.StatusOK, ""},
		{"present", " tv-42 ", http.StatusOK, "tv-42"},
		{"blank", "   ", http.StatusBadRequest, ""},
		{"too long", strings.Repeat("x", maxDeviceIDLen+1), http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := OptionalDevice(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = DeviceIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(DeviceHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}
