package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeParser map[string]int64

func (f fakeParser) Parse(token string) (int64, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return 0, errors.New("bad token")
}

func TestAuth(t *testing.T) {
	var seen int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(fakeParser{"good": 7})(next)

	tests := []struct {
		name   string
		header string
		status int
		userID int64
	}{
		{"valid", "Bearer good", http.StatusNoContent, 7},
		{"missing", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, 0},
		{"bad token", "Bearer nope", http.StatusUnauthorized, 0},
	}
	for _, tt := range tests {
		seen = 0
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.status)
		}
		if seen != tt.userID {
			t.Errorf("%s: user id = %d, want %d", tt.name, seen, tt.userID)
		}
	}
}
