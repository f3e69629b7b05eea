package middlewares

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/gin-gonic/gin"
)

type fakeAuthenticator struct {
	authenticateFn func(r *http.Request) (auth.Identity, error)
}

func (f *fakeAuthenticator) Authenticate(r *http.Request) (auth.Identity, error) {
	return f.authenticateFn(r)
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	return r
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name     string
		authErr  error
		wantCode int
		wantBody string
	}{
		{name: "authenticated", wantCode: http.StatusOK, wantBody: "u1"},
		{name: "unauthenticated", authErr: auth.ErrUnauthenticated, wantCode: http.StatusUnauthorized, wantBody: `"unauthenticated"`},
		{name: "wrapped unauthenticated", authErr: errors.Join(auth.ErrUnauthenticated, auth.ErrTokenExpired), wantCode: http.StatusUnauthorized, wantBody: `"unauthenticated"`},
		{name: "store outage", authErr: errors.New("db down"), wantCode: http.StatusInternalServerError, wantBody: `"internal_error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := &fakeAuthenticator{authenticateFn: func(*http.Request) (auth.Identity, error) {
				if tt.authErr != nil {
					return auth.Identity{}, tt.authErr
				}
				return auth.Identity{UserID: "u1", Email: "ann@x.com"}, nil
			}}

			r := newTestEngine()
			r.GET("/me", NewAuthMiddleware(authn, nil).RequireAuth(), func(c *gin.Context) {
				id, ok := IdentityFromContext(c)
				if !ok {
					c.Status(http.StatusTeapot)
					return
				}
				fromCtx, _ := actorctx.IdentityFrom(c.Request.Context())
				if fromCtx != id {
					c.Status(http.StatusTeapot)
					return
				}
				c.String(http.StatusOK, id.UserID)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

			if w.Code != tt.wantCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Fatalf("body %q does not contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newTestEngine()
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, actorctx.RequestIDFrom(c.Request.Context()))
	})

	// echoes a caller-supplied id
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("header = %q", got)
	}
	if w.Body.String() != "abc-123" {
		t.Fatalf("context request id = %q", w.Body.String())
	}

	// generates one otherwise
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get("X-Request-Id") == "" || w.Body.String() != w.Header().Get("X-Request-Id") {
		t.Fatalf("expected generated request id, header=%q body=%q", w.Header().Get("X-Request-Id"), w.Body.String())
	}
}

func TestRequireJSON(t *testing.T) {
	r := newTestEngine()
	r.Use(RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		method, contentType string
		want                int
	}{
		{http.MethodPost, "application/json", http.StatusNoContent},
		{http.MethodPost, "application/json; charset=utf-8", http.StatusNoContent},
		{http.MethodPost, "text/plain", http.StatusUnsupportedMediaType},
		{http.MethodPost, "", http.StatusUnsupportedMediaType},
		{http.MethodGet, "", http.StatusNoContent},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/x", bytes.NewBufferString(`{}`))
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tc.want {
			t.Fatalf("%s %q: got %d, want %d", tc.method, tc.contentType, w.Code, tc.want)
		}
	}
}

func TestMaxBodyBytes(t *testing.T) {
	r := newTestEngine()
	r.Use(MaxBodyBytes(8))
	r.POST("/x", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("0123456789")))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("small")))
	if w.Code != http.StatusNoContent {
		t.Fatalf("got %d", w.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	r := newTestEngine()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("missing allow-origin")
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow-origin for unknown origin")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := newTestEngine()
	r.Use(SecurityHeaders())
	r.GET("/docs", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/x", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/x", nil))
	if w.Header().Get("Content-Security-Policy") != defaultCSP {
		t.Fatalf("csp = %q", w.Header().Get("Content-Security-Policy"))
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs", nil))
	if w.Header().Get("Content-Security-Policy") != swaggerCSP {
		t.Fatalf("docs csp = %q", w.Header().Get("Content-Security-Policy"))
	}
}

func TestAbortJSON_IncludesRequestID(t *testing.T) {
	r := newTestEngine()
	r.GET("/x", func(c *gin.Context) { abortJSON(c, http.StatusUnauthorized, "unauthenticated", "nope") })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"requestId"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error.Code != "unauthenticated" || body.Error.RequestID != "rid-1" {
		t.Fatalf("unexpected body %+v", body)
	}
}
