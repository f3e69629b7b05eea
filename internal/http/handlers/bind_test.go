package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/signup", middlewares.MaxBodyBytes(256), func(ctx *gin.Context) {
		var req handlers.SignUpRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})
	return r
}

func postSignup(t *testing.T, body string) (*httptest.ResponseRecorder, bindErrorResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	bindRouter().ServeHTTP(w, req)

	var resp bindErrorResponse
	if w.Code != http.StatusCreated {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
		}
	}
	return w, resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w, resp := postSignup(t, `{"name":"`+strings.Repeat("a", 31)+`","email":"not-an-email","password":"123"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"name":     "max",
		"email":    "email",
		"password": "min",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Error.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Error.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_RequiredFields(t *testing.T) {
	w, resp := postSignup(t, `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if len(resp.Error.Details.Fields) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", resp.Error.Details.Fields)
	}
	for _, f := range resp.Error.Details.Fields {
		if f.Rule != "required" {
			t.Fatalf("field %q: got rule %q", f.Field, f.Rule)
		}
	}
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	w, resp := postSignup(t, `{"name":"Ann","email":"ann@x.com","password":123456}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if resp.Error.Details.Field != "password" {
		t.Fatalf("expected detail field to be password, got %q", resp.Error.Details.Field)
	}
	if len(resp.Error.Details.Fields) == 0 || resp.Error.Details.Fields[0].Rule != "type" {
		t.Fatalf("expected a type rule in details.fields, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_SyntaxAndEmptyBody(t *testing.T) {
	w, resp := postSignup(t, `{"name":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d", w.Code)
	}
	// a truncated document surfaces as unexpected EOF rather than a syntax error
	if resp.Error.Details.JSON == "" && resp.Error.Message == "" {
		t.Fatalf("expected error details, body=%s", w.Body.String())
	}

	w, resp = postSignup(t, `{"name" "Ann"}`)
	if w.Code != http.StatusBadRequest || resp.Error.Details.JSON != "invalid_json_syntax" {
		t.Fatalf("got %d %q", w.Code, resp.Error.Details.JSON)
	}

	w, resp = postSignup(t, ``)
	if w.Code != http.StatusBadRequest || resp.Error.Details.JSON != "empty_body" {
		t.Fatalf("got %d %q", w.Code, resp.Error.Details.JSON)
	}
}

func TestBindJSON_BodyTooLarge(t *testing.T) {
	w, resp := postSignup(t, `{"name":"`+strings.Repeat("a", 512)+`"}`)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if resp.Error.Code != "body_too_large" {
		t.Fatalf("unexpected code %q", resp.Error.Code)
	}
}

func TestBindJSON_UnknownFieldRejected(t *testing.T) {
	w, resp := postSignup(t, `{"name":"Ann","email":"ann@x.com","password":"secret1","role":"admin"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code %q", resp.Error.Code)
	}
	if resp.Error.Details.JSON != "unknown_field" || resp.Error.Details.Field != "role" {
		t.Fatalf("expected unknown_field role, got %q %q", resp.Error.Details.JSON, resp.Error.Details.Field)
	}
	if len(resp.Error.Details.Fields) != 1 || resp.Error.Details.Fields[0].Rule != "unknown" {
		t.Fatalf("unexpected fields %+v", resp.Error.Details.Fields)
	}
}
