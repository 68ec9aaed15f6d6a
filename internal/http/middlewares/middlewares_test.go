package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/placeshub/internal/actorctx"
	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/auth"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type envelope struct {
	Message string `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, w.Body.String())
	}
	return env
}

// 1x1 transparent png
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fakeImages struct {
	mu      sync.Mutex
	saved   []string
	removed []string
	saveErr error
}

func (f *fakeImages) Save(ctx context.Context, ext, contentType string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := "uploads/images/test" + ext
	f.saved = append(f.saved, p)
	return p, nil
}

func (f *fakeImages) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

func multipartBody(t *testing.T, field string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, "upload.bin")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return body, mw.FormDataContentType()
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewManager("test-secret", time.Hour)
	valid, err := tokens.Issue("6f1c8b8e-1d1e-4c55-9c52-4a0b4b0f3b11", "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	expired, err := auth.NewManager("test-secret", time.Hour,
		auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })).Issue("u", "u@example.com")
	if err != nil {
		t.Fatal(err)
	}

	newRouter := func(reached *bool) *gin.Engine {
		r := gin.New()
		r.Use(ErrorHandler(discardLogger(), nil))
		handler := func(c *gin.Context) {
			*reached = true
			ginID, _ := UserIDFromContext(c)
			ctxID, _ := actorctx.UserIDFrom(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{"gin": ginID, "ctx": ctxID})
		}
		protected := r.Group("/", NewAuthMiddleware(tokens).RequireAuth())
		protected.POST("/private", handler)
		protected.OPTIONS("/private", handler)
		return r
	}

	tests := []struct {
		name       string
		method     string
		header     string
		wantStatus int
	}{
		{"missing header", http.MethodPost, "", http.StatusForbidden},
		{"not bearer", http.MethodPost, "Basic abc", http.StatusForbidden},
		{"empty bearer", http.MethodPost, "Bearer ", http.StatusForbidden},
		{"garbage token", http.MethodPost, "Bearer nope", http.StatusForbidden},
		{"expired token", http.MethodPost, "Bearer " + expired, http.StatusForbidden},
		{"valid token", http.MethodPost, "Bearer " + valid, http.StatusOK},
		{"preflight without token", http.MethodOptions, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			r := newRouter(&reached)

			req := httptest.NewRequest(tt.method, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusForbidden {
				if reached {
					t.Fatal("handler must not run without authentication")
				}
				if env := decodeEnvelope(t, w); env.Message != "Authentication failed!" {
					t.Fatalf("unexpected message %q", env.Message)
				}
			}

			if tt.name == "valid token" {
				var got map[string]string
				_ = json.Unmarshal(w.Body.Bytes(), &got)
				if got["gin"] != "6f1c8b8e-1d1e-4c55-9c52-4a0b4b0f3b11" || got["ctx"] != got["gin"] {
					t.Fatalf("user id not propagated: %v", got)
				}
			}
		})
	}
}

func TestErrorHandlerEnvelopeAndCleanup(t *testing.T) {
	images := &fakeImages{}

	r := gin.New()
	r.Use(ErrorHandler(discardLogger(), images))
	r.POST("/tagged", func(c *gin.Context) {
		c.Set(CtxUploadPath, "uploads/images/orphan.png")
		_ = c.Error(apperr.Validation("Invalid inputs passed, please check your data.").WithDetails([]string{"title"}))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(errors.New("db exploded"))
	})
	r.GET("/ok", func(c *gin.Context) {
		c.Set(CtxUploadPath, "uploads/images/kept.png")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tagged", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got %d, want 422", w.Code)
	}
	var body struct {
		Message string   `json:"message"`
		Details []string `json:"details"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Message != "Invalid inputs passed, please check your data." || len(body.Details) != 1 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Message != "An unknown error occurred!" {
		t.Fatalf("internal details leaked: %q", env.Message)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if len(images.removed) != 1 || images.removed[0] != "uploads/images/orphan.png" {
		t.Fatalf("expected only the orphaned upload to be removed, got %v", images.removed)
	}
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(discardLogger()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Message == "" {
		t.Fatal("expected a message")
	}
}

func TestPanicAfterUploadRemovesImage(t *testing.T) {
	images := &fakeImages{}

	r := gin.New()
	r.Use(Recovery(discardLogger()))
	r.Use(ErrorHandler(discardLogger(), images))
	r.POST("/boom", func(c *gin.Context) {
		c.Set(CtxUploadPath, "uploads/images/orphan.png")
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", w.Code)
	}
	if env := decodeEnvelope(t, w); env.Message != "An unknown error occurred!" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if len(images.removed) != 1 || images.removed[0] != "uploads/images/orphan.png" {
		t.Fatalf("expected the upload to be removed, got %v", images.removed)
	}
}

func TestImageUpload(t *testing.T) {
	newRouter := func(images *fakeImages) *gin.Engine {
		r := gin.New()
		r.Use(ErrorHandler(discardLogger(), images))
		r.POST("/upload", ImageUpload(images, 1024), func(c *gin.Context) {
			p, _ := UploadedPath(c)
			c.JSON(http.StatusCreated, gin.H{"path": p, "title": c.PostForm("title")})
		})
		return r
	}

	t.Run("png accepted", func(t *testing.T) {
		images := &fakeImages{}
		body, ct := multipartBody(t, "image", pngBytes, map[string]string{"title": "Home"})
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		w := httptest.NewRecorder()
		newRouter(images).ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("got %d, body=%s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), "uploads/images/test.png") || !strings.Contains(w.Body.String(), "Home") {
			t.Fatalf("unexpected body %s", w.Body.String())
		}
	})

	rejected := []struct {
		name    string
		field   string
		content []byte
	}{
		{"text disguised as image", "image", []byte("definitely not a picture")},
		{"missing file", "", nil},
		{"wrong field", "avatar", pngBytes},
		{"too large", "image", append(append([]byte{}, pngBytes...), make([]byte, 2048)...)},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			images := &fakeImages{}
			body, ct := multipartBody(t, tt.field, tt.content, nil)
			req := httptest.NewRequest(http.MethodPost, "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			newRouter(images).ServeHTTP(w, req)

			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("got %d, want 422, body=%s", w.Code, w.Body.String())
			}
			if len(images.saved) != 0 {
				t.Fatalf("nothing should be stored, got %v", images.saved)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.Use(ErrorHandler(discardLogger(), nil))
	r.POST("/login", rl.RateLimiterMiddleware(KeyByIP), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		return w
	}

	for i := 0; i < 2; i++ {
		if w := do(); w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, w.Code)
		}
	}

	w := do()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}

	now = now.Add(61 * time.Second)
	if w := do(); w.Code != http.StatusOK {
		t.Fatalf("new window should allow, got %d", w.Code)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(discardLogger(), nil))
	r.PATCH("/x", RequireJSON(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPatch, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d, want 415", w.Code)
	}

	req = httptest.NewRequest(http.MethodPatch, "/x", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.DELETE("/api/places/:pid", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/places/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "DELETE")
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("PATCH must be allowed: %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}
