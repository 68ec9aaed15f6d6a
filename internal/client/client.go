// Package client is a Go client for the places API. It keeps track of the calls it has
// in flight so a caller that goes away (a closed view, a cancelled command) can abort them all.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/domain/user"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu       sync.Mutex
	nextID   uint64
	inflight map[uint64]context.CancelFunc
}

// New builds a client for baseURL. A nil httpClient gets a 30s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		inflight:   make(map[uint64]context.CancelFunc),
	}
}

// CancelAll aborts every call still in flight. Their callers get context.Canceled.
func (c *Client) CancelAll() {
	c.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(c.inflight))
	for id, cancel := range c.inflight {
		cancels = append(cancels, cancel)
		delete(c.inflight, id)
	}
	c.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// InFlight reports how many calls are currently outstanding.
func (c *Client) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

func (c *Client) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.inflight[id] = cancel
	c.mu.Unlock()

	return ctx, func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
		cancel()
	}
}

func (c *Client) Signup(ctx context.Context, req user.SignupRequest, image io.Reader, filename string) (user.AuthResponse, error) {
	fields := map[string]string{
		"name":     req.Name,
		"email":    req.Email,
		"password": req.Password,
	}

	var resp user.AuthResponse
	err := c.doMultipart(ctx, http.MethodPost, "/api/users/signup", "", fields, image, filename, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, req user.LoginRequest) (user.AuthResponse, error) {
	var resp user.AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/users/login", "", req, &resp)
	return resp, err
}

func (c *Client) ListUsers(ctx context.Context) ([]user.User, error) {
	var resp struct {
		Users []user.User `json:"users"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/users", "", nil, &resp)
	return resp.Users, err
}

func (c *Client) GetPlace(ctx context.Context, id string) (place.Place, error) {
	var resp struct {
		Place place.Place `json:"place"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/places/"+url.PathEscape(id), "", nil, &resp)
	return resp.Place, err
}

func (c *Client) ListPlacesByUser(ctx context.Context, userID string) ([]place.Place, error) {
	var resp struct {
		Places []place.Place `json:"places"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/places/user/"+url.PathEscape(userID), "", nil, &resp)
	return resp.Places, err
}

func (c *Client) CreatePlace(ctx context.Context, token string, req place.CreatePlaceRequest, image io.Reader, filename string) (place.Place, error) {
	fields := map[string]string{
		"title":       req.Title,
		"description": req.Description,
		"address":     req.Address,
	}

	var resp struct {
		Place place.Place `json:"place"`
	}
	err := c.doMultipart(ctx, http.MethodPost, "/api/places", token, fields, image, filename, &resp)
	return resp.Place, err
}

func (c *Client) UpdatePlace(ctx context.Context, token, id string, req place.UpdatePlaceRequest) (place.Place, error) {
	var resp struct {
		Place place.Place `json:"place"`
	}
	err := c.doJSON(ctx, http.MethodPatch, "/api/places/"+url.PathEscape(id), token, req, &resp)
	return resp.Place, err
}

func (c *Client) DeletePlace(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/places/"+url.PathEscape(id), token, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, result any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, token, reader, contentType, result)
}

func (c *Client) doMultipart(ctx context.Context, method, path, token string, fields map[string]string, image io.Reader, filename string, result any) error {
	if image == nil {
		return errors.New("an image is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}

	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(fw, image); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	return c.do(ctx, method, path, token, &buf, mw.FormDataContentType(), result)
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, contentType string, result any) error {
	ctx, done := c.track(ctx)
	defer done()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read response body: %w", err)
	}

	// a call cancelled while the answer was arriving is dropped
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.Message == "" {
			envelope.Message = strings.TrimSpace(string(respBody))
		}
		return &APIError{Status: resp.StatusCode, Message: envelope.Message}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
