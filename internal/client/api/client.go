// Package api implements the HTTP client for the UploadVault server: login,
// token refresh, upload authorization requests and upload listing. It carries
// the session's access token on every call and transparently refreshes it
// once when the server reports expiry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/uploadvault/internal/client/uploader"
	"github.com/dmitrijs2005/uploadvault/internal/common"
)

var ErrUnavailable = errors.New("server unavailable")

// Resource is one stored asset as reported by the listing endpoint.
type Resource struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceKind string `json:"resource_kind"`
	Bytes        int64  `json:"bytes"`
}

// User is the directory entry shape returned by the user-management endpoints.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	accessToken  string
	refreshToken string
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpClient: &http.Client{}}
}

// LoggedIn reports whether the client holds a session token.
func (c *Client) LoggedIn() bool {
	return c.accessToken != ""
}

// errorBody is the uniform error envelope the server responds with.
type errorBody struct {
	Error string `json:"error"`
}

// doJSON performs one authenticated request with a JSON body (nil for none)
// and decodes a 2xx response into out (nil to discard). On a 401 caused by
// token expiry it refreshes the session once and retries.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	err := c.doJSONOnce(ctx, method, path, in, out)
	if err == nil {
		return nil
	}

	if errors.Is(err, common.ErrTokenExpired) && c.refreshToken != "" {
		if rerr := c.Refresh(ctx); rerr != nil {
			return err
		}
		return c.doJSONOnce(ctx, method, path, in, out)
	}

	return err
}

func (c *Client) doJSONOnce(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.Unmarshal(data, out)
	}

	return c.mapError(resp.StatusCode, data)
}

// mapError converts a non-2xx response into a sentinel or a message error.
func (c *Client) mapError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	switch status {
	case http.StatusBadRequest:
		if eb.Error != "" {
			return common.NewValidationError(eb.Error)
		}
		return common.ErrorValidation
	case http.StatusUnauthorized:
		if eb.Error == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return common.ErrorUnauthorized
	case http.StatusForbidden:
		return common.ErrorForbidden
	case http.StatusNotFound:
		return common.ErrorNotFound
	}

	if eb.Error != "" {
		return errors.New(eb.Error)
	}
	return fmt.Errorf("server error: status %d", status)
}

// Register creates a new account. The password slice is not retained.
func (c *Client) Register(ctx context.Context, email string, password []byte) error {
	in := map[string]string{"email": email, "password": string(password)}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", in, nil)
}

// Login authenticates and stores the session token pair on the client.
func (c *Client) Login(ctx context.Context, email string, password []byte) error {
	in := map[string]string{"email": email, "password": string(password)}
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.doJSONOnce(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return err
	}
	c.accessToken = out.AccessToken
	c.refreshToken = out.RefreshToken
	return nil
}

// Refresh swaps the refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context) error {
	in := map[string]string{"refresh_token": c.refreshToken}
	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.doJSONOnce(ctx, http.MethodPost, "/api/auth/refresh", in, &out); err != nil {
		return err
	}
	c.accessToken = out.AccessToken
	c.refreshToken = out.RefreshToken
	return nil
}

// UploadAuthorization requests a signed, single-use authorization for one
// direct upload. Implements uploader.AuthorizationClient.
func (c *Client) UploadAuthorization(ctx context.Context, filename, resourceKind string) (*uploader.Authorization, error) {
	in := map[string]string{"filename": filename, "resource_kind": resourceKind}
	var out uploader.Authorization
	if err := c.doJSON(ctx, http.MethodPost, "/api/upload-authorization", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUploads returns the stored assets under the deployment's namespace.
func (c *Client) ListUploads(ctx context.Context) ([]Resource, error) {
	var out struct {
		Resources []Resource `json:"resources"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/uploads", nil, &out); err != nil {
		return nil, err
	}
	return out.Resources, nil
}

// ListUsers returns the user directory (superadmin only).
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Ping probes server reachability.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ErrUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable
	}
	return nil
}
