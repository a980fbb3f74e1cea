package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/uploadvault/internal/common"
)

func TestLogin_StoresTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "alice@example.com", in["email"])
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.False(t, c.LoggedIn())
	require.NoError(t, c.Login(context.Background(), "alice@example.com", []byte("secret")))
	assert.True(t, c.LoggedIn())
}

func TestLogin_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.Login(context.Background(), "alice@example.com", []byte("wrong"))
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestUploadAuthorization_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			w.Write([]byte(`{"access_token":"at","refresh_token":"rt"}`))
			return
		}
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"signature":"s","timestamp":123,"namespace":"vault","object_key":"vault/a.png","public_credential_id":"k","resource_kind":"image"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "a@b.c", []byte("pw")))

	auth, err := c.UploadAuthorization(context.Background(), "a.png", "image")
	require.NoError(t, err)
	assert.Equal(t, "Bearer at", gotAuth)
	assert.Equal(t, "vault/a.png", auth.ObjectKey)
	assert.Equal(t, int64(123), auth.Timestamp)
}

func TestDoJSON_RefreshesExpiredTokenOnce(t *testing.T) {
	step := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			w.Write([]byte(`{"access_token":"stale","refresh_token":"rt"}`))
		case "/api/upload-authorization":
			step++
			if r.Header.Get("Authorization") == "Bearer stale" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"token expired"}`))
				return
			}
			w.Write([]byte(`{"signature":"s","timestamp":1,"namespace":"n","object_key":"n/a.png","public_credential_id":"k","resource_kind":"image"}`))
		case "/api/auth/refresh":
			var in map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "rt", in["refresh_token"])
			w.Write([]byte(`{"access_token":"fresh","refresh_token":"rt2"}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "a@b.c", []byte("pw")))

	auth, err := c.UploadAuthorization(context.Background(), "a.png", "image")
	require.NoError(t, err)
	assert.Equal(t, "s", auth.Signature)
	assert.Equal(t, 2, step, "original call plus one retry")
}

func TestListUploads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/uploads", r.URL.Path)
		w.Write([]byte(`{"resources":[{"public_id":"vault/a.png","secure_url":"https://cdn/a.png","resource_kind":"image","bytes":42}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resources, err := c.ListUploads(context.Background())
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, "vault/a.png", resources[0].PublicID)
	assert.Equal(t, int64(42), resources[0].Bytes)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	c := NewClient(srv.URL)
	require.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}
