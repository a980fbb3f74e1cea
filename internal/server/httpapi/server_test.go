package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/uploadvault/internal/common"
	"github.com/dmitrijs2005/uploadvault/internal/logging"
	"github.com/dmitrijs2005/uploadvault/internal/server/auth"
	"github.com/dmitrijs2005/uploadvault/internal/server/config"
	"github.com/dmitrijs2005/uploadvault/internal/server/models"
	"github.com/dmitrijs2005/uploadvault/internal/server/signer"
	"github.com/dmitrijs2005/uploadvault/internal/server/uploads"
	"github.com/dmitrijs2005/uploadvault/internal/server/users"
	"github.com/dmitrijs2005/uploadvault/internal/storage"
)

type memUserRepo struct {
	seq     int
	byEmail map[string]*models.User
	byID    map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: map[string]*models.User{}, byID: map[string]*models.User{}}
}

func (m *memUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := m.byEmail[user.Email]; ok {
		return nil, common.ErrorAlreadyExists
	}
	m.seq++
	user.ID = fmt.Sprintf("u-%d", m.seq)
	m.byEmail[user.Email] = user
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memUserRepo) List(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := m.byID[user.ID]; !ok {
		return common.ErrorNotFound
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func (m *memUserRepo) Delete(ctx context.Context, id string) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	delete(m.byID, id)
	delete(m.byEmail, u.Email)
	return nil
}

func (m *memUserRepo) SetRole(ctx context.Context, id string, role string) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Role = role
	return nil
}

type memTokenRepo struct {
	tokens map[string]*models.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]*models.RefreshToken{}}
}

func (m *memTokenRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	m.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (m *memTokenRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.tokens[token]; ok {
		return rt, nil
	}
	return nil, common.ErrorNotFound
}

func (m *memTokenRepo) Delete(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

type memStore struct {
	objects []storage.Resource
}

func (m *memStore) Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (storage.Resource, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.Resource{}, err
	}
	r := storage.Resource{PublicID: key, SecureURL: "http://store/" + key, ResourceKind: storage.KindForKey(key), Bytes: int64(len(data))}
	m.objects = append(m.objects, r)
	return r, nil
}

func (m *memStore) List(ctx context.Context, prefix string) ([]storage.Resource, error) {
	var out []storage.Resource
	for _, r := range m.objects {
		if strings.HasPrefix(r.PublicID, prefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

type testEnv struct {
	srv   *Server
	cfg   *config.Config
	repo  *memUserRepo
	store *memStore
}

func newTestEnv(t *testing.T, mode string) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.UploadMode = mode

	repo := newMemUserRepo()
	store := &memStore{}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	userSvc := users.NewService(repo, newMemTokenRepo(), cfg)
	issuer := uploads.NewIssuer(cfg.StorageNamespace, cfg.StorageAPIKey, cfg.StorageAPISecret)
	receiver := uploads.NewReceiver(store, cfg.StorageNamespace, nil, logger)

	srv := NewServer(cfg, logger, userSvc, issuer, receiver, store, nil)
	return &testEnv{srv: srv, cfg: cfg, repo: repo, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// registerAndLogin creates an account, optionally promotes it, and returns
// the access token.
func (e *testEnv) registerAndLogin(t *testing.T, email, role string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	if role != "" && role != models.RoleUser {
		id := decodeJSON(t, w)["id"].(string)
		require.NoError(t, e.repo.SetRole(context.Background(), id, role))
	}

	w = e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": "longenough",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decodeJSON(t, w)["access_token"].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadAuthorization_RequiresSession(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	w := env.do(t, http.MethodPost, "/api/upload-authorization", "", map[string]string{
		"filename": "a.png", "resource_kind": "image",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeJSON(t, w)["error"])
}

func TestUploadAuthorization_MissingFields(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)
	token := env.registerAndLogin(t, "alice@example.com", "")

	w := env.do(t, http.MethodPost, "/api/upload-authorization", token, map[string]string{
		"resource_kind": "image",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "filename is required", decodeJSON(t, w)["error"])
}

func TestUploadAuthorization_Success(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)
	token := env.registerAndLogin(t, "alice@example.com", "")

	w := env.do(t, http.MethodPost, "/api/upload-authorization", token, map[string]string{
		"filename": "report.csv", "resource_kind": "raw",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeJSON(t, w)
	assert.Equal(t, "vault", body["namespace"])
	assert.Equal(t, "vault/report.csv", body["object_key"])
	assert.Equal(t, env.cfg.StorageAPIKey, body["public_credential_id"])

	ts := int64(body["timestamp"].(float64))
	want := signer.Sign(map[string]string{
		"folder":    "vault",
		"public_id": "vault/report.csv",
		"timestamp": fmt.Sprintf("%d", ts),
	}, env.cfg.StorageAPISecret)
	assert.Equal(t, want, body["signature"])
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	stale, err := auth.GenerateToken("u-1", models.RoleUser, []byte(env.cfg.SecretKey), -time.Minute)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/uploads", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token expired", decodeJSON(t, w)["error"])
}

func TestRefresh_Flow(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	env.registerAndLogin(t, "alice@example.com", "")
	w := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusOK, w.Code)
	refresh := decodeJSON(t, w)["refresh_token"].(string)

	w = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code)
	next := decodeJSON(t, w)
	assert.NotEmpty(t, next["access_token"])
	assert.NotEqual(t, refresh, next["refresh_token"])

	// rotation: the old refresh token is now dead
	w = env.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProxyUpload_Success(t *testing.T) {
	env := newTestEnv(t, config.UploadModeProxy)
	token := env.registerAndLogin(t, "alice@example.com", "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "data.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("a,b,c\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["filename"], "vault/")
	require.Len(t, env.store.objects, 1)
}

func TestProxyUpload_RejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t, config.UploadModeProxy)
	token := env.registerAndLogin(t, "alice@example.com", "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "tool.exe")
	require.NoError(t, err)
	_, err = fw.Write([]byte("MZ"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File type not supported. Please upload JPG, PNG, JSON, or CSV files.", decodeJSON(t, w)["error"])
	assert.Empty(t, env.store.objects)
}

func TestListUploads(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)
	token := env.registerAndLogin(t, "alice@example.com", "")

	_, err := env.store.Put(context.Background(), "vault/a.png", "image/png", strings.NewReader("png"), 3)
	require.NoError(t, err)
	_, err = env.store.Put(context.Background(), "other/b.csv", "text/csv", strings.NewReader("csv"), 3)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/api/uploads", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	resources := body["resources"].([]any)
	require.Len(t, resources, 1)
	first := resources[0].(map[string]any)
	assert.Equal(t, "vault/a.png", first["public_id"])
	assert.Equal(t, "image", first["resource_kind"])
}

func TestListRoles(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)
	token := env.registerAndLogin(t, "alice@example.com", "")

	w := env.do(t, http.MethodGet, "/api/roles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	roles := decodeJSON(t, w)["roles"].([]any)
	assert.Len(t, roles, 5)
}

func TestGuestCannotUpload(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)
	token := env.registerAndLogin(t, "guest@example.com", models.RoleGuest)

	w := env.do(t, http.MethodPost, "/api/upload-authorization", token, map[string]string{
		"filename": "a.png", "resource_kind": "image",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUserManagement_RBAC(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	superToken := env.registerAndLogin(t, "root@example.com", models.RoleSuperAdmin)
	userToken := env.registerAndLogin(t, "bob@example.com", "")

	// plain users cannot list accounts
	w := env.do(t, http.MethodGet, "/api/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// superadmin can
	w = env.do(t, http.MethodGet, "/api/users", superToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON(t, w)["users"].([]any), 2)

	// superadmin creates an account
	w = env.do(t, http.MethodPost, "/api/users", superToken, map[string]string{
		"email": "carol@example.com", "password": "longenough", "first_name": "Carol",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	carolID := decodeJSON(t, w)["id"].(string)

	// assigns a role
	w = env.do(t, http.MethodPost, "/api/users/"+carolID+"/role", superToken, map[string]string{"role": "manager"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "manager", env.repo.byID[carolID].Role)

	// unknown role is rejected
	w = env.do(t, http.MethodPost, "/api/users/"+carolID+"/role", superToken, map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// removing the role reverts to the default
	w = env.do(t, http.MethodDelete, "/api/users/"+carolID+"/role", superToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.RoleUser, env.repo.byID[carolID].Role)

	// profile update
	w = env.do(t, http.MethodPut, "/api/users/"+carolID, superToken, map[string]string{
		"email": "carol@new.example.com", "first_name": "Carol", "last_name": "Jones",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "carol@new.example.com", decodeJSON(t, w)["email"])

	// delete
	w = env.do(t, http.MethodDelete, "/api/users/"+carolID, superToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/users/"+carolID, superToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminCanManageRolesButNotUsers(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	adminToken := env.registerAndLogin(t, "admin@example.com", models.RoleAdmin)
	env.registerAndLogin(t, "bob@example.com", "")

	var bobID string
	for id, u := range env.repo.byID {
		if u.Email == "bob@example.com" {
			bobID = id
		}
	}
	require.NotEmpty(t, bobID)

	// admins cannot list or delete accounts
	w := env.do(t, http.MethodGet, "/api/users", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodDelete, "/api/users/"+bobID, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// but they can assign roles
	w = env.do(t, http.MethodPost, "/api/users/"+bobID+"/role", adminToken, map[string]string{"role": "manager"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteSelf_Rejected(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	superToken := env.registerAndLogin(t, "root@example.com", models.RoleSuperAdmin)

	var rootID string
	for id, u := range env.repo.byID {
		if u.Email == "root@example.com" {
			rootID = id
		}
	}

	w := env.do(t, http.MethodDelete, "/api/users/"+rootID, superToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, config.UploadModeDirect)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "alice@example.com", "password": "longenough",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}
