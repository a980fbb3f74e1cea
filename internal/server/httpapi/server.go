// Package httpapi exposes the portal's HTTP surface: authentication, upload
// authorization and proxying, upload listings and user administration.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/uploadvault/internal/logging"
	"github.com/dmitrijs2005/uploadvault/internal/server/config"
	"github.com/dmitrijs2005/uploadvault/internal/server/models"
	"github.com/dmitrijs2005/uploadvault/internal/server/uploads"
	"github.com/dmitrijs2005/uploadvault/internal/server/users"
	"github.com/dmitrijs2005/uploadvault/internal/storage"
)

// Server wires the HTTP handlers to their services and owns the listener.
type Server struct {
	cfg    *config.Config
	logger logging.Logger

	users    *users.Service
	issuer   *uploads.Issuer
	receiver *uploads.Receiver
	store    storage.Provider
	rdb      *redis.Client

	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the router. The receiver may be nil in direct mode; the
// issuer may be nil in proxy mode. When rdb is non-nil, authenticated routes
// are rate limited per client.
func NewServer(cfg *config.Config, logger logging.Logger, userSvc *users.Service, issuer *uploads.Issuer, receiver *uploads.Receiver, store storage.Provider, rdb *redis.Client) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger.With("module", "httpapi"),
		users:    userSvc,
		issuer:   issuer,
		receiver: receiver,
		store:    store,
		rdb:      rdb,
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := s.engine.Group("/api/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
		authGroup.POST("/refresh", s.handleRefresh)
	}

	api := s.engine.Group("/api")
	api.Use(s.authenticate())
	if s.rdb != nil {
		api.Use(RateLimiter(s.rdb, s.cfg.RateLimitPerMinute, time.Minute, ClientRateLimit{}))
	}

	uploadRoles := s.requireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleManager, models.RoleUser)

	switch s.cfg.UploadMode {
	case config.UploadModeProxy:
		api.POST("/upload", uploadRoles, s.handleProxyUpload)
	default:
		api.POST("/upload-authorization", uploadRoles, s.handleUploadAuthorization)
	}

	api.GET("/uploads", s.handleListUploads)
	api.GET("/roles", s.handleListRoles)

	adminOnly := s.requireRole(models.RoleSuperAdmin)
	roleAdmins := s.requireRole(models.RoleSuperAdmin, models.RoleAdmin)

	usersGroup := api.Group("/users")
	{
		usersGroup.GET("", adminOnly, s.handleListUsers)
		usersGroup.POST("", adminOnly, s.handleCreateUser)
		usersGroup.PUT("/:id", adminOnly, s.handleUpdateUser)
		usersGroup.DELETE("/:id", adminOnly, s.handleDeleteUser)
		usersGroup.POST("/:id/role", roleAdmins, s.handleSetRole)
		usersGroup.DELETE("/:id/role", roleAdmins, s.handleRemoveRole)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    s.cfg.EndpointAddrHTTP,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.cfg.EndpointAddrHTTP, "mode", s.cfg.UploadMode)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info(shutdownCtx, "shutting down http server")
	return s.http.Shutdown(shutdownCtx)
}
