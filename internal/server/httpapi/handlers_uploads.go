package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/uploadvault/internal/common"
	"github.com/dmitrijs2005/uploadvault/internal/server/models"
	"github.com/dmitrijs2005/uploadvault/internal/server/uploads"
	"github.com/dmitrijs2005/uploadvault/internal/storage"
)

type resourceResponse struct {
	PublicID     string `json:"public_id"`
	SecureURL    string `json:"secure_url"`
	ResourceKind string `json:"resource_kind"`
	Bytes        int64  `json:"bytes"`
}

func toResourceResponse(r storage.Resource) resourceResponse {
	return resourceResponse{
		PublicID:     r.PublicID,
		SecureURL:    r.SecureURL,
		ResourceKind: r.ResourceKind,
		Bytes:        r.Bytes,
	}
}

// handleUploadAuthorization issues a signed grant for a direct upload. The
// authentication middleware has already established the session, so a
// signature is never computed for anonymous callers.
func (s *Server) handleUploadAuthorization(c *gin.Context) {
	var req uploads.AuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.NewValidationError("invalid request body"))
		return
	}

	grant, err := s.issuer.Authorize(req)
	if err != nil {
		s.logger.Error(c.Request.Context(), "upload authorization failed", "user", c.GetString(ctxUserID), "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, grant)
}

// handleProxyUpload accepts a multipart upload and forwards it to storage
// after validation and scanning.
func (s *Server) handleProxyUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, common.NewValidationError("file is required"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, common.ErrorInternal)
		return
	}
	defer f.Close()

	res, err := s.receiver.Receive(c.Request.Context(), fileHeader.Filename, fileHeader.Size, f)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": res.SecureURL, "filename": res.PublicID})
}

// handleListUploads returns the assets stored under the deployment
// namespace.
func (s *Server) handleListUploads(c *gin.Context) {
	resources, err := s.store.List(c.Request.Context(), s.cfg.StorageNamespace+"/")
	if err != nil {
		s.logger.Error(c.Request.Context(), "listing uploads failed", "error", err)
		respondError(c, common.ErrorInternal)
		return
	}

	out := make([]resourceResponse, 0, len(resources))
	for _, r := range resources {
		out = append(out, toResourceResponse(r))
	}

	c.JSON(http.StatusOK, gin.H{"resources": out})
}

// handleListRoles returns the assignable roles with their permission
// summaries.
func (s *Server) handleListRoles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"roles": models.AllRoles()})
}
