package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/uploadvault/internal/common"
)

type setRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleListUsers(c *gin.Context) {
	list, err := s.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}

	c.JSON(http.StatusOK, gin.H{"users": out})
}

// handleCreateUser lets a superadmin provision an account directly. The new
// account starts with the default role; roles are assigned separately.
func (s *Server) handleCreateUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.NewValidationError("invalid request body"))
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

type updateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, common.NewValidationError("invalid request body"))
		return
	}

	user, err := s.users.Update(c.Request.Context(), c.Param("id"), req.Email, req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	// A superadmin cannot delete their own account; someone has to stay in
	// charge of the directory.
	if c.Param("id") == c.GetString(ctxUserID) {
		respondError(c, common.NewValidationError("cannot delete your own account"))
		return
	}

	if err := s.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleSetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Role == "" {
		respondError(c, common.NewValidationError("role is required"))
		return
	}

	if err := s.users.SetRole(c.Request.Context(), c.Param("id"), req.Role); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleRemoveRole(c *gin.Context) {
	if err := s.users.RemoveRole(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
