package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"starter-api/internal/domain"
	"starter-api/internal/repository"
	"starter-api/internal/service"
)

// UserHandler mantiene dependencias para endpoints de usuarios.
type UserHandler struct {
	logger   *zap.Logger
	userServ *service.UserService
}

// NewUserHandler crea una instancia de UserHandler con dependencias necesarias.
func NewUserHandler(logger *zap.Logger, userServ *service.UserService) *UserHandler {
	return &UserHandler{
		logger:   logger,
		userServ: userServ,
	}
}

// GetUser maneja GET /users/:id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userServ.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("get user failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "could not get user")
		return
	}
	respond(c, http.StatusOK, "User retrieved successfully", gin.H{"user": user})
}

// ListUsers maneja GET /users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	filter := repository.UserFilter{
		SearchTerm: c.Query("searchTerm"),
		Role:       domain.Role(c.Query("role")),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if verified, err := strconv.ParseBool(c.Query("verified")); err == nil {
		filter.Verified = &verified
	}

	result, err := h.userServ.List(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrNoUsersFound) {
			respondError(c, http.StatusNotFound, "No users found")
			return
		}
		h.logger.Error("list users failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "could not list users")
		return
	}

	respond(c, http.StatusOK, "Users retrieved successfully", gin.H{
		"users": result.Users,
		"meta": gin.H{
			"total": result.Total,
			"page":  result.Page,
			"limit": result.Limit,
		},
	})
}

// UpdateUser maneja PATCH /users/:id con form multipart opcionalmente
// incluyendo una imagen de perfil.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	input := service.UpdateUserInput{}

	if v, ok := formValue(c, "first_name"); ok {
		input.FirstName = &v
	}
	if v, ok := formValue(c, "last_name"); ok {
		input.LastName = &v
	}
	if v, ok := formValue(c, "bio"); ok {
		input.Bio = &v
	}
	if v, ok := formValue(c, "phone"); ok {
		input.Phone = &v
	}
	if v, ok := formValue(c, "location"); ok {
		input.Location = &v
	}
	if v, ok := formValue(c, "role"); ok {
		role := domain.Role(v)
		if !role.IsValid() {
			respondError(c, http.StatusBadRequest, "invalid role")
			return
		}
		input.Role = &role
	}

	if fileHeader, err := c.FormFile("profileImage"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read uploaded file")
			return
		}
		defer file.Close()
		input.ImageName = fileHeader.Filename
		input.Image = file
	}

	user, err := h.userServ.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrUploadFailed):
			respondError(c, http.StatusInternalServerError, "Image upload failed")
		default:
			h.logger.Error("update user failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "could not update user")
		}
		return
	}

	respond(c, http.StatusOK, "User updated successfully", gin.H{"user": user})
}

// DeleteUser maneja DELETE /users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userServ.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("delete user failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "could not delete user")
		return
	}
	respond(c, http.StatusOK, "User deleted successfully", nil)
}

func formValue(c *gin.Context, key string) (string, bool) {
	if v, ok := c.GetPostForm(key); ok {
		return v, true
	}
	return "", false
}
