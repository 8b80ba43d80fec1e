package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"starter-api/internal/service"
)

const (
	refreshCookieName   = "refreshToken"
	refreshCookieMaxAge = 7 * 24 * 60 * 60
)

// AuthHandler mantiene dependencias para endpoints de autenticación.
type AuthHandler struct {
	logger       *zap.Logger
	authServ     *service.AuthService
	cookieSecure bool
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		authServ:     authServ,
		cookieSecure: cookieSecure,
	}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.authServ.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			respondError(c, http.StatusBadRequest, "User with this email already exists")
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "could not register user")
		return
	}

	respond(c, http.StatusCreated, "User registered successfully", gin.H{"user": user})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.authServ.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, service.ErrNotVerified):
			respondError(c, http.StatusForbidden, "Please verify your email to login")
		default:
			h.logger.Error("login failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "could not login")
		}
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	respond(c, http.StatusOK, "User logged in successfully", gin.H{
		"user":        result.User,
		"accessToken": result.AccessToken,
	})
}

// RefreshToken maneja POST /auth/refresh-token. Lee el refresh token de la
// cookie y acepta el body como alternativa.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookieName)
	if err != nil || token == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			respondError(c, http.StatusUnauthorized, "missing refresh token")
			return
		}
		token = req.RefreshToken
	}

	accessToken, err := h.authServ.Refresh(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			respondError(c, http.StatusUnauthorized, "refresh token expired")
		case errors.Is(err, service.ErrTokenInvalid):
			respondError(c, http.StatusUnauthorized, "invalid refresh token")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		default:
			h.logger.Error("refresh failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "could not refresh token")
		}
		return
	}

	respond(c, http.StatusOK, "Access token refreshed successfully", gin.H{
		"accessToken": accessToken,
	})
}

// ForgotPassword maneja POST /auth/forgot-password.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authServ.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrRateLimited):
			respondError(c, http.StatusTooManyRequests, "too many requests")
		case errors.Is(err, service.ErrEmailSendFailure):
			respondError(c, http.StatusInternalServerError, "Failed to send email!")
		default:
			h.logger.Error("forgot password failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "could not process request")
		}
		return
	}

	respond(c, http.StatusOK, "OTP sent to your email", gin.H{
		"message": "OTP send to your email",
	})
}

// VerifyEmail maneja POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		OTP   string `json:"otp" binding:"required,len=6,numeric"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify email request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.authServ.VerifyEmail(c.Request.Context(), req.Email, req.OTP); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrOTPMissing):
			respondError(c, http.StatusNotFound, "otp not found")
		case errors.Is(err, service.ErrOTPExpired):
			respondError(c, http.StatusBadRequest, "OTP expired")
		case errors.Is(err, service.ErrOTPInvalid):
			respondError(c, http.StatusBadRequest, "Invalid OTP")
		default:
			h.logger.Error("verify email failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "could not verify email")
		}
		return
	}

	respond(c, http.StatusOK, "Email verified successfully", gin.H{
		"message": "Email verified successfully",
	})
}

// ResetPassword maneja POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		NewPassword string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	result, err := h.authServ.ResetPassword(c.Request.Context(), req.Email, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("reset password failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "could not reset password")
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	respond(c, http.StatusOK, "Password reset successfully", gin.H{
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

// ChangePassword maneja POST /auth/change-password. Requiere access token.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid change password request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid request")
		return
	}

	claims, ok := GetAuthClaims(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "You are not authorized!")
		return
	}

	if err := h.authServ.ChangePassword(c.Request.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, service.ErrPasswordMismatch):
			respondError(c, http.StatusBadRequest, "Password not matched")
		default:
			h.logger.Error("change password failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "could not change password")
		}
		return
	}

	respond(c, http.StatusOK, "Password changed successfully", gin.H{
		"message": "Password changed successfully",
	})
}

// Logout maneja POST /auth/logout: limpia la cookie del refresh token.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", h.cookieSecure, true)
	respond(c, http.StatusOK, "User logged out successfully", nil)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, token, refreshCookieMaxAge, "/", "", h.cookieSecure, true)
}
