package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"starter-api/internal/domain"
	"starter-api/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	tokens *service.TokenService,
	authH *AuthHandler,
	userH *UserHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh-token", authH.RefreshToken)
	auth.POST("/forgot-password", authH.ForgotPassword)
	auth.POST("/verify-email", authH.VerifyEmail)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.POST("/change-password", AuthMiddleware(tokens, domain.RoleAdmin, domain.RoleUser), authH.ChangePassword)
	auth.POST("/logout", authH.Logout)

	users := r.Group("/users")
	users.GET("/:id", AuthMiddleware(tokens), userH.GetUser)
	users.GET("", AuthMiddleware(tokens, domain.RoleAdmin), userH.ListUsers)
	users.PATCH("/:id", AuthMiddleware(tokens), userH.UpdateUser)
	users.DELETE("/:id", AuthMiddleware(tokens, domain.RoleAdmin), userH.DeleteUser)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
