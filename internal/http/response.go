package http

import "github.com/gin-gonic/gin"

// apiResponse es el sobre común de todas las respuestas del API.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, apiResponse{
		StatusCode: status,
		Success:    true,
		Message:    message,
		Data:       data,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, apiResponse{
		StatusCode: status,
		Success:    false,
		Message:    message,
	})
}
