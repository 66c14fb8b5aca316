package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse is the envelope of every inkblog API reply. Code is 0 on
// success and a five digit code (HTTP status followed by a two digit reason) otherwise.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success wraps data in a code 0 envelope.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, JSONResponse{Code: 0, Message: "success", Data: data})
}

// Error writes an error envelope and aborts the handler chain.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.AbortWithStatusJSON(status, JSONResponse{Code: code, Message: message})
}

// CachedSuccess replays an envelope cached by CacheSetJSON, such as a post
// listing page, without decoding it.
func CachedSuccess(ctx *gin.Context, body []byte) {
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
