package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/internal/service"
	"github.com/opshub/opsvault/pkg/log"
)

// respond 统一成功响应体.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError 把业务错误映射为 HTTP 状态码，响应体统一为 {success, message}.
// 未识别的错误一律 500，细节只进日志不出响应.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrGone):
		status = http.StatusGone
	case errors.Is(err, service.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrBackendUnavailable):
		status = http.StatusServiceUnavailable
	default:
		log.Logger().Error().Err(err).
			Str("path", c.FullPath()).
			Msg("request failed")

		message = "internal server error"
	}

	c.JSON(status, gin.H{"success": false, "message": message})
}

// badRequest 参数解析失败的快捷响应.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": msg})
}
