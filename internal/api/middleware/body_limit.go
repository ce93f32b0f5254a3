package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrexo321/warga-nusa-sub000/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件。
// JSON 请求受 maxBytes 限制；multipart 请求（巡逻照片上传）受
// multipartMaxBytes 限制，上限需覆盖 storage.max_photo_bytes 加表单开销。
func BodyLimit(maxBytes, multipartMaxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
			limit = multipartMaxBytes
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.IsAborted() {
			return
		}
		for _, err := range c.Errors {
			if err.Err != nil && err.Err.Error() == "http: request body too large" {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
