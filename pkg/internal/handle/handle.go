// Package handle 提供HTTP请求处理器的实现，将请求解析后交给 service 层.
package handle

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opshub/opsvault/pkg/rule"
)

// checkUser 提取请求主体：认证中间件写入的身份优先，
// 其次 Header 与 query 参数，非 Release 模式下提供默认测试身份.
func checkUser(c *gin.Context) (string, error) {
	user := c.GetString(PrincipalKey)
	if user == "" {
		user = c.GetHeader("X-User")
	}

	if user == "" {
		user = c.Query("user")
	}

	if user == "" && gin.Mode() != gin.ReleaseMode {
		user = "test-user@example.com"
	}

	user = strings.TrimSpace(user)

	if err := rule.ValidateVar(user, "required,email"); err != nil {
		return "", err
	}

	return user, nil
}

// PrincipalKey 认证中间件在 gin 上下文中存放用户邮箱的键.
const PrincipalKey = "principal"
