// Package service 实现文件夹树、文件注册、共享授权与公共链接的核心业务逻辑.
// 服务对象按请求构造，存储客户端从请求上下文中取出.
package service

import (
	crand "crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid"
)

// 全局单例的 ULID 熵源，使用单调递增策略，确保同一毫秒内生成的 ULID 具有排序稳定性。
var ulidEntropy = ulid.Monotonic(crand.Reader, 0)

// 实体 ID 前缀.
const (
	folderIDPrefix = "fd_"
	fileIDPrefix   = "fl_"
	shareIDPrefix  = "sh_"
)

// newID 生成带前缀的 ULID 字符串，形如 "fd_01H..."，按时间可排序.
func newID(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), ulidEntropy)

	return prefix + id.String()
}

// buildBlobKey 构建对象存储键：owner/yyyy/mm/<ulid>_<name>.
// 键创建后不可变，重命名与移动都只改数据库元数据.
func buildBlobKey(owner, name string) string {
	now := time.Now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), ulidEntropy)

	return fmt.Sprintf("%s/%s/%s_%s", owner, now.Format("2006/01"), id.String(), name)
}
