package s3

import (
	"context"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opshub/opsvault/pkg/configs"
	nlog "github.com/opshub/opsvault/pkg/log"
)

// BreakerStore 用 gobreaker 包装 BlobStore，后端持续失败时快速失败，
// 避免上传请求堆积在一个已经不可用的对象存储上.
type BreakerStore struct {
	inner BlobStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore 按熔断配置包装底层存储.
func NewBreakerStore(inner BlobStore, cfg *configs.CircuitBreakerConfig) *BreakerStore {
	settings := gobreaker.Settings{
		Name:        "blobstore",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)

			return failureRate >= cfg.FailureRate
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			nlog.Logger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("blob store breaker state changed")
		},
	}

	return &BreakerStore{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Put 经熔断器写入对象.
func (b *BreakerStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Put(ctx, key, reader, size, contentType)
	})

	return err
}

// Delete 经熔断器删除对象.
func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, key)
	})

	return err
}

// SignDownload 经熔断器生成下载URL.
func (b *BreakerStore) SignDownload(ctx context.Context, key string, expiry time.Duration, filename string) (string, error) {
	u, err := b.cb.Execute(func() (any, error) {
		return b.inner.SignDownload(ctx, key, expiry, filename)
	})
	if err != nil {
		return "", err
	}

	return u.(string), nil
}

// HealthCheck 不经熔断器，探活需要看到真实错误.
func (b *BreakerStore) HealthCheck(ctx context.Context) error {
	return b.inner.HealthCheck(ctx)
}

// Close 释放底层存储.
func (b *BreakerStore) Close() error {
	return b.inner.Close()
}
