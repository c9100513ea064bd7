// Package storage 聚合数据库、对象存储、KV 缓存与消息队列客户端.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//	    // 处理错误
//	}
//
// 获取存储客户端
//
//	blob := mgr.GetS3Client()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"sync"

	"github.com/opshub/opsvault/pkg/configs"
	dbc "github.com/opshub/opsvault/pkg/internal/storage/db"
	kvc "github.com/opshub/opsvault/pkg/internal/storage/kv"
	mqc "github.com/opshub/opsvault/pkg/internal/storage/mq"
	s3c "github.com/opshub/opsvault/pkg/internal/storage/s3"
	nlog "github.com/opshub/opsvault/pkg/log"
)

// Manager 聚合所有存储资源.
// DB 与 Blob 是硬依赖，初始化失败直接报错；KV 与 MQ 是增强能力，连不上只降级告警.
type Manager struct {
	DB   *dbc.Client
	Blob s3c.BlobStore
	KV   *kvc.Client
	MQ   *mqc.Client
}

var (
	mgr     *Manager
	mgrOnce sync.Once
)

// Init 初始化默认存储，使用全局配置. 重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	var err error

	mgrOnce.Do(func() {
		cfg := configs.GetConfig()
		m := &Manager{}

		// DB
		dbi, e := dbc.New(ctx, &cfg.DB)
		if e != nil {
			err = e

			return
		}

		m.DB = dbi

		// Blob 存储，按配置包一层熔断
		s3i, e := s3c.New(ctx, &cfg.S3)
		if e != nil {
			err = e

			return
		}

		if cfg.CircuitBreaker.Enabled {
			m.Blob = s3c.NewBreakerStore(s3i, &cfg.CircuitBreaker)
		} else {
			m.Blob = s3i
		}

		// KV 缓存，失败降级为无缓存
		if kvi, e := kvc.NewKVClient(ctx); e != nil {
			nlog.Logger().Warn().Err(e).Msg("kv cache unavailable, running without cache")
		} else {
			m.KV = kvi
		}

		// MQ，失败降级为不发事件
		if cfg.Events.Enabled {
			if mqi, e := mqc.New(ctx); e != nil {
				nlog.Logger().Warn().Err(e).Msg("mq unavailable, events disabled")
			} else {
				m.MQ = mqi
			}
		}

		mgr = m

		nlog.Logger().Info().Msg("storage manager initialized")
	})

	return mgr, err
}

// NewManager 以显式客户端构造 Manager，测试使用.
func NewManager(db *dbc.Client, blob s3c.BlobStore, kv *kvc.Client, mq *mqc.Client) *Manager {
	return &Manager{DB: db, Blob: blob, KV: kv, MQ: mq}
}

// GetS3Client 获取 Blob 存储.
func (m *Manager) GetS3Client() s3c.BlobStore {
	return m.Blob
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端，未配置时返回 nil.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端，未配置时返回 nil.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// Close 释放所有存储资源.
func (m *Manager) Close() error {
	var err error

	if m.Blob != nil {
		if e := m.Blob.Close(); e != nil {
			err = e
		}
	}

	if m.KV != nil {
		if e := m.KV.Close(); e != nil {
			err = e
		}
	}

	if m.MQ != nil {
		if e := m.MQ.Close(); e != nil {
			err = e
		}
	}

	return err
}
