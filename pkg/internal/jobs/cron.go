// Package jobs 负责注册与实现业务定时任务（基于 scheduler）。
package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opshub/opsvault/pkg/cache"
	ctxPkg "github.com/opshub/opsvault/pkg/context"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage"
	"github.com/opshub/opsvault/pkg/log"
	"github.com/opshub/opsvault/pkg/metrics"
	"github.com/opshub/opsvault/pkg/scheduler"
)

// RegisterCronJobs 配置业务定时任务：
//   - 每 30 分钟清理已过期的公共链接行（过期判定以读取时点为准，
//     清理只是数据库卫生，不影响正确性）
//   - 每小时第 15 分钟刷新存储用量指标
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	_ = sched.AddCron(JobExpiredLinkSweep, CronExpiredLinkSweep, func(ctx context.Context) {
		runExpiredLinkSweep(ctx, mgr)
	}, baseCtx)

	_ = sched.AddCron(JobUsageSnapshot, CronUsageSnapshot, func(ctx context.Context) {
		runUsageSnapshot(ctx, mgr)
	}, baseCtx)

	return nil
}

// runExpiredLinkSweep 把早已过期的公共链接行清掉，并删除对应缓存条目.
func runExpiredLinkSweep(ctx context.Context, mgr *storage.Manager) {
	l := log.Logger().With().Str("job", JobExpiredLinkSweep).Logger()

	dbc := mgr.GetDBClient()
	if dbc == nil || dbc.GetDB() == nil {
		l.Error().Msg("db not initialized")
		return
	}

	gdb := dbc.GetDB().WithContext(ctx)
	now := time.Now().UTC()

	var expired []model.File
	if err := gdb.Where("is_public = ? AND public_expires_at IS NOT NULL AND public_expires_at < ?", true, now).
		Find(&expired).Error; err != nil {
		l.Error().Err(err).Msg("load expired links failed")
		return
	}

	if len(expired) == 0 {
		return
	}

	if err := gdb.Model(&model.File{}).
		Where("is_public = ? AND public_expires_at IS NOT NULL AND public_expires_at < ?", true, now).
		Updates(map[string]any{
			"is_public":         false,
			"public_token":      nil,
			"public_expires_at": nil,
		}).Error; err != nil {
		l.Error().Err(err).Msg("sweep expired links failed")
		return
	}

	if kvc := mgr.GetKVClient(); kvc != nil {
		c := cache.NewCache(kvc)

		for i := range expired {
			if expired[i].PublicToken == nil {
				continue
			}

			if err := c.Delete(ctx, "public:link:"+*expired[i].PublicToken); err != nil {
				l.Debug().Err(err).Msg("drop cached link failed")
			}
		}
	}

	l.Info().Int("swept", len(expired)).Msg("expired public links cleaned")
}

// runUsageSnapshot 刷新存储用量指标，三个聚合查询并发执行.
func runUsageSnapshot(ctx context.Context, mgr *storage.Manager) {
	l := log.Logger().With().Str("job", JobUsageSnapshot).Logger()

	dbc := mgr.GetDBClient()
	if dbc == nil || dbc.GetDB() == nil {
		l.Error().Msg("db not initialized")
		return
	}

	gdb := dbc.GetDB().WithContext(ctx)

	var (
		totalBytes  int64
		totalFiles  int64
		activeLinks int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// COALESCE 兜底空表
		return gdb.WithContext(gctx).Model(&model.File{}).
			Select("COALESCE(SUM(blob_size), 0)").Scan(&totalBytes).Error
	})

	g.Go(func() error {
		return gdb.WithContext(gctx).Model(&model.File{}).Count(&totalFiles).Error
	})

	g.Go(func() error {
		return gdb.WithContext(gctx).Model(&model.File{}).
			Where("is_public = ?", true).Count(&activeLinks).Error
	})

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Msg("usage snapshot failed")
		return
	}

	metrics.VaultBytesStored.Set(float64(totalBytes))
	metrics.VaultFilesTotal.Set(float64(totalFiles))
	metrics.VaultPublicLinksActive.Set(float64(activeLinks))

	l.Info().Int64("bytes", totalBytes).Int64("files", totalFiles).
		Int64("public_links", activeLinks).Msg("usage snapshot updated")
}
