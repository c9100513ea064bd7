package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobExpiredLinkSweep = "links.expired.sweep"
	JobUsageSnapshot    = "usage.snapshot"
)

// Cron 表达式常量（可选，但推荐一并集中管理）.
const (
	CronExpiredLinkSweep = "*/30 * * * *"
	CronUsageSnapshot    = "15 * * * *"
)
