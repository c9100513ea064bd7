package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分领域）。
type EventsConfig struct {
	Enabled bool               `mapstructure:"enabled"` // 总开关
	Object  ObjectEventsConfig `mapstructure:"object"`
	Folder  FolderEventsConfig `mapstructure:"folder"`
	Share   ShareEventsConfig  `mapstructure:"share"`
	Link    LinkEventsConfig   `mapstructure:"link"`
}

// ObjectEventsConfig 针对文件对象领域的事件开关。
type ObjectEventsConfig struct {
	Stored  bool `mapstructure:"stored"`
	Deleted bool `mapstructure:"deleted"`
	Renamed bool `mapstructure:"renamed"`
	Moved   bool `mapstructure:"moved"`
}

// FolderEventsConfig 针对文件夹领域的事件开关。
type FolderEventsConfig struct {
	Created bool `mapstructure:"created"`
	Renamed bool `mapstructure:"renamed"`
	Deleted bool `mapstructure:"deleted"`
}

// ShareEventsConfig 针对共享领域的事件开关。
type ShareEventsConfig struct {
	Granted bool `mapstructure:"granted"`
	Revoked bool `mapstructure:"revoked"`
}

// LinkEventsConfig 针对公共链接领域的事件开关。
type LinkEventsConfig struct {
	Issued  bool `mapstructure:"issued"`
	Revoked bool `mapstructure:"revoked"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 对象领域的事件：默认仅开启最小必要集，避免噪声过大
	v.SetDefault("events.object.stored", true)
	v.SetDefault("events.object.deleted", true)
	v.SetDefault("events.object.renamed", false)
	v.SetDefault("events.object.moved", false)

	// 文件夹领域：删除级联影响面大，默认开启
	v.SetDefault("events.folder.created", false)
	v.SetDefault("events.folder.renamed", false)
	v.SetDefault("events.folder.deleted", true)

	// 共享与公共链接：授权变化默认开启，便于审计
	v.SetDefault("events.share.granted", true)
	v.SetDefault("events.share.revoked", true)
	v.SetDefault("events.link.issued", true)
	v.SetDefault("events.link.revoked", true)
}
