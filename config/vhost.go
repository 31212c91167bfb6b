// Package config implements the vhost configuration store the session
// driver resolves requests against and subscribes to for hot reload.
package config

import "time"

// Vhost holds the per-vhost configuration keys.
type Vhost struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Alias   string `yaml:"alias"` // vhost this one rewrites to, if any

	ReferAll     []string `yaml:"refer_all"`
	ReferPlay    []string `yaml:"refer_play"`
	ReferPublish []string `yaml:"refer_publish"`

	TcpNodelay      bool    `yaml:"tcp_nodelay"`
	RealtimeEnabled bool    `yaml:"realtime_enabled"`
	MwSleepMs       int     `yaml:"mw_sleep_ms"`
	SendMinInterval float64 `yaml:"send_min_interval"`

	GopCache  bool `yaml:"gop_cache"`
	ChunkSize int  `yaml:"chunk_size"`

	DebugSrsUpnode bool `yaml:"debug_srs_upnode"`
	BwCheckEnabled bool `yaml:"bw_check_enabled"`

	IsEdge            bool     `yaml:"is_edge"`
	EdgeTokenTraverse bool     `yaml:"edge_token_traverse"`
	EdgeOrigin        []string `yaml:"edge_origin"`

	PublishFirstPktTimeoutMs int `yaml:"publish_1stpkt_timeout"`
	PublishNormalTimeoutMs   int `yaml:"publish_normal_timeout"`

	MrEnabled  bool `yaml:"mr_enabled"`
	MrSleepMs  int  `yaml:"mr_sleep_ms"`

	HttpHooksEnabled bool     `yaml:"http_hooks_enabled"`
	OnConnect        []string `yaml:"on_connect"`
	OnClose          []string `yaml:"on_close"`
	OnPublish        []string `yaml:"on_publish"`
	OnUnpublish      []string `yaml:"on_unpublish"`
	OnPlay           []string `yaml:"on_play"`
	OnStop           []string `yaml:"on_stop"`

	StatsNetwork string `yaml:"stats_network"`
}

func defaultVhost(name string) *Vhost {
	return &Vhost{
		Name:                     name,
		Enabled:                  true,
		RealtimeEnabled:          false,
		MwSleepMs:                350,
		GopCache:                 true,
		ChunkSize:                60000,
		DebugSrsUpnode:           true,
		PublishFirstPktTimeoutMs: 20000,
		PublishNormalTimeoutMs:   5000,
	}
}

// MwSleep returns MwSleepMs as a time.Duration, defaulting to 350ms.
func (v *Vhost) MwSleep() time.Duration {
	if v.MwSleepMs <= 0 {
		return 350 * time.Millisecond
	}
	return time.Duration(v.MwSleepMs) * time.Millisecond
}

func (v *Vhost) SendMinIntervalDuration() time.Duration {
	if v.SendMinInterval <= 0 {
		return 0
	}
	return time.Duration(v.SendMinInterval * float64(time.Millisecond))
}

func (v *Vhost) PublishFirstPktTimeout() time.Duration {
	if v.PublishFirstPktTimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(v.PublishFirstPktTimeoutMs) * time.Millisecond
}

func (v *Vhost) PublishNormalTimeout() time.Duration {
	if v.PublishNormalTimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(v.PublishNormalTimeoutMs) * time.Millisecond
}
