package conf

import "time"

type Bootstrap struct {
	Hostname string  `json:"hostname" yaml:"hostname"`
	PidFile  string  `json:"pidfile" yaml:"pidfile"`
	Logger   *Logger `json:"logger" yaml:"logger"`
	Server   *Server `json:"server" yaml:"server"`
	Admin    *Admin  `json:"admin" yaml:"admin"`
	Cache    *Cache  `json:"cache" yaml:"cache"`
	Origin   *Origin `json:"origin" yaml:"origin"`
}

type Logger struct {
	Level      string `json:"level" yaml:"level"`
	Path       string `json:"path" yaml:"path"`
	Caller     bool   `json:"caller" yaml:"caller"`
	MaxSize    int    `json:"max_size" yaml:"max_size"`
	MaxAge     int    `json:"max_age" yaml:"max_age"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

type Server struct {
	Addr        string           `json:"addr" yaml:"addr"`
	IdleTimeout time.Duration    `json:"idle_timeout" yaml:"idle_timeout"`
	AccessLog   *ServerAccessLog `json:"access_log" yaml:"access_log"`
}

type ServerAccessLog struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// Admin is the operational plane (metrics, probes, version). Disabled when
// Addr is empty.
type Admin struct {
	Addr string `json:"addr" yaml:"addr"`
}

type Cache struct {
	MaxObjectSize      int  `json:"max_object_size" yaml:"max_object_size"`
	MaxCacheSize       int  `json:"max_cache_size" yaml:"max_cache_size"`
	RefreshOnDuplicate bool `json:"refresh_on_duplicate" yaml:"refresh_on_duplicate"`
}

type Origin struct {
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// Default returns the built-in configuration; a config file overrides it
// field by field.
func Default() *Bootstrap {
	return &Bootstrap{
		Logger: &Logger{
			Level: "info",
		},
		Server: &Server{
			Addr: ":8080",
			AccessLog: &ServerAccessLog{
				Enabled: false,
			},
		},
		Admin: &Admin{},
		Cache: &Cache{
			MaxObjectSize: 100 * 1024,
			MaxCacheSize:  1024 * 1024,
		},
		Origin: &Origin{
			DialTimeout: 30 * time.Second,
		},
	}
}
