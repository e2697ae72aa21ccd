// Package config loads blackout settings from defaults, an optional YAML
// file and BLACKOUT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ytget/blackout/internal/logger"
	"github.com/ytget/blackout/internal/script"
	"github.com/ytget/blackout/pkg/client"
	"github.com/ytget/blackout/session"
	"github.com/ytget/blackout/youtube/playlist"
)

// DefaultPlaylistID is the playlist tracked when none is configured.
const DefaultPlaylistID = "PLISuFiQTdKDWLIeau9w3aVwtiFsKwarBe"

const (
	envPrefix       = "BLACKOUT"
	defaultBaseURL  = "https://www.youtube.com"
	defaultListen   = "127.0.0.1:8080"
	defaultTimeout  = 30 * time.Second
	defaultRetries  = 3
	envComponentKey = "BLACKOUT_LOG_COMPONENTS"
)

// Config is the full runtime configuration.
type Config struct {
	PlaylistID          string        `mapstructure:"playlist-id"`
	BaseURL             string        `mapstructure:"base-url"`
	Proxy               string        `mapstructure:"proxy"`
	UserAgent           string        `mapstructure:"user-agent"`
	Timeout             time.Duration `mapstructure:"timeout"`
	Retries             int           `mapstructure:"retries"`
	RescanDelay         time.Duration `mapstructure:"rescan-delay"`
	NavigateRescanDelay time.Duration `mapstructure:"navigate-rescan-delay"`
	RefreshInterval     time.Duration `mapstructure:"refresh-interval"`
	Script              string        `mapstructure:"script"`
	ScriptEngine        string        `mapstructure:"script-engine"`
	Listen              string        `mapstructure:"listen"`
	Output              string        `mapstructure:"output"`

	Log logger.LogConfig `mapstructure:"log"`
}

// Load reads configuration. An empty path skips the file; a path that does
// not exist is not an error.
func Load(path string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if os.Getenv(envComponentKey) != "" {
		cfg.Log.Components = logger.EnvironmentConfig().Components
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	logDefaults := logger.DefaultLogConfig()

	v.SetDefault("playlist-id", DefaultPlaylistID)
	v.SetDefault("base-url", defaultBaseURL)
	v.SetDefault("proxy", "")
	v.SetDefault("user-agent", "")
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("retries", defaultRetries)
	v.SetDefault("rescan-delay", session.DefaultRescanDelay)
	v.SetDefault("navigate-rescan-delay", session.DefaultNavigateRescanDelay)
	v.SetDefault("refresh-interval", time.Duration(0))
	v.SetDefault("script", "")
	v.SetDefault("script-engine", string(script.EngineGoja))
	v.SetDefault("listen", defaultListen)
	v.SetDefault("output", "")
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.output", logDefaults.Output)
	v.SetDefault("log.timestamp", logDefaults.Timestamp)
	// One leaf key per component, so BLACKOUT_LOG_COMPONENTS_<NAME> works and
	// the comma list in BLACKOUT_LOG_COMPONENTS is left to the logger.
	components := make(map[string]interface{}, len(logDefaults.Components))
	for name, on := range logDefaults.Components {
		components[name] = on
	}
	v.SetDefault("log.components", components)
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if strings.TrimSpace(c.PlaylistID) == "" {
		return errors.New("playlist-id is required")
	}
	if _, err := playlist.ParseID(c.PlaylistID); err != nil {
		return fmt.Errorf("playlist-id: %w", err)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", c.Retries)
	}
	if _, err := script.ParseEngine(c.ScriptEngine); err != nil {
		return err
	}
	if err := c.Log.ValidateConfig(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// ClientConfig returns the HTTP client settings.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		Timeout:   c.Timeout,
		Retries:   c.Retries,
		UserAgent: c.UserAgent,
		ProxyURL:  c.Proxy,
	}
}

// SessionConfig returns the session settings. The rewriter is left for the
// caller to fill in.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		PlaylistID:          c.PlaylistID,
		RescanDelay:         c.RescanDelay,
		NavigateRescanDelay: c.NavigateRescanDelay,
	}
}
