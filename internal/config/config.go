// Package config loads the operator settings of benneadmin: defaults, then
// an optional YAML file, then BENNE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/mickael31/location-benne-occitanie/internal/util"
	"github.com/mickael31/location-benne-occitanie/remote"
	"github.com/mickael31/location-benne-occitanie/remote/github"
	"github.com/mickael31/location-benne-occitanie/reviews"
	"github.com/mickael31/location-benne-occitanie/siteconfig"
)

// AppName names the XDG directories.
const AppName = "benneadmin"

const (
	EnvPrefix = "BENNE"

	DefaultAddr        = "127.0.0.1:8080"
	DefaultSessionTTL  = 12 * time.Hour
	DefaultIdleTimeout = 30 * time.Minute
)

// Store backends.
const (
	StoreGitHub = "github"
	StoreGit    = "git"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionBolt   = "bbolt"
	SessionRedis  = "redis"
)

type GitHub struct {
	Owner        string   `mapstructure:"owner"`
	Repo         string   `mapstructure:"repo"`
	Branch       string   `mapstructure:"branch"`
	Path         string   `mapstructure:"path"`
	AllowedUsers []string `mapstructure:"allowed_users"`
	APIURL       string   `mapstructure:"api_url"`
	// Token is used by the non-interactive commands. The console asks the
	// operator instead.
	Token string `mapstructure:"token"`
}

type Store struct {
	Backend string `mapstructure:"backend"`
	GitDir  string `mapstructure:"git_dir"`
}

type Google struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Scope        string `mapstructure:"scope"`
	Account      string `mapstructure:"account"`
	Location     string `mapstructure:"location"`
	// AccessToken lets the review commands skip the consent flow.
	AccessToken string `mapstructure:"access_token"`
}

type Server struct {
	Addr           string        `mapstructure:"addr"`
	SiteDir        string        `mapstructure:"site_dir"`
	SessionBackend string        `mapstructure:"session_backend"`
	BoltPath       string        `mapstructure:"bolt_path"`
	RedisURL       string        `mapstructure:"redis_url"`
	SessionKey     string        `mapstructure:"session_key"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// Settings is the full operator configuration.
type Settings struct {
	GitHub  GitHub `mapstructure:"github"`
	Store   Store  `mapstructure:"store"`
	Google  Google `mapstructure:"google"`
	Server  Server `mapstructure:"server"`
	Verbose bool   `mapstructure:"verbose"`

	// ConfigFile is the file that was read, empty if none.
	ConfigFile string `mapstructure:"-"`
}

// ConfigDir is $XDG_CONFIG_HOME/benneadmin.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir is $XDG_DATA_HOME/benneadmin.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func setDefaults(v *viper.Viper) {
	gh := siteconfig.Default().Admin.GitHub
	v.SetDefault("github.owner", gh.Owner)
	v.SetDefault("github.repo", gh.Repo)
	v.SetDefault("github.branch", gh.Branch)
	v.SetDefault("github.path", gh.Path)
	v.SetDefault("github.allowed_users", gh.AllowedUsers)
	v.SetDefault("github.api_url", github.DefaultBaseURL)
	v.SetDefault("github.token", "")

	v.SetDefault("store.backend", StoreGitHub)
	v.SetDefault("store.git_dir", filepath.Join(DataDir(), "repos"))

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.scope", reviews.BusinessProfileScope)
	v.SetDefault("google.account", "")
	v.SetDefault("google.location", "")
	v.SetDefault("google.access_token", "")

	v.SetDefault("server.addr", DefaultAddr)
	v.SetDefault("server.site_dir", "")
	v.SetDefault("server.session_backend", SessionMemory)
	v.SetDefault("server.bolt_path", filepath.Join(DataDir(), "sessions.db"))
	v.SetDefault("server.redis_url", "")
	v.SetDefault("server.session_key", "")
	v.SetDefault("server.session_ttl", DefaultSessionTTL)
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("verbose", false)
}

// Load reads the settings. An explicit path must exist; without one the
// file in ConfigDir is optional.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}
	s.ConfigFile = v.ConfigFileUsed()
	s.GitHub.AllowedUsers = splitList(s.GitHub.AllowedUsers)
	s.Server.TrustedProxies = splitList(s.Server.TrustedProxies)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the enumerated settings and their dependencies.
func (s Settings) Validate() error {
	switch s.Store.Backend {
	case StoreGitHub:
	case StoreGit:
		if s.Store.GitDir == "" {
			return errors.New("store.git_dir is required with the git backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", s.Store.Backend)
	}

	switch s.Server.SessionBackend {
	case SessionMemory:
	case SessionBolt:
		if s.Server.BoltPath == "" {
			return errors.New("server.bolt_path is required with the bbolt session backend")
		}
	case SessionRedis:
		if s.Server.RedisURL == "" {
			return errors.New("server.redis_url is required with the redis session backend")
		}
	default:
		return fmt.Errorf("unknown server.session_backend %q", s.Server.SessionBackend)
	}

	if s.Server.SessionKey != "" {
		key, err := util.DecodeBase64(s.Server.SessionKey)
		if err != nil || len(key) != util.AESKeySize {
			return fmt.Errorf("server.session_key must be %d bytes of base64", util.AESKeySize)
		}
	}
	if s.Server.SessionTTL < 0 || s.Server.IdleTimeout < 0 {
		return errors.New("session durations must not be negative")
	}
	return nil
}

// Location is the document location the settings point at.
func (s Settings) Location() remote.Location {
	return remote.Location{
		Owner:  strings.TrimSpace(s.GitHub.Owner),
		Repo:   strings.TrimSpace(s.GitHub.Repo),
		Branch: strings.TrimSpace(s.GitHub.Branch),
		Path:   strings.TrimSpace(s.GitHub.Path),
	}
}

// SessionKey returns the configured sealing key, or a fresh random one
// when none is set. A random key does not survive a restart.
func (s Settings) SessionKey() ([]byte, error) {
	if s.Server.SessionKey == "" {
		return util.NewAESKey()
	}
	return util.DecodeBase64(s.Server.SessionKey)
}
