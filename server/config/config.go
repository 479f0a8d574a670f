package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	Server         ServerConfig    `yaml:"server" mapstructure:"server"`
	Logging        LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Paths          PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Provision      ProvisionConfig `yaml:"provision" mapstructure:"provision"`
	Runtime        RuntimeConfig   `yaml:"runtime" mapstructure:"runtime"`
	Limits         LimitsConfig    `yaml:"limits" mapstructure:"limits"`
	Authentication AuthConfig      `yaml:"authentication" mapstructure:"authentication"`
	OpenId         OpenIdConfig    `yaml:"openid" mapstructure:"openid"`
	path           string
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Host    string `yaml:"host" mapstructure:"host"`
	Port    int    `yaml:"port" mapstructure:"port"`
}

type LoggingConfig struct {
	LogPath           string `yaml:"log_path" mapstructure:"log_path"`
	EnableFileLogging bool   `yaml:"enable_file_logging" mapstructure:"enable_file_logging"`
}

// PathsConfig holds the candidate locations of the extraction tool.
// DownloaderPath is an explicit override and is trusted as-is.
type PathsConfig struct {
	DownloaderPath string `yaml:"downloader_path" mapstructure:"downloader_path"`
	BundledPath    string `yaml:"bundled_path" mapstructure:"bundled_path"`
	ScratchPath    string `yaml:"scratch_path" mapstructure:"scratch_path"`
}

type ProvisionConfig struct {
	URL          string        `yaml:"url" mapstructure:"url"`
	MaxRedirects int           `yaml:"max_redirects" mapstructure:"max_redirects"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RuntimeConfig describes the deployment environment.
// PostProcessing is one of "auto", "enabled" or "disabled".
type RuntimeConfig struct {
	PostProcessing string `yaml:"post_processing" mapstructure:"post_processing"`
}

type LimitsConfig struct {
	MetadataTimeout  time.Duration `yaml:"metadata_timeout" mapstructure:"metadata_timeout"`
	MetadataMaxBytes int64         `yaml:"metadata_max_bytes" mapstructure:"metadata_max_bytes"`
	StreamTimeout    time.Duration `yaml:"stream_timeout" mapstructure:"stream_timeout"`
}

type AuthConfig struct {
	RequireAuth  bool   `yaml:"require_auth" mapstructure:"require_auth"`
	Username     string `yaml:"username" mapstructure:"username"`
	PasswordHash string `yaml:"password" mapstructure:"password"`
	JWTSecret    string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type OpenIdConfig struct {
	UseOpenId      bool     `yaml:"use_openid" mapstructure:"use_openid"`
	ProviderURL    string   `yaml:"openid_provider_url" mapstructure:"openid_provider_url"`
	ClientId       string   `yaml:"openid_client_id" mapstructure:"openid_client_id"`
	ClientSecret   string   `yaml:"openid_client_secret" mapstructure:"openid_client_secret"`
	RedirectURL    string   `yaml:"openid_redirect_url" mapstructure:"openid_redirect_url"`
	EmailWhitelist []string `yaml:"openid_email_whitelist" mapstructure:"openid_email_whitelist"`
}

var (
	instance     *Config
	instanceOnce sync.Once
)

func Instance() *Config {
	if instance == nil {
		instanceOnce.Do(func() {
			instance = Default()
		})
	}
	return instance
}

// Default returns a configuration usable without any config file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3033,
		},
		Logging: LoggingConfig{
			LogPath: "mediahub.log",
		},
		Paths: PathsConfig{
			BundledPath: filepath.Join("bin", "yt-dlp"),
			ScratchPath: filepath.Join(os.TempDir(), "yt-dlp"),
		},
		Provision: ProvisionConfig{
			URL:          "https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux",
			MaxRedirects: 5,
			Timeout:      time.Minute * 2,
		},
		Runtime: RuntimeConfig{
			PostProcessing: "auto",
		},
		Limits: LimitsConfig{
			MetadataTimeout:  time.Minute,
			MetadataMaxBytes: 32 << 20,
			StreamTimeout:    time.Minute * 5,
		},
	}
}

var ErrMissingJWTSecret = errors.New("require_auth is set but jwt_secret is empty")

// Validate rejects combinations the server cannot run with safely.
func (c *Config) Validate() error {
	if c.Authentication.RequireAuth && c.Authentication.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// SetPath records where the config file was loaded from.
func (c *Config) SetPath(p string) { c.path = p }

// Absolute path of the config file
func (c *Config) Path() string { return c.path }
