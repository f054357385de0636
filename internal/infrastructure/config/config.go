package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀, 例如 ECHOBRIDGE_TELEGRAM_BOT_TOKEN
const EnvPrefix = "ECHOBRIDGE"

// Config 应用配置
type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Telegram    TelegramConfig    `mapstructure:"telegram" yaml:"telegram"`
	Alexa       AlexaConfig       `mapstructure:"alexa" yaml:"alexa"`
	InternalAPI InternalAPIConfig `mapstructure:"internal_api" yaml:"internal_api"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	Assets      AssetsConfig      `mapstructure:"assets" yaml:"assets"`
	Transcode   TranscodeConfig   `mapstructure:"transcode" yaml:"transcode"`
	Pairing     PairingConfig     `mapstructure:"pairing" yaml:"pairing"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	Mode string `mapstructure:"mode" yaml:"mode"` // local, production
	// PublicBaseURL is the externally reachable origin used to build stream
	// URLs for the voice assistant, e.g. https://bridge.example.com
	PublicBaseURL string `mapstructure:"public_base_url" yaml:"public_base_url"`
}

// TelegramConfig Telegram 配置
type TelegramConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	BotToken       string  `mapstructure:"bot_token" yaml:"bot_token"`
	AllowIDs       []int64 `mapstructure:"allow_ids" yaml:"allow_ids"`
	Debug          bool    `mapstructure:"debug" yaml:"debug"`
	MaxVoiceBytes  int64   `mapstructure:"max_voice_bytes" yaml:"max_voice_bytes"`
	PollingTimeout int     `mapstructure:"polling_timeout" yaml:"polling_timeout"` // seconds
}

// AlexaConfig 语音助手技能配置
type AlexaConfig struct {
	// SkillID, when set, must match the application id of every request.
	SkillID string `mapstructure:"skill_id" yaml:"skill_id"`
	// MaxSpeechRunes caps the spoken text of a TEXT message.
	MaxSpeechRunes int `mapstructure:"max_speech_runes" yaml:"max_speech_runes"`
}

// InternalAPIConfig 内部可信 API 配置
type InternalAPIConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	APIKey        string        `mapstructure:"api_key" yaml:"-"`
	DownloadLimit int64         `mapstructure:"download_limit" yaml:"download_limit"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // sqlite, postgres, memory
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// AssetsConfig 音频资源存储配置
type AssetsConfig struct {
	Backend string   `mapstructure:"backend" yaml:"backend"` // local, s3
	Dir     string   `mapstructure:"dir" yaml:"dir"`
	S3      S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config S3 兼容对象存储配置
type S3Config struct {
	Bucket          string        `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string        `mapstructure:"prefix" yaml:"prefix"`
	Region          string        `mapstructure:"region" yaml:"region"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id" yaml:"-"`
	SecretAccessKey string        `mapstructure:"secret_access_key" yaml:"-"`
	UsePathStyle    bool          `mapstructure:"use_path_style" yaml:"use_path_style"`
	PresignTTL      time.Duration `mapstructure:"presign_ttl" yaml:"presign_ttl"`
}

// TranscodeConfig 转码配置
type TranscodeConfig struct {
	FFmpegPath string        `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	Bitrate    string        `mapstructure:"bitrate" yaml:"bitrate"`
	SampleRate int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TempDir    string        `mapstructure:"temp_dir" yaml:"temp_dir"`
}

// PairingConfig 配对码配置
type PairingConfig struct {
	CodeTTL               time.Duration `mapstructure:"code_ttl" yaml:"code_ttl"`
	SingleCodePerIdentity bool          `mapstructure:"single_code_per_identity" yaml:"single_code_per_identity"`
	PurgeSchedule         string        `mapstructure:"purge_schedule" yaml:"purge_schedule"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Loader keeps the viper instance around so the config file can be watched
// after the initial load.
type Loader struct {
	v *viper.Viper
}

// Load 加载配置
func Load() (*Config, error) {
	cfg, _, err := NewLoader().Load()
	return cfg, err
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// Load 分层加载: 默认值 → 全局 ~/.echobridge/ → 项目本地 → .env → 环境变量
func (l *Loader) Load() (*Config, string, error) {
	v := l.v
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(HomeDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("failed to read global config: %w", err)
		}
	}

	// 项目本地配置覆盖全局配置, 只取第一个找到的
	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			v.SetConfigFile(localPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, "", fmt.Errorf("failed to merge %s: %w", localPath, err)
			}
			break
		}
	}

	// .env is optional; variables already present in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to load .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, v.ConfigFileUsed(), nil
}

// Watch calls onChange with the freshly unmarshalled config every time the
// config file in use is written. It is a no-op when no file was loaded.
func (l *Loader) Watch(onChange func(*Config, fsnotify.Event), onError func(error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var cfg Config
		if err := l.v.Unmarshal(&cfg); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(&cfg, e)
	})
	l.v.WatchConfig()
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.mode", "local")
	v.SetDefault("server.public_base_url", "https://example.com")

	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.allow_ids", []int64{})
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.max_voice_bytes", 20<<20)
	v.SetDefault("telegram.polling_timeout", 60)

	v.SetDefault("alexa.skill_id", "")
	v.SetDefault("alexa.max_speech_runes", 6000)

	v.SetDefault("internal_api.enabled", false)
	v.SetDefault("internal_api.api_key", "")
	v.SetDefault("internal_api.download_limit", 20<<20)
	v.SetDefault("internal_api.fetch_timeout", "30s")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/database.sqlite")

	v.SetDefault("assets.backend", "local")
	v.SetDefault("assets.dir", "media")
	// 未设置默认值的键不会被 AutomaticEnv 识别, 所以空字符串也要注册
	for _, key := range []string{"bucket", "prefix", "endpoint", "access_key_id", "secret_access_key"} {
		v.SetDefault("assets.s3."+key, "")
	}
	v.SetDefault("assets.s3.use_path_style", false)
	v.SetDefault("assets.s3.presign_ttl", "5m")
	v.SetDefault("assets.s3.region", "us-east-1")

	v.SetDefault("transcode.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcode.bitrate", "48k")
	v.SetDefault("transcode.sample_rate", 24000)
	v.SetDefault("transcode.timeout", "60s")
	v.SetDefault("transcode.temp_dir", os.TempDir())

	v.SetDefault("pairing.code_ttl", "5m")
	v.SetDefault("pairing.single_code_per_identity", false)
	v.SetDefault("pairing.purge_schedule", "@every 10m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate 校验配置完整性
func (c *Config) Validate() error {
	var problems []string

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		problems = append(problems, "telegram.bot_token is required when telegram.enabled is true")
	}
	if c.InternalAPI.Enabled && c.InternalAPI.APIKey == "" {
		problems = append(problems, "internal_api.api_key is required when internal_api.enabled is true")
	}
	switch c.Database.Type {
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			problems = append(problems, "database.dsn is required")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unsupported database.type %q", c.Database.Type))
	}
	switch c.Assets.Backend {
	case "local":
		if c.Assets.Dir == "" {
			problems = append(problems, "assets.dir is required")
		}
	case "s3":
		if c.Assets.S3.Bucket == "" {
			problems = append(problems, "assets.s3.bucket is required for the s3 backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported assets.backend %q", c.Assets.Backend))
	}
	if !strings.HasPrefix(c.Server.PublicBaseURL, "https://") && c.Assets.Backend == "local" {
		problems = append(problems, "server.public_base_url must be an https URL")
	}
	if c.Pairing.CodeTTL <= 0 {
		problems = append(problems, "pairing.code_ttl must be positive")
	}
	if c.Transcode.Timeout <= 0 {
		problems = append(problems, "transcode.timeout must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
