package config

import (
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig system config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig web server config
type WebConfig struct {
	Host      string  `yaml:"host"`
	Port      int     `yaml:"port"`
	Secret    string  `yaml:"secret"`
	CSRF      bool    `yaml:"csrf"`
	LoginRate float64 `yaml:"login_rate"` // requests per second per client on /login and /register
	JwtExpire int     `yaml:"jwt_expire"` // hours
}

// LogConfig logger config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// MediaConfig uploaded image storage
type MediaConfig struct {
	Dir          string `yaml:"dir"`
	URLPrefix    string `yaml:"url_prefix"`
	MaxImageSize int64  `yaml:"max_image_size"`
}

// MailConfig SMTP settings used for bid notifications
type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	Workers  int    `yaml:"workers"`
	Timeout  int    `yaml:"timeout"` // seconds per delivery
}

// NatsConfig optional bid event publishing
type NatsConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type AppConfig struct {
	System   SysConfig   `yaml:"system"`
	Web      WebConfig   `yaml:"web"`
	Database DBConfig    `yaml:"database"`
	Logger   LogConfig   `yaml:"logger"`
	Media    MediaConfig `yaml:"media"`
	Mail     MailConfig  `yaml:"mail"`
	Nats     NatsConfig  `yaml:"nats"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

// GetLogFile returns the configured log file, or auctions.log in the log dir
func (c *AppConfig) GetLogFile() string {
	if c.Logger.Filename != "" {
		return c.Logger.Filename
	}
	return path.Join(c.GetLogDir(), "auctions.log")
}

func (c *AppConfig) GetMediaDir() string {
	if c.Media.Dir != "" {
		return c.Media.Dir
	}
	return path.Join(c.System.Workdir, "media")
}

// InitDirs creates the working directories
func (c *AppConfig) InitDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
	_ = os.MkdirAll(path.Join(c.GetMediaDir(), "images"), 0o755)
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "Auctions",
		Location: "UTC",
		Workdir:  "/var/auctions",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1880,
		Secret:    "9b6de5cc-0731-4bf1-auction-0f568ac9da37",
		CSRF:      true,
		LoginRate: 5,
		JwtExpire: 24,
	},
	Database: DBConfig{
		Type:     "sqlite",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "auctions",
		User:     "postgres",
		Passwd:   "myroot",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: false,
	},
	Media: MediaConfig{
		URLPrefix:    "/media/",
		MaxImageSize: 2100000,
	},
	Mail: MailConfig{
		Port:    587,
		From:    "auctions@localhost",
		Workers: 4,
		Timeout: 30,
	},
	Nats: NatsConfig{
		SubjectPrefix: "auction.bids",
	},
}

// LoadConfig reads the yaml file when present, then applies AUCTION_* environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := new(AppConfig)
	*cfg = *DefaultAppConfig
	if cfile == "" {
		cfile = "auctions.yml"
	}
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			panic(err)
		}
	}

	setEnvValue("AUCTION_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("AUCTION_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("AUCTION_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("AUCTION_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("AUCTION_WEB_PORT", &cfg.Web.Port)
	setEnvValue("AUCTION_WEB_SECRET", &cfg.Web.Secret)
	setEnvBoolValue("AUCTION_WEB_CSRF", &cfg.Web.CSRF)

	setEnvValue("AUCTION_DB_TYPE", &cfg.Database.Type)
	setEnvValue("AUCTION_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("AUCTION_DB_PORT", &cfg.Database.Port)
	setEnvValue("AUCTION_DB_NAME", &cfg.Database.Name)
	setEnvValue("AUCTION_DB_USER", &cfg.Database.User)
	setEnvValue("AUCTION_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("AUCTION_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("AUCTION_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("AUCTION_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("AUCTION_LOGGER_FILENAME", &cfg.Logger.Filename)

	setEnvValue("AUCTION_MEDIA_DIR", &cfg.Media.Dir)

	setEnvBoolValue("AUCTION_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("AUCTION_MAIL_HOST", &cfg.Mail.Host)
	setEnvIntValue("AUCTION_MAIL_PORT", &cfg.Mail.Port)
	setEnvValue("AUCTION_MAIL_USERNAME", &cfg.Mail.Username)
	setEnvValue("AUCTION_MAIL_PASSWORD", &cfg.Mail.Password)
	setEnvValue("AUCTION_MAIL_FROM", &cfg.Mail.From)

	setEnvValue("AUCTION_NATS_URL", &cfg.Nats.URL)

	if !strings.HasSuffix(cfg.Media.URLPrefix, "/") {
		cfg.Media.URLPrefix += "/"
	}
	return cfg
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		if i, err := cast.ToIntE(v); err == nil {
			*val = i
		}
	}
}
