package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
	CookieName        string
	CookieSecure      bool
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

type Auth struct {
	BcryptCost       int
	HashWorkers      int
	ResetTokenTTLMin int
	// ResetURL 邮件里的重置链接前缀，令牌拼在末尾
	ResetURL string
}

func (a Auth) ResetTTL() time.Duration { return time.Duration(a.ResetTokenTTLMin) * time.Minute }

type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BCC      string
}

type Redis struct {
	Addr            string `mapstructure:"addr"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	UserCacheTTLSec int    `mapstructure:"usercachettlsec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Config struct {
	App   App
	Log   Log
	JWT   JWT
	Auth  Auth
	Mail  Mail
	DB    DB
	Redis Redis `mapstructure:"redis"`
}

const MinSecretLen = 32

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "auth-service")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "auth-service")
	v.SetDefault("jwt.accesstokenttlmin", 7*24*60)
	v.SetDefault("jwt.cookiename", "jwt")
	v.SetDefault("auth.bcryptcost", 12)
	v.SetDefault("auth.hashworkers", runtime.GOMAXPROCS(0))
	v.SetDefault("auth.resettokenttlmin", 10)
	v.SetDefault("auth.reseturl", "http://127.0.0.1:8080/api/v1/reset-password")
	v.SetDefault("mail.port", 587)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("redis.usercachettlsec", 30)
}

// Read 读取并校验配置，调用方决定如何处理错误
func Read(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load 启动期使用：失败直接退出
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return c
}

func (c *Config) Validate() error {
	var problems []error
	if len(c.JWT.Secret) < MinSecretLen {
		problems = append(problems, fmt.Errorf("jwt.secret must be at least %d characters", MinSecretLen))
	}
	if c.JWT.AccessTokenTTLMin <= 0 {
		problems = append(problems, errors.New("jwt.accessTokenTTLMin must be positive"))
	}
	if c.Auth.ResetTokenTTLMin <= 0 {
		problems = append(problems, errors.New("auth.resetTokenTTLMin must be positive"))
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "memory":
	default:
		problems = append(problems, fmt.Errorf("db.driver %q is not supported", c.DB.Driver))
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		problems = append(problems, errors.New("mail.from is required when mail.host is set"))
	}
	return errors.Join(problems...)
}
