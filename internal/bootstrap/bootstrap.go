// Package bootstrap 把配置装配成两个进程共用的依赖图
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"go-gin-auth-service/internal/core/auth"
	"go-gin-auth-service/internal/core/cache"
	"go-gin-auth-service/internal/core/config"
	"go-gin-auth-service/internal/core/database"
	"go-gin-auth-service/internal/core/logger"
	"go-gin-auth-service/internal/core/mailer"
	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/internal/feature/user"
	"go-gin-auth-service/internal/repo"
	"go-gin-auth-service/internal/service"
	"go-gin-auth-service/internal/transport/http/handler"
	mdw "go-gin-auth-service/internal/transport/http/middleware"
	"go-gin-auth-service/internal/transport/http/router"
)

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	Registry *router.Registry
	Engine   router.EngineOptions

	closers []func()
}

// Close 逆序释放资源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	if cfg.Log.File.Enable {
		return logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, logger.FileRotate{
			Enable:     true,
			Filename:   cfg.Log.File.Filename,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		})
	}
	return logger.New(cfg.Log.Level, cfg.Log.JSON)
}

// New 装配存储、缓存、认证、邮件、服务与路由模块；reg 为 nil 时不注册指标
func New(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*App, error) {
	a := &App{Cfg: cfg, Log: log}
	a.closers = append(a.closers, logger.RedirectStdLog(log, zapcore.InfoLevel))

	users, pings, err := a.openUsers()
	if err != nil {
		a.Close()
		return nil, err
	}

	jwter, err := auth.NewJWTer([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.JWT.TTL())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("jwt: %w", err)
	}

	notifier, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	var (
		svcMetrics  *service.Metrics
		httpMetrics *mdw.HTTPMetrics
	)
	if reg != nil {
		svcMetrics = service.NewMetrics(reg)
		httpMetrics = mdw.NewHTTPMetrics(reg, gatherer)
	}

	authSvc, err := service.NewAuthService(service.AuthDeps{
		Users:    users,
		Hasher:   auth.NewBcryptHasher(cfg.Auth.BcryptCost, cfg.Auth.HashWorkers),
		Tokens:   jwter,
		Resets:   auth.NewResetCodec(cfg.Auth.ResetTTL()),
		Notifier: notifier,
		ResetURL: cfg.Auth.ResetURL,
		Log:      log,
		Metrics:  svcMetrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	userSvc := service.NewUserService(users, log, svcMetrics)
	guard := mdw.NewGuard(jwter, users, auth.DefaultPolicy(), cfg.JWT.CookieName, log)

	a.Registry = router.NewRegistry(
		handler.NewAuthHandler(authSvc, userSvc, guard, handler.CookieConfig{
			Name:   cfg.JWT.CookieName,
			TTL:    cfg.JWT.TTL(),
			Secure: cfg.JWT.CookieSecure,
		}, log),
		handler.NewUserHandler(userSvc, guard, log),
	)
	a.Engine = router.EngineOptions{
		Log:     log,
		Metrics: httpMetrics,
		Health: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			var errsOut []error
			for _, ping := range pings {
				errsOut = append(errsOut, ping(ctx))
			}
			return errors.Join(errsOut...)
		},
	}
	return a, nil
}

// openUsers 选择存储驱动，配置了 redis 时在外层套一层按 id 的读缓存
func (a *App) openUsers() (domain.UserRepository, []func(context.Context) error, error) {
	cfg := a.Cfg
	var (
		users domain.UserRepository
		pings []func(context.Context) error
	)

	if cfg.DB.Driver == "memory" {
		a.Log.Warn("using in-memory user store, data is lost on restart")
		users = repo.NewMemoryUserRepo()
	} else {
		db, err := database.NewGorm(database.Opts{
			Driver:             cfg.DB.Driver,
			DSN:                cfg.DB.DSN,
			Username:           cfg.DB.Username,
			Password:           cfg.DB.Password,
			MaxOpenConns:       cfg.DB.MaxOpenConns,
			MaxIdleConns:       cfg.DB.MaxIdleConns,
			ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
			LogLevel:           cfg.DB.LogLevel,
			Log:                a.Log,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		a.closers = append(a.closers, func() { closeDB(db, a.Log) })
		a.Log.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))

		if cfg.DB.AutoMigrate {
			if err := db.AutoMigrate(&user.UserModel{}); err != nil {
				return nil, nil, fmt.Errorf("automigrate: %w", err)
			}
			a.Log.Info("automigrate done")
		}
		users = repo.NewUserRepo(db)
		pings = append(pings, func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}

	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.closers = append(a.closers, func() { _ = c.Close() })
		users = repo.NewCachedUserRepo(users, c, time.Duration(cfg.Redis.UserCacheTTLSec)*time.Second, a.Log)
		pings = append(pings, c.Ping)
		a.Log.Info("user cache enabled", zap.String("addr", cfg.Redis.Addr))
	}
	return users, pings, nil
}

func (a *App) newNotifier() (mailer.Notifier, error) {
	m := a.Cfg.Mail
	if m.Host == "" {
		a.Log.Warn("mail.host is empty, reset emails are only logged")
		return mailer.NewLogMailer(a.Log), nil
	}
	return mailer.NewSMTP(mailer.SMTPConfig{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
		BCC:      m.BCC,
	})
}

func closeDB(db *gorm.DB, l *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		l.Warn("db close", zap.Error(err))
	}
}
