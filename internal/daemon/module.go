// Package daemon composes the long-running process serving one account: it
// wires the session core, logging and configuration into an fx application
// and keeps the session logged in until shutdown.
package daemon

import (
	"context"
	"fmt"

	"github.com/matheus3301/wamd"
	"github.com/matheus3301/wamd/internal/config"
	"github.com/matheus3301/wamd/internal/logging"
	"github.com/matheus3301/wamd/internal/profile"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	// Account overrides the config file's account, mainly for first runs.
	Account string
	// PairPhone, when set, pairs with a one-time code for this phone number
	// instead of showing a QR code.
	PairPhone string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideManager,
			provideSession,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		cfg = &config.Config{}
	}
	if p.Account != "" {
		cfg.Account = p.Account
	}
	if cfg.Account == "" {
		return nil, fmt.Errorf("no account configured; pass --account or set it in %s", profile.ConfigPath())
	}
	return cfg, nil
}

func provideManager(p Params, cfg *config.Config, logger *zap.Logger) (*wamd.Manager, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	return wamd.NewManager(wamd.Config{
		DBPath:            profile.DBPath(p.ProfileName),
		URL:               cfg.ServiceURL,
		Logger:            logger,
		ReconnectAttempts: cfg.ReconnectAttempts,
	})
}

func provideSession(m *wamd.Manager, cfg *config.Config, logger *zap.Logger) (*wamd.Session, error) {
	h := newHandler(logger)
	return m.NewSession(cfg.Account, h.handle)
}

func registerLifecycle(lc fx.Lifecycle, m *wamd.Manager, s *wamd.Session, p Params, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Login(ctx); err != nil {
				return err
			}
			if p.PairPhone != "" {
				code, err := s.PairPhone(ctx, p.PairPhone)
				if err != nil {
					return err
				}
				fmt.Printf("Enter this code on your phone: %s\n", code)
			}
			logger.Info("session started", zap.String("account", s.Account()))
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := m.Close(); err != nil {
				logger.Warn("error closing manager", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
