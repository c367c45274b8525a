// Command demo serves the UserRpc class through the RPC gateway.
//
// Configuration comes from the environment (and a .env file when present);
// flags override the most common settings:
//
//	demo --addr :8080 --sessions redis --users postgres --rotation manual
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dmitrymomot/rpcgate/app/demo"
	"github.com/dmitrymomot/rpcgate/core/config"
	"github.com/dmitrymomot/rpcgate/core/logger"
	"github.com/dmitrymomot/rpcgate/core/rpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := demo.DefaultConfig()
	if err := config.Load(&cfg); err != nil {
		return err
	}

	flags := pflag.NewFlagSet("demo", pflag.ContinueOnError)
	flags.StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "listen address")
	flags.StringVar(&cfg.RPCPath, "path", cfg.RPCPath, "gateway endpoint path")
	flags.StringVar(&cfg.SessionBackend, "sessions", cfg.SessionBackend, "session backend: memory or redis")
	flags.StringVar(&cfg.UserStore, "users", cfg.UserStore, "user store: memory or postgres")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	rotation := flags.String("rotation", string(cfg.RPC.Rotation), "token rotation: auto or manual")
	flags.BoolVar(&cfg.RPC.RequireAuth, "require-auth", cfg.RPC.RequireAuth, "require a signed-in user for every call")
	flags.BoolVar(&cfg.RPC.TrustProxy, "trust-proxy", cfg.RPC.TrustProxy, "take the client address from proxy headers")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	cfg.RPC.Rotation = rpc.Rotation(*rotation)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := demo.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	app.Logger().InfoContext(ctx, "starting",
		logger.Component("demo"),
		"addr", cfg.Server.Addr,
		"sessions", cfg.SessionBackend,
		"users", cfg.UserStore,
		"rotation", cfg.RPC.Rotation,
	)
	return app.Run(ctx)
}
