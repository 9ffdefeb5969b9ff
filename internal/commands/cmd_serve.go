package commands

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/marktimer/internal/api"
	"github.com/hay-kot/marktimer/internal/core/logging"
	"github.com/hay-kot/marktimer/internal/profiler"
	"github.com/hay-kot/marktimer/internal/sse"
)

type ServeCmd struct {
	flags *Flags
	rt    *Runtime

	addr  string
	token string
}

func NewServeCmd(flags *Flags, rt *Runtime) *ServeCmd {
	return &ServeCmd{flags: flags, rt: rt}
}

func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the HTTP API",
		UsageText: "marktimer serve [options]",
		Description: `Restores every stored timer and serves them over HTTP until interrupted.

Routes:
  GET    /health/live
  GET    /api/timers            ?match=glob&state=running
  POST   /api/timers
  GET    /api/timers/{id}
  DELETE /api/timers/{id}
  POST   /api/timers/{id}/commands
  POST   /api/batch/{action}    ?match=glob
  GET    /api/stats
  GET    /api/notifications     ?limit=n
  GET    /api/events            server-sent events, ?timer=id&skip=timer.ticked

When a token is configured every /api route needs "Authorization: Bearer <token>".
The global --profiler-addr flag serves pprof next to the API.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides server.addr)",
				Sources:     cli.EnvVars("MARKTIMER_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "token",
				Usage:       "bearer token (overrides server.token)",
				Sources:     cli.EnvVars("MARKTIMER_TOKEN"),
				Destination: &cmd.token,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	log := logging.Component("serve")

	addr := cfg.Server.Addr
	if cmd.addr != "" {
		addr = cmd.addr
	}
	token := cfg.Server.Token
	if cmd.token != "" {
		token = cmd.token
	}

	if cmd.flags.ProfilerAddr != "" {
		prof := profiler.New(cmd.flags.ProfilerAddr, logging.Component("profiler"))
		if err := prof.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = prof.Shutdown(shutdownCtx)
		}()
	}

	a, err := cmd.rt.App(ctx)
	if err != nil {
		return err
	}

	broker := sse.NewBroker(logging.Component("sse"))
	if err := broker.Attach(a.Bus); err != nil {
		return err
	}
	defer broker.Close()

	var notes api.NotificationSource = api.BufferSource{Buffer: a.Recent}
	if a.Notifications != nil {
		notes = a.Notifications
	}

	router := api.NewRouter(api.NewHandler(a.Manager, cfg, notes), api.RouterOptions{
		Token:  token,
		Logger: logging.Component("http"),
		Events: broker,
	})

	log.Info().Int("timers", len(a.Manager.List())).Bool("auth", token != "").Msg("serving timers")

	return api.Serve(ctx, router, api.ServerOptions{
		Addr:              addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		Logger:            log,
	})
}
