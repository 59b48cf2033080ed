package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/player"
	"zestsync/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var langFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API that a playback frontend drives",
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok := language.Resolve(langFlag)
			if !ok {
				return fmt.Errorf("unsupported language %q (see `zestsync languages`)", langFlag)
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := server.AcquireInstanceLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer lock.Release()

			return ctx.withApp(signalCtx, func(a *app) error {
				a.housekeeping(signalCtx, time.Now())

				bus := server.NewEventBus()
				session, err := a.newSession(signalCtx, server.NewEventPlayback(bus), player.WithLanguage(entry.Code))
				if err != nil {
					return err
				}
				srv := server.New(cfg, session, a.registry, a.history, bus, a.logger)
				if err := srv.Start(signalCtx); err != nil {
					return err
				}
				go srv.Relay()

				fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

				err = session.Run(signalCtx)
				srv.Stop()
				a.logger.Info("zestsync api shutting down", logging.Language(entry.Code))
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&langFlag, "lang", "l", language.BaseCode, "Initially selected language")
	return cmd
}
