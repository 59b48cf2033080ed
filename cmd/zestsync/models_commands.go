package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"zestsync/internal/history"
	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/models"
	"zestsync/internal/services"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and download translation models",
	}
	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsDownloadCommand(ctx))
	modelsCmd.AddCommand(newModelsPathCommand(ctx))
	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List translation models and whether they are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			registry := models.NewRegistry(cfg.Models, nil)
			type view struct {
				Code  string `json:"code"`
				Name  string `json:"name"`
				State string `json:"state"`
				Size  string `json:"size"`
				Repo  string `json:"repo"`
				Path  string `json:"path"`
			}
			var views []view
			for _, status := range registry.List() {
				if language.IsBase(status.Code) {
					continue
				}
				views = append(views, view{
					Code:  status.Code,
					Name:  status.Name,
					State: status.State.String(),
					Size:  status.SizeLabel,
					Repo:  registry.RepoID(status.Code),
					Path:  registry.CachePath(status.Code),
				})
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Name, v.Code, v.State, v.Size, v.Repo})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Language", "Code", "State", "Size", "Repository"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newModelsDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <language>",
		Short: "Download the translation model for a language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok := language.Resolve(args[0])
			if !ok {
				return fmt.Errorf("unsupported language %q (see `zestsync languages`)", args[0])
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return ctx.withApp(signalCtx, func(a *app) error {
				if err := downloadModel(signalCtx, a, entry.Code, newProgressReporter(cmd.OutOrStdout(), a.logger)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s model ready at %s\n", entry.DisplayName, a.registry.CachePath(entry.Code))
				return nil
			})
		},
	}
}

// downloadModel runs one model download to completion, recording it in the
// task history.
func downloadModel(ctx context.Context, a *app, code string, progress *progressReporter) error {
	events := make(chan models.Event, 16)
	a.downloader.SetEventSink(func(ev models.Event) {
		select {
		case events <- ev:
		default:
		}
	})
	defer a.downloader.SetEventSink(nil)

	handle, err := a.downloader.Download(code)
	if err != nil {
		return err
	}
	rec, recErr := a.history.Start(ctx, history.Record{
		ID:       handle.ID,
		Kind:     models.TaskKind,
		Language: code,
	})
	if recErr != nil {
		a.logger.Warn("record download start", logging.Error(recErr))
	}

	for {
		select {
		case ev := <-events:
			if ev.Kind == models.EventProgress {
				progress.download(ev.Code, ev.BytesDone, ev.BytesTotal)
			}
		case <-handle.Done():
			progress.finish()
			result := handle.Result()
			if recErr == nil {
				if err := a.history.Finish(context.WithoutCancel(ctx), rec.ID, result.Output, result.Err); err != nil {
					a.logger.Warn("record download finish", logging.Error(err))
				}
			}
			if result.Err != nil {
				if hint := services.Hint(result.Err); hint != "" {
					return fmt.Errorf("%w (%s)", result.Err, hint)
				}
				return result.Err
			}
			if err := a.notifier.NotifyModelDownloaded(ctx, code); err != nil {
				a.logger.Warn("model download notification failed", logging.Error(err))
			}
			return nil
		case <-ctx.Done():
			progress.finish()
			<-handle.Done()
			return errors.Join(ctx.Err(), handle.Result().Err)
		}
	}
}

func newModelsPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path <language>",
		Short: "Print the cache directory for a language's model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entry, ok := language.Resolve(args[0])
			if !ok {
				return fmt.Errorf("unsupported language %q (see `zestsync languages`)", args[0])
			}
			if language.IsBase(entry.Code) {
				return fmt.Errorf("%s is transcribed directly and has no translation model", entry.DisplayName)
			}
			fmt.Fprintln(cmd.OutOrStdout(), models.NewRegistry(cfg.Models, nil).CachePath(entry.Code))
			return nil
		},
	}
}
