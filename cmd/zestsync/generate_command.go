package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"zestsync/internal/language"
	"zestsync/internal/logging"
	"zestsync/internal/player"
	"zestsync/internal/services"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var langFlag string
	var allowDownload bool

	cmd := &cobra.Command{
		Use:   "generate <video>",
		Short: "Generate (or reuse) subtitles for a video",
		Long: "Generate subtitles for a video in the requested language. Existing subtitle files " +
			"next to the video are reused; otherwise English subtitles are transcribed first and " +
			"translated when another language is requested.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, ok := language.Resolve(langFlag)
			if !ok {
				return fmt.Errorf("unsupported language %q (see `zestsync languages`)", langFlag)
			}
			video, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve video path: %w", err)
			}
			if _, err := os.Stat(video); err != nil {
				return fmt.Errorf("video %s: %w", video, err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withApp(signalCtx, func(a *app) error {
				out, err := runHeadless(signalCtx, a, headlessRequest{
					Video:         video,
					Language:      entry.Code,
					AllowDownload: allowDownload,
					Out:           cmd.OutOrStdout(),
					Err:           cmd.ErrOrStderr(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s subtitles: %s\n", entry.DisplayName, out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&langFlag, "lang", "l", language.BaseCode, "Target language code or name")
	cmd.Flags().BoolVar(&allowDownload, "download", false, "Download the translation model when it is missing")
	return cmd
}

type headlessRequest struct {
	Video         string
	Language      string
	AllowDownload bool
	Out           io.Writer
	Err           io.Writer
}

// headlessPlayback accepts every subtitle the session hands over.
type headlessPlayback struct{}

func (headlessPlayback) AddSubtitle(string) error { return nil }

// runHeadless drives a session for one video until the requested subtitle is
// loaded, answering the prompts a player frontend would show.
func runHeadless(ctx context.Context, a *app, req headlessRequest) (string, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	session, err := a.newSession(runCtx, headlessPlayback{}, player.WithLanguage(req.Language))
	if err != nil {
		return "", err
	}
	runErr := make(chan error, 1)
	go func() { runErr <- session.Run(runCtx) }()
	defer func() {
		cancel()
		<-runErr
	}()

	session.AddMedia(req.Video)
	d := &headlessDriver{
		session:  session,
		req:      req,
		logger:   a.logger,
		progress: newProgressReporter(req.Out, a.logger),
	}
	defer d.progress.finish()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-session.Events():
			if !ok {
				return "", errors.New("session stopped before subtitles were ready")
			}
			path, done, err := d.handle(ev)
			if err != nil || done {
				return path, err
			}
		}
	}
}

// driverSession is the part of a session the headless driver steers.
type driverSession interface {
	SelectLanguage(code string)
	Generate()
}

type headlessDriver struct {
	session  driverSession
	req      headlessRequest
	logger   *slog.Logger
	progress *progressReporter

	current     string
	switched    bool
	downloading bool
	requested   map[string]bool
}

func (d *headlessDriver) handle(ev player.UIEvent) (string, bool, error) {
	switch e := ev.(type) {
	case player.LanguageSelected:
		d.current = e.Code
	case player.SubtitleLoaded:
		if e.Language == d.req.Language {
			return e.Path, true, nil
		}
		if language.IsBase(e.Language) && !d.switched {
			d.switched = true
			d.session.SelectLanguage(d.req.Language)
		}
	case player.Controls:
		return "", false, d.answer(e)
	case player.Progress:
		d.progress.generation(e.Visible, e.Percent, e.Text, e.Indeterminate)
	case player.DownloadProgress:
		d.progress.download(e.Code, e.BytesDone, e.BytesTotal)
	case player.Toast:
		if e.Level == player.ToastError {
			logging.WarnWithContext(d.logger, e.Message, "session_notice")
		} else {
			fmt.Fprintln(d.req.Err, e.Message)
		}
	case player.TaskSettled:
		if e.Kind == "download" {
			d.progress.finish()
		}
		if !e.Succeeded() {
			return "", false, services.Wrap(services.ErrExternalTool, "generate", e.Kind, e.Error, nil)
		}
	}
	return "", false, nil
}

// answer presses the generate button when the session offers it.
func (d *headlessDriver) answer(c player.Controls) error {
	if !c.GenerateVisible || !c.GenerateEnabled {
		return nil
	}
	if strings.HasPrefix(c.GenerateLabel, "Download") {
		if !d.req.AllowDownload {
			return fmt.Errorf("the %s translation model is not downloaded; rerun with --download or run `zestsync models download %s`",
				language.Name(d.req.Language), d.req.Language)
		}
		if d.downloading {
			return nil
		}
		d.downloading = true
		d.session.Generate()
		return nil
	}
	if d.requested == nil {
		d.requested = make(map[string]bool)
	}
	if d.requested[d.current] {
		return nil
	}
	d.requested[d.current] = true
	d.session.Generate()
	return nil
}
