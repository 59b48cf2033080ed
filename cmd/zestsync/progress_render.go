package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"zestsync/internal/language"
	"zestsync/internal/logging"
)

type barKind int

const (
	barNone barKind = iota
	barPercent
	barBytes
)

// progressReporter draws a progress bar on terminals and falls back to
// sampled log lines elsewhere. It is not safe for concurrent use.
type progressReporter struct {
	out     io.Writer
	tty     bool
	logger  *slog.Logger
	sampler *logging.ProgressSampler

	bar  *progressbar.ProgressBar
	kind barKind
}

func newProgressReporter(out io.Writer, logger *slog.Logger) *progressReporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &progressReporter{
		out:     out,
		tty:     shouldColorize(out),
		logger:  logger,
		sampler: logging.NewProgressSampler(10),
	}
}

// generation renders a percent update. visible=false ends the bar.
func (p *progressReporter) generation(visible bool, percent int, status string, indeterminate bool) {
	if !visible {
		p.finish()
		return
	}
	if !p.tty {
		value := float64(percent)
		if indeterminate {
			value = -1
		}
		if p.sampler.ShouldLog(value, "generate") {
			p.logger.Info("generation progress",
				logging.Int("percent", percent),
				logging.String("status", status))
		}
		return
	}
	if p.kind != barPercent {
		p.finish()
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		p.kind = barPercent
	}
	p.bar.Describe(status)
	_ = p.bar.Set(percent)
}

// download renders fetched bytes for a model download.
func (p *progressReporter) download(code string, done, total int64) {
	desc := "Downloading " + language.Name(code) + " model"
	if !p.tty {
		pct := -1.0
		if total > 0 {
			pct = float64(done) / float64(total) * 100
		}
		if p.sampler.ShouldLog(pct, "download "+code) {
			p.logger.Info("model download progress",
				logging.String("language", code),
				logging.String("downloaded", humanize.Bytes(uint64(max(done, 0)))),
				logging.String("total", humanize.Bytes(uint64(max(total, 0)))))
		}
		return
	}
	if p.kind != barBytes {
		p.finish()
		if total <= 0 {
			total = -1
		}
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(desc),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
		)
		p.kind = barBytes
	} else if total > 0 && p.bar.GetMax64() != total {
		p.bar.ChangeMax64(total)
	}
	_ = p.bar.Set64(done)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.out)
	}
	p.bar = nil
	p.kind = barNone
	p.sampler.Reset()
}
