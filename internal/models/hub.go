package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"zestsync/internal/fileutil"
	"zestsync/internal/logging"
	"zestsync/internal/services"
)

// ProgressFunc receives cumulative byte counts during a fetch. total is zero
// while file sizes are still unknown.
type ProgressFunc func(done, total int64)

// Fetcher copies a hub repository into dest.
type Fetcher interface {
	Fetch(ctx context.Context, repoID, dest string, progress ProgressFunc) error
}

const (
	stagingDirName  = ".staging"
	incompleteExt   = ".incomplete"
	defaultRevision = "main"
)

// HubFetcher downloads model repositories over the Hugging Face HTTP API into
// the hub cache layout (refs/main plus snapshots/<sha>/...). Files are written
// under a staging directory first; partially written files keep an
// .incomplete suffix and are resumed with HTTP range requests on the next
// attempt.
type HubFetcher struct {
	BaseURL  string
	Client   *http.Client
	Parallel int
	// Limiter paces file requests. Nil means unlimited.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

type revisionInfo struct {
	SHA      string `json:"sha"`
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// Fetch implements Fetcher.
func (f *HubFetcher) Fetch(ctx context.Context, repoID, dest string, progress ProgressFunc) error {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(f.Logger, "hub"))
	info, err := f.revision(ctx, repoID)
	if err != nil {
		return err
	}
	if info.SHA == "" || len(info.Siblings) == 0 {
		return services.Wrap(services.ErrNotFound, "hub", "revision", repoID+" has no files", nil)
	}

	staging := StagingPath(dest)
	snapshot := filepath.Join(staging, "snapshots", info.SHA)
	if err := os.MkdirAll(snapshot, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	var done, total atomic.Int64
	report := func() {
		if progress != nil {
			progress(done.Load(), total.Load())
		}
	}

	parallel := f.Parallel
	if parallel <= 0 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, sib := range info.Siblings {
		name := sib.RFilename
		if !validRepoPath(name) {
			logger.Warn("skipping unsafe repository path",
				logging.String("file", name),
				logging.String(logging.FieldEventType, "hub_path_skipped"),
				logging.String(logging.FieldErrorHint, "report the repository to its maintainers"),
				logging.String(logging.FieldImpact, "file not downloaded"))
			continue
		}
		g.Go(func() error {
			if f.Limiter != nil {
				if err := f.Limiter.Wait(gctx); err != nil {
					return err
				}
			}
			target := filepath.Join(snapshot, filepath.FromSlash(name))
			return f.fetchFile(gctx, repoID, info.SHA, name, target, &done, &total, report)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	refs := filepath.Join(staging, "refs")
	if err := os.MkdirAll(refs, 0o755); err != nil {
		return fmt.Errorf("create refs dir: %w", err)
	}
	if err := fileutil.WriteAtomic(filepath.Join(refs, defaultRevision), []byte(info.SHA), 0o644); err != nil {
		return fmt.Errorf("write ref: %w", err)
	}

	if fileutil.IsDir(dest) {
		// Another process finished first; its copy wins.
		_ = os.RemoveAll(staging)
		return nil
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("publish model dir: %w", err)
	}
	logger.Info("model files published",
		logging.String("repo", repoID),
		logging.String("revision", info.SHA),
		logging.Int64("bytes", done.Load()),
		logging.String(logging.FieldEventType, "model_published"))
	return nil
}

// StagingPath returns where dest is assembled before it is renamed into place.
func StagingPath(dest string) string {
	return filepath.Join(filepath.Dir(dest), stagingDirName, filepath.Base(dest))
}

func (f *HubFetcher) revision(ctx context.Context, repoID string) (revisionInfo, error) {
	endpoint := strings.TrimRight(f.BaseURL, "/") + "/api/models/" + repoID + "/revision/" + defaultRevision
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return revisionInfo{}, fmt.Errorf("build revision request: %w", err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return revisionInfo{}, services.Wrap(services.ErrNetworkUnavailable, "hub", "revision", repoID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return revisionInfo{}, services.Wrap(services.ErrNotFound, "hub", "revision", repoID+" not found", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return revisionInfo{}, services.Wrap(services.ErrTransient, "hub", "revision", fmt.Sprintf("%s: unexpected status %s", repoID, resp.Status), nil)
	}
	var info revisionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return revisionInfo{}, services.Wrap(services.ErrTransient, "hub", "revision", "decode response", err)
	}
	return info, nil
}

func (f *HubFetcher) fetchFile(ctx context.Context, repoID, sha, name, target string, done, total *atomic.Int64, report func()) error {
	if info, err := os.Stat(target); err == nil && info.Mode().IsRegular() {
		done.Add(info.Size())
		total.Add(info.Size())
		report()
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}

	partial := target + incompleteExt
	var offset int64
	if info, err := os.Stat(partial); err == nil {
		offset = info.Size()
	}

	fileURL := strings.TrimRight(f.BaseURL, "/") + "/" + repoID + "/resolve/" + sha + "/" + escapePath(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("build file request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return services.Wrap(services.ErrNetworkUnavailable, "hub", "fetch", name, err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags |= os.O_APPEND
	case http.StatusOK:
		offset = 0
		flags |= os.O_TRUNC
	case http.StatusRequestedRangeNotSatisfiable:
		// The partial file already holds every byte.
		return f.finishPartial(partial, target, done, total, report)
	default:
		return services.Wrap(services.ErrTransient, "hub", "fetch", fmt.Sprintf("%s: unexpected status %s", name, resp.Status), nil)
	}

	if resp.ContentLength > 0 {
		total.Add(offset + resp.ContentLength)
	}
	done.Add(offset)
	report()

	out, err := os.OpenFile(partial, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open partial file: %w", err)
	}
	_, copyErr := io.Copy(out, &countingReader{r: resp.Body, n: done, report: report})
	closeErr := out.Close()
	if copyErr != nil {
		return services.Wrap(services.ErrTransient, "hub", "fetch", name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close partial file: %w", closeErr)
	}
	if err := os.Rename(partial, target); err != nil {
		return fmt.Errorf("finalize %s: %w", name, err)
	}
	return nil
}

func (f *HubFetcher) finishPartial(partial, target string, done, total *atomic.Int64, report func()) error {
	info, err := os.Stat(partial)
	if err != nil {
		return fmt.Errorf("stat partial file: %w", err)
	}
	done.Add(info.Size())
	total.Add(info.Size())
	report()
	return os.Rename(partial, target)
}

func (f *HubFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

type countingReader struct {
	r      io.Reader
	n      *atomic.Int64
	report func()
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n.Add(int64(n))
		c.report()
	}
	return n, err
}

func validRepoPath(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	cleaned := path.Clean(name)
	return cleaned == name && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// ErrNoFetcher is returned when a downloader is built without a fetcher.
var ErrNoFetcher = errors.New("no model fetcher configured")
