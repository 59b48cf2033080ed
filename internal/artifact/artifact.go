// Package artifact maps a video and language code to the subtitle file that
// caches the generated result. The existence of that file is the cache hit
// signal for the whole pipeline.
package artifact

import (
	"path/filepath"
	"strings"

	"zestsync/internal/fileutil"
	"zestsync/internal/language"
)

// Path returns <dir>/<base-without-extension>.<code>.srt next to the video.
func Path(videoPath, code string) string {
	dir := filepath.Dir(videoPath)
	name := filepath.Base(videoPath)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, base+"."+strings.ToLower(strings.TrimSpace(code))+".srt")
}

// BasePath returns the artifact path for the base language.
func BasePath(videoPath string) string {
	return Path(videoPath, language.BaseCode)
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	return fileutil.IsRegularFile(path)
}

// Entry is one row of a video's artifact inventory.
type Entry struct {
	Language language.Entry
	Path     string
	Exists   bool
}

// Inventory lists the artifact state of every table language for a video, in
// table order.
func Inventory(videoPath string) []Entry {
	all := language.All()
	out := make([]Entry, 0, len(all))
	for _, lang := range all {
		p := Path(videoPath, lang.Code)
		out = append(out, Entry{Language: lang, Path: p, Exists: Exists(p)})
	}
	return out
}
