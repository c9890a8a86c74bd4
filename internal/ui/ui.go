package ui

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

//go:embed index.html
var shellFS embed.FS

const (
	shellFile = "index.html"
	devDir    = "internal/ui"
)

// DevEnv names the environment variable that switches the shell page to
// disk reads.
const DevEnv = "PAGESHARE_DEV"

// Handler serves the browser shell that hosts a live session. With
// PAGESHARE_DEV=1 the page is re-read from disk on every request.
func Handler() http.Handler {
	if os.Getenv(DevEnv) == "1" {
		return shellHandler(os.DirFS(devDir), true)
	}
	return shellHandler(shellFS, false)
}

func shellHandler(fsys fs.FS, dev bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(fsys, shellFile)
		if err != nil {
			slog.Error("reading shell page", "dev", dev, "error", err)
			http.Error(w, "shell not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if dev {
			w.Header().Set("Cache-Control", "no-cache")
		}
		_, _ = w.Write(data)
	})
}
