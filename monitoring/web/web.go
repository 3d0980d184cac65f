// Package web embeds the dashboard served by the monitor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// DevModeEnv names the environment variable that makes the monitor serve the
// dashboard from the source tree, so that edits show up without a rebuild.
const DevModeEnv = "DESIM_MONITOR_DEV"

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the dashboard files.
func GetAssets() http.FileSystem {
	if devMode() {
		_, self, _, ok := runtime.Caller(0)
		if !ok {
			panic("web: cannot locate the source tree")
		}

		dir := filepath.Join(filepath.Dir(self), "dist")
		log.WithField("dir", dir).Info("Serving dashboard from source tree")

		return http.Dir(dir)
	}

	dist, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(dist)
}

func devMode() bool {
	on, err := strconv.ParseBool(os.Getenv(DevModeEnv))
	return err == nil && on
}
