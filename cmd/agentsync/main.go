// Package main is the entry point for the agent sync service.
package main

import (
	"os"

	"github.com/vyrodovalexey/avainsure/internal/app"
	"github.com/vyrodovalexey/avainsure/internal/config"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(app.Main(config.ServiceAgentSync, app.BuildInfo{
		Version:   version,
		BuildTime: buildTime,
		GitCommit: gitCommit,
	}, os.Args[1:]))
}
