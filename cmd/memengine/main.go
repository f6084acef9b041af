// Command memengine is the agent memory engine: a persistent, content-addressed
// store of typed memories and a code knowledge graph, coupled with a hybrid
// retrieval pipeline that surfaces relevant memories back to agent sessions.
package main

import (
	"os"
	"runtime/debug"

	"github.com/dotcommander/memengine/internal/commands"
)

// version is set via ldflags (-X main.version=v1.0.0) or detected
// automatically from Go module info embedded by go install.
var version = "dev"

func main() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	if err := commands.Execute(version); err != nil {
		os.Exit(1)
	}
}
