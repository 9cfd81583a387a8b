package main

import "nexus/internal/cli"

// Set by ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit)
	cli.Execute()
}
