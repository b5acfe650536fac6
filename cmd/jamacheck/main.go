package main

import "github.com/jamatools/jamacheck/internal/cli"

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
