// Package main provides the memkv server binary.
//
// memkv serve starts the RESP server; memkv exec sends a single command to
// a running server.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/raniellyferreira/memkv"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	version := memkv.Version
	if memkv.GitCommit != "" {
		version = fmt.Sprintf("%s (commit: %s, built: %s)", memkv.Version, memkv.GitCommit, memkv.BuildTime)
	}

	return &cli.App{
		Name:    "memkv",
		Usage:   "In-memory key-value store speaking RESP",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			execCommand(),
		},
		DefaultCommand: "serve",
	}
}
