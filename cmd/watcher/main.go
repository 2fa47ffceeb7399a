// Package main is the entry point for cuehook-watcher.
//
// cuehook-watcher watches an RTP video stream for transitions between a
// configured set of slates and regular content, and fires the configured
// HTTP call actions as those transitions are detected.
package main

import (
	"os"

	"github.com/cuehook/cuehook/cmd/watcher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
