// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/classforge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

// shortCommitLength matches `git rev-parse --short`.
const shortCommitLength = 7

// buildSettings reads the VCS stamps the toolchain embeds.
var buildSettings = func() map[string]string {
	settings := make(map[string]string)
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			settings[setting.Key] = setting.Value
		}
	}
	return settings
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	dirty := ""
	if dirtyFlag() {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, Commit(), dirty, buildTime())
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}

// Commit returns the git commit SHA.
func Commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if revision := buildSettings()["vcs.revision"]; revision != "" {
		if len(revision) > shortCommitLength {
			revision = revision[:shortCommitLength]
		}
		return revision
	}
	return GitCommit
}

func dirtyFlag() bool {
	if GitCommit != "unknown" {
		return GitDirty == "true"
	}
	return buildSettings()["vcs.modified"] == "true"
}

func buildTime() string {
	if BuildTime != "unknown" {
		return BuildTime
	}
	if stamp := buildSettings()["vcs.time"]; stamp != "" {
		return stamp
	}
	return BuildTime
}
