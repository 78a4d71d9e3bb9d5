// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the binary with -ldflags:
//
//	go build -ldflags "-X voiceshield/pkg/build.buildName=voiceshield \
//	  -X voiceshield/pkg/build.buildVersion=v0.3.0 ..."
//
// Development builds carry no flags and fall back to placeholder values.
package build

import (
	"errors"
	"fmt"
	"runtime"
)

// Info is the build metadata reported by the version command.
type Info struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// String renders a one-line summary, e.g.
// "voiceshield v0.3.0 (commit 1a2b3c, built 2025-04-13, go1.24.1)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", i.Name, i.Version, i.Commit, i.Time, runtime.Version())
}

// Populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var devInfo = Info{
	Name:    "voiceshield",
	Time:    "unknown",
	Commit:  "unknown",
	Version: "dev",
}

var buildInfo = devInfo

// Initialize copies the ldflags variables into the reported Info. Missing
// flags keep their development placeholder and are listed in the returned
// error; callers log it and carry on.
func Initialize() error {
	buildInfo = devInfo

	var errs []error
	set := func(dst *string, v, flag string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is not set", flag))
			return
		}
		*dst = v
	}
	set(&buildInfo.Name, buildName, "buildName")
	set(&buildInfo.Time, buildTime, "buildTime")
	set(&buildInfo.Commit, buildCommit, "buildCommit")
	set(&buildInfo.Version, buildVersion, "buildVersion")

	return errors.Join(errs...)
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() Info {
	return buildInfo
}
