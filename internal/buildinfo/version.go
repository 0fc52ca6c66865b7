// Package buildinfo reports which build of hu-install is running, for the
// version command and the header of the install log.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// releaseVersion is set at link time for release builds:
//
//	go build -ldflags "-X github.com/hu-ti-dev/installers/internal/buildinfo.releaseVersion=v1.2.0"
var releaseVersion string

// Info describes the running binary.
type Info struct {
	Version   string
	Revision  string // full VCS revision, empty when unknown
	Time      string // VCS commit time, RFC 3339
	Modified  bool
	GoVersion string
	Platform  string
}

// Read collects build information for the running binary.
func Read() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{
			Version:   orDefault(releaseVersion, "unknown"),
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
	}
	info := fromBuildInfo(bi)
	info.GoVersion = runtime.Version()
	info.Platform = runtime.GOOS + "/" + runtime.GOARCH
	return info
}

// Version returns the version string for the current build: the linked
// release version, the module tag for go install builds, or a
// "dev-<hash>[-dirty]" pseudo-version.
func Version() string {
	return Read().Version
}

// String renders the info on one line.
func (i Info) String() string {
	s := fmt.Sprintf("hu-install %s (%s, %s)", i.Version, i.GoVersion, i.Platform)
	if i.Time != "" {
		s += " built from commit of " + i.Time
	}
	return s
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	var info Info
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.time":
			info.Time = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}

	switch {
	case releaseVersion != "":
		info.Version = releaseVersion
	case bi.Main.Version != "" && bi.Main.Version != "(devel)":
		info.Version = bi.Main.Version
	default:
		info.Version = devVersion(info.Revision, info.Modified)
	}
	return info
}

// devVersion returns "dev-<hash>[-dirty]", or "dev" without a revision.
func devVersion(revision string, modified bool) string {
	if revision == "" {
		return "dev"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	v := "dev-" + revision
	if modified {
		v += "-dirty"
	}
	return v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
