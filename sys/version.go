package sys

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	ProjectName = "BiochemieBot"
	disgoModule = "github.com/disgoorg/disgo"
)

// Version is overridden at build time with -ldflags "-X .../sys.Version=x.y.z".
var Version = "1.2.0"

var zeroVersion = semver.New(0, 0, 0, "", "")

// ParseVersion parses s, accepting a leading "v" or "go". Unparsable input
// yields 0.0.0.
func ParseVersion(s string) *semver.Version {
	s = strings.TrimPrefix(strings.TrimSpace(s), "go")
	v, err := semver.NewVersion(s)
	if err != nil {
		return zeroVersion
	}
	return v
}

// ShortVersion renders only major.minor.patch.
func ShortVersion(v *semver.Version) string {
	return semver.New(v.Major(), v.Minor(), v.Patch(), "", "").String()
}

// VersionInfo reports the versions shown in the bot information embed.
type VersionInfo struct {
	Bot     string
	Go      string
	Library string
}

func CurrentVersions() VersionInfo {
	return VersionInfo{
		Bot:     ShortVersion(ParseVersion(Version)),
		Go:      ShortVersion(ParseVersion(runtime.Version())),
		Library: ShortVersion(ParseVersion(libraryVersion())),
	}
}

func libraryVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == disgoModule {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}
