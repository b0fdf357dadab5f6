package context

import (
	"fmt"
	"regexp"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
)

// The semantic version of forage. It's overridden by vcsVersion if set.
const version = "0.1.0"

var (
	// Set at build time with -ldflags "-X ...context.vcsVersion=$(git describe)".
	vcsVersion string
	semverRx   = regexp.MustCompile(`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*).*`)
	commitRx   = regexp.MustCompile(`^g[0-9a-f]{6,}$`)
)

// VersionInfo is the build version of forage.
type VersionInfo struct {
	Semantic    string
	Commit      string
	TagDistance int // commits since the latest tag
	Dirty       bool
	Go          string
}

// GetVersion returns the version of the running binary. The VCS version set
// at build time takes precedence, and missing details are filled in from the
// build information embedded by the Go toolchain.
func GetVersion() (*VersionInfo, error) {
	vi := &VersionInfo{
		Go: fmt.Sprintf("%s, %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}

	if vcsVersion != "" {
		if err := vi.UnmarshalText([]byte(vcsVersion)); err != nil {
			return nil, fmt.Errorf("failed parsing VCS version '%s': %w", vcsVersion, err)
		}
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		vi.fromBuildSettings(bi.Settings)
	}

	if vi.Semantic == "" {
		vi.Semantic = version
	}

	return vi, nil
}

func (vi *VersionInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "v%s (", vi.Semantic)
	if vi.Commit != "" {
		fmt.Fprintf(&sb, "commit/%s", vi.Commit)
		if vi.TagDistance > 0 {
			fmt.Fprintf(&sb, "-%d", vi.TagDistance)
		}
		if vi.Dirty {
			sb.WriteString("-dirty")
		}
		sb.WriteString(", ")
	}
	fmt.Fprintf(&sb, "%s)", vi.Go)

	return sb.String()
}

// UnmarshalText parses the output of `git describe --tags --dirty`.
func (vi *VersionInfo) UnmarshalText(data []byte) error {
	var rest []string
	for _, part := range strings.Split(string(data), "-") {
		switch {
		case commitRx.MatchString(part):
			vi.Commit = part[1:]
		case part == "dirty":
			vi.Dirty = true
		default:
			if n, err := strconv.Atoi(part); err == nil {
				vi.TagDistance = n
				continue
			}
			rest = append(rest, part)
		}
	}

	ver := strings.Join(rest, "-")
	switch {
	case semverRx.MatchString(ver):
		vi.Semantic = strings.TrimPrefix(ver, "v")
	case vi.Commit == "":
		vi.Commit = ver
	}

	return nil
}

func (vi *VersionInfo) fromBuildSettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if vi.Commit == "" {
				vi.Commit = s.Value[:min(10, len(s.Value))]
			}
		case "vcs.modified":
			vi.Dirty = vi.Dirty || s.Value == "true"
		}
	}
}
