package version

import "fmt"

// Flag contains extra info about the version, such as "develop" or "rc1". It
// is empty on release builds.
const Flag = ""

// Protocol is the FBP network protocol revision spoken by the client.
const Protocol = "0.7"

var (
	// Version is the full version string
	Version = "0.1.0"

	// GitCommit is set with --ldflags "-X
	// github.com/mosaicnetworks/flowsync/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	if Flag != "" {
		Version += "-" + Flag
	}

	if len(GitCommit) >= 8 {
		Version += "-" + GitCommit[:8]
	}
}

// String returns the version together with the protocol revision.
func String() string {
	return fmt.Sprintf("flowsync %s (protocol %s)", Version, Protocol)
}
