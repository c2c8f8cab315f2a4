package sync

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
)

// Supported protocol range: >=1.0 <1.1.
const (
	minProtocol = "v1.0.0"
	maxProtocol = "v1.1.0"
)

// Decision is the outcome of comparing a descriptor against the live slot.
type Decision int

const (
	// DecisionNoop means the live slot already holds this bundle.
	DecisionNoop Decision = iota
	// DecisionFull means the live slot was never written.
	DecisionFull
	// DecisionIncremental means only changed categories need rewriting.
	DecisionIncremental
)

func (d Decision) String() string {
	switch d {
	case DecisionNoop:
		return "noop"
	case DecisionFull:
		return "full"
	case DecisionIncremental:
		return "incremental"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Local is what the live slot records about the bundle it holds.
type Local struct {
	BundleVersion string
	UpdatedAt     int64
}

// Compare decides what a sync must do to bring the live slot up to desc.
//
// It fails with ErrUnsupportedProtocol before any other check, so a bundle
// produced under an unknown protocol is never written.
func Compare(desc *bundle.VersionDescriptor, local Local) (Decision, error) {
	if !SupportedProtocol(desc.ProtocolVersion) {
		return DecisionNoop, fmt.Errorf("%w: %q (want >=1.0 <1.1)", ErrUnsupportedProtocol, desc.ProtocolVersion)
	}
	if sameVersion(desc.BundleVersion, local.BundleVersion) && desc.UpdatedAt == local.UpdatedAt {
		return DecisionNoop, nil
	}
	if local.BundleVersion == "" || sameVersion(local.BundleVersion, slot.SentinelVersion) {
		return DecisionFull, nil
	}
	return DecisionIncremental, nil
}

// SupportedProtocol reports whether v satisfies >=1.0 <1.1. Prereleases are
// rejected.
func SupportedProtocol(v string) bool {
	sv := canonical(v)
	if !semver.IsValid(sv) || semver.Prerelease(sv) != "" {
		return false
	}
	return semver.Compare(sv, minProtocol) >= 0 && semver.Compare(sv, maxProtocol) < 0
}

// sameVersion compares two bundle versions semantically, falling back to
// string equality when either is not a valid semantic version.
func sameVersion(a, b string) bool {
	ca, cb := canonical(a), canonical(b)
	if semver.IsValid(ca) && semver.IsValid(cb) {
		return semver.Compare(ca, cb) == 0
	}
	return a == b
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
