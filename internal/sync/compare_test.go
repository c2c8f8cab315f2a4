package sync

import (
	"errors"
	"testing"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
)

func TestCompare(t *testing.T) {
	desc := func(protocol, version string, updatedAt int64) *bundle.VersionDescriptor {
		return &bundle.VersionDescriptor{ProtocolVersion: protocol, BundleVersion: version, UpdatedAt: updatedAt}
	}

	tests := []struct {
		name    string
		desc    *bundle.VersionDescriptor
		local   Local
		want    Decision
		wantErr error
	}{
		{
			name:  "same version and timestamp",
			desc:  desc("1.0.0", "1.0.3", 100),
			local: Local{BundleVersion: "1.0.3", UpdatedAt: 100},
			want:  DecisionNoop,
		},
		{
			name:  "same version written with v prefix",
			desc:  desc("1.0.0", "v1.0.3", 100),
			local: Local{BundleVersion: "1.0.3", UpdatedAt: 100},
			want:  DecisionNoop,
		},
		{
			name:  "never written",
			desc:  desc("1.0.0", "1.0.3", 100),
			local: Local{BundleVersion: "0.0.0"},
			want:  DecisionFull,
		},
		{
			name:  "empty local version",
			desc:  desc("1.0.0", "1.0.3", 100),
			local: Local{},
			want:  DecisionFull,
		},
		{
			name:  "newer bundle version",
			desc:  desc("1.0.0", "1.0.4", 100),
			local: Local{BundleVersion: "1.0.3", UpdatedAt: 100},
			want:  DecisionIncremental,
		},
		{
			name:  "same version, rebuilt",
			desc:  desc("1.0.0", "1.0.3", 200),
			local: Local{BundleVersion: "1.0.3", UpdatedAt: 100},
			want:  DecisionIncremental,
		},
		{
			name:    "protocol too new",
			desc:    desc("2.0.0", "1.0.3", 100),
			local:   Local{BundleVersion: "0.0.0"},
			wantErr: ErrUnsupportedProtocol,
		},
		{
			name:    "protocol gate checked before noop",
			desc:    desc("1.1.0", "1.0.3", 100),
			local:   Local{BundleVersion: "1.0.3", UpdatedAt: 100},
			wantErr: ErrUnsupportedProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.desc, tt.local)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Compare() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compare() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Compare() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSupportedProtocol(t *testing.T) {
	tests := map[string]bool{
		"1.0.0":      true,
		"1.0":        true,
		"1.0.9":      true,
		"v1.0.2":     true,
		"1.1.0":      false,
		"1.1":        false,
		"0.9.9":      false,
		"2.0.0":      false,
		"1.0.0-beta": false,
		"":           false,
		"latest":     false,
	}
	for v, want := range tests {
		if got := SupportedProtocol(v); got != want {
			t.Errorf("SupportedProtocol(%q) = %v, want %v", v, got, want)
		}
	}
}

func TestDecisionString(t *testing.T) {
	if DecisionFull.String() != "full" || DecisionIncremental.String() != "incremental" || DecisionNoop.String() != "noop" {
		t.Errorf("unexpected decision names: %s %s %s", DecisionNoop, DecisionFull, DecisionIncremental)
	}
}
