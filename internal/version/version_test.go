// ABOUTME: Tests for version constants
// ABOUTME: Checks the identifiers reported to metrics and HTTP servers
package version

import (
	"regexp"
	"strings"
	"testing"
)

func TestVersionIsSemver(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(Version) {
		t.Errorf("Version %q is not MAJOR.MINOR.PATCH", Version)
	}
}

func TestIdentifiersDefined(t *testing.T) {
	for name, v := range map[string]string{"Product": Product, "Manufacturer": Manufacturer} {
		if strings.TrimSpace(v) == "" {
			t.Errorf("%s should not be empty", name)
		}
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if ua != "TimeshiftPlayer/"+Version {
		t.Errorf("UserAgent() = %q", ua)
	}
	if strings.ContainsAny(ua, " \t") {
		t.Errorf("UserAgent() must be a single token, got %q", ua)
	}
}
