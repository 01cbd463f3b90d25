package version

import (
	"strings"
	"testing"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"bare", Info{Version: "dev", BuildTime: "unknown"}, "moneyclip dev"},
		{"full", Info{Version: "1.2.0", BuildTime: "2025-06-20", GoVersion: "go1.25.0", Revision: "0123456789abcdef"},
			"moneyclip 1.2.0 (go1.25.0, 01234567, built 2025-06-20)"},
		{"dirty", Info{Version: "1.2.0", BuildTime: "unknown", Revision: "abc", Modified: true},
			"moneyclip 1.2.0 (abc+dirty)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWarning(t *testing.T) {
	if w := (Info{Version: "dev"}).Warning(); !strings.Contains(w, "development") {
		t.Errorf("dev build warning = %q", w)
	}
	if w := (Info{Version: "1.0.0", Revision: "abc", Modified: true}).Warning(); !strings.Contains(w, "modified") {
		t.Errorf("modified warning = %q", w)
	}
	if w := (Info{Version: "1.0.0", Revision: "abc"}).Warning(); w != "" {
		t.Errorf("clean build warning = %q", w)
	}
}

func TestGetKeepsLdflags(t *testing.T) {
	info := Get()
	if info.Version != Version || info.BuildTime != BuildTime {
		t.Errorf("Get() = %+v", info)
	}
}
