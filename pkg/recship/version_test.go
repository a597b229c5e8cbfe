package recship

import "testing"

func TestIsVersionCompatible(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.1.0", "1.0.0", true},
		{"1.0.1", "1.0.2", false},
		{"2.0.0", "1.9.9", true},
		{"1.9.9", "2.0.0", false},
	}
	for _, tt := range tests {
		if got := isVersionCompatible(tt.version, tt.min); got != tt.want {
			t.Errorf("isVersionCompatible(%q, %q) = %v, want %v", tt.version, tt.min, got, tt.want)
		}
	}
	if err := validateModuleVersions(); err != nil {
		t.Fatalf("validateModuleVersions() = %v", err)
	}
}
