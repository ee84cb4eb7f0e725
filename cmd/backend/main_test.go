package main

import (
	"testing"
	"time"
)

func TestGetenvDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      string
		envValue string
		want     string
	}{
		{
			name:     "env var set",
			key:      "CONVERT_TEST_VAR_SET",
			def:      "default",
			envValue: "custom",
			want:     "custom",
		},
		{
			name:     "env var empty",
			key:      "CONVERT_TEST_VAR_EMPTY",
			def:      "default",
			envValue: "",
			want:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			got := getenvDefault(tt.key, tt.def)
			if got != tt.want {
				t.Errorf("getenvDefault(%q, %q) = %q, want %q", tt.key, tt.def, got, tt.want)
			}
		})
	}
}

func TestGetenvTyped(t *testing.T) {
	t.Setenv("CONVERT_TEST_INT", "12")
	t.Setenv("CONVERT_TEST_BAD_INT", "twelve")
	t.Setenv("CONVERT_TEST_BOOL", "false")
	t.Setenv("CONVERT_TEST_DURATION", "90s")
	t.Setenv("CONVERT_TEST_UNSET", "")

	if got := getenvInt("CONVERT_TEST_INT", 4); got != 12 {
		t.Errorf("getenvInt = %d, want 12", got)
	}
	if got := getenvInt("CONVERT_TEST_BAD_INT", 4); got != 4 {
		t.Errorf("getenvInt(bad) = %d, want 4", got)
	}
	if got := getenvInt("CONVERT_TEST_UNSET", 4); got != 4 {
		t.Errorf("getenvInt(unset) = %d, want 4", got)
	}
	if got := getenvBool("CONVERT_TEST_BOOL", true); got {
		t.Error("getenvBool = true, want false")
	}
	if got := getenvBool("CONVERT_TEST_UNSET", true); !got {
		t.Error("getenvBool(unset) = false, want true")
	}
	if got := getenvDuration("CONVERT_TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("getenvDuration = %s, want 1m30s", got)
	}
	if got := getenvDuration("CONVERT_TEST_UNSET", time.Minute); got != time.Minute {
		t.Errorf("getenvDuration(unset) = %s, want 1m0s", got)
	}
}
