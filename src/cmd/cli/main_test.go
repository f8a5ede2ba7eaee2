package main

import (
	"testing"
)

func TestSelection(t *testing.T) {
	tests := []struct {
		name string
		opts captureOptions
		want string
	}{
		{"default is whole screen", captureOptions{screen: -1}, ""},
		{"window wins", captureOptions{window: "Firefox", screen: 1}, "Firefox"},
		{"screen index", captureOptions{screen: 1}, "screen:1"},
		{"screen zero", captureOptions{screen: 0}, "screen:0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selection(&tt.opts); got != tt.want {
				t.Errorf("selection() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{
		"capture": false,
		"targets": false,
		"models":  false,
		"check":   false,
		"trigger": false,
	}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestCaptureFlagDefaults(t *testing.T) {
	cmd := newCaptureCmd()
	if got, _ := cmd.Flags().GetInt("screen"); got != -1 {
		t.Errorf("screen default = %d, want -1", got)
	}
	if got, _ := cmd.Flags().GetBool("no-ai"); got {
		t.Error("no-ai should default to false")
	}
	if got, _ := cmd.Flags().GetDuration("timeout"); got != 0 {
		t.Errorf("timeout default = %v, want 0 (use config)", got)
	}
	if got, _ := cmd.Flags().GetBool("json"); got {
		t.Error("json should default to false")
	}
}
