package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

// TestVersionCommand tests the version output.
func TestVersionCommand(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})
	Version = "0.1.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-10-01"

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	versionCmd.Run(versionCmd, nil)

	for _, want := range []string{
		"tagstream 0.1.0-test",
		"Git Commit: abc123",
		"Build Date: 2026-10-01",
		"Go Version: " + runtime.Version(),
		"OS/Arch: " + runtime.GOOS + "/" + runtime.GOARCH,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("version output missing %q:\n%s", want, out.String())
		}
	}
}

// TestCommandsRegistered tests that every subcommand is reachable from the
// root command.
func TestCommandsRegistered(t *testing.T) {
	want := []string{"completion", "resolve", "run", "validate", "version"}
	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			if err != nil {
				t.Fatalf("Find(%q) error = %v", name, err)
			}
			if cmd.Name() != name {
				t.Errorf("Find(%q) = %q", name, cmd.Name())
			}
			if cmd.Short == "" {
				t.Errorf("%s has no short description", name)
			}
		})
	}
}
