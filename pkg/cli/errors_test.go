package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	cause := errors.New("open config.yaml: no such file")

	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "field and cause",
			err:  NewConfigError("pipeline.workers", "must be positive", nil),
			want: "config error in pipeline.workers: must be positive",
		},
		{
			name: "no field",
			err:  NewConfigError("", "failed to load config", cause),
			want: "config error: failed to load config: open config.yaml: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if err := NewConfigError("", "failed to load config", cause); !errors.Is(err, cause) {
		t.Error("ConfigError does not unwrap to its cause")
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("no usable credentials")
	err := NewCommandError("run", cause)

	if got, want := err.Error(), "command run failed: no usable credentials"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("CommandError does not unwrap to its cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "config error", err: NewConfigError("", "bad", nil), want: ExitConfig},
		{name: "wrapped config error", err: fmt.Errorf("run: %w", NewConfigError("", "bad", nil)), want: ExitConfig},
		{name: "command error", err: NewCommandError("run", errors.New("boom")), want: ExitFailed},
		{name: "plain error", err: errors.New("boom"), want: ExitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
