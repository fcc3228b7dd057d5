package lwp

import (
	"strings"
	"testing"

	"github.com/inhies/go-bytesize"
	"github.com/tinygo-org/lwp/internal/stack"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Config
		wantErr string
	}{
		{
			name:  "empty",
			input: "",
			want:  DefaultConfig(),
		},
		{
			name:  "full",
			input: "stack_size: 256KB\ninitial_threads: 64\nmax_threads: 1000\nverbose: true\n",
			want: Config{
				StackSize:      256 * bytesize.KB,
				InitialThreads: 64,
				MaxThreads:     1000,
				Verbose:        true,
			},
		},
		{
			name:  "partial",
			input: "stack_size: 1MB\n",
			want:  Config{StackSize: bytesize.MB, InitialThreads: 32},
		},
		{
			name:    "bad size",
			input:   "stack_size: lots\n",
			wantErr: "stack_size",
		},
		{
			name:    "unknown key",
			input:   "stacksize: 1MB\n",
			wantErr: "stacksize",
		},
		{
			name:    "negative table",
			input:   "initial_threads: -1\n",
			wantErr: "initial_threads",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(strings.NewReader(tc.input))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Errorf("got error %v, want one mentioning %q", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if cfg != tc.want {
				t.Errorf("got %+v, want %+v", cfg, tc.want)
			}
		})
	}
}

func TestStackSize(t *testing.T) {
	if got := stackSize(Config{StackSize: 100}); got != 112 {
		t.Errorf("stackSize(100) = %d, want 112", got)
	}
	if got, want := stackSize(Config{}), stack.Size(); got != want {
		t.Errorf("stackSize() = %d, want host policy %d", got, want)
	}
}
