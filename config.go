package lwp

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/inhies/go-bytesize"
	"gopkg.in/yaml.v2"
)

// Config holds the tunables of a Runtime.
type Config struct {
	// StackSize is the size of the stack region of every created thread.
	// Zero selects the host policy: the stack resource limit, or 8 MiB when
	// it is unlimited or unreadable.
	StackSize bytesize.ByteSize

	// InitialThreads is the number of thread table slots allocated on first
	// use, including the slot reserved for NoThread. The table doubles from
	// there as needed.
	InitialThreads int

	// MaxThreads is the highest identifier that will be assigned. Zero means
	// the whole TID range except NoThread.
	MaxThreads uint64

	// Verbose enables debug logging of every create, switch and reclaim.
	Verbose bool
}

// DefaultConfig returns the configuration used by Default.
func DefaultConfig() Config {
	return Config{
		InitialThreads: 32,
	}
}

// configFile is the YAML representation of Config.
type configFile struct {
	StackSize      string `yaml:"stack_size"`
	InitialThreads int    `yaml:"initial_threads"`
	MaxThreads     uint64 `yaml:"max_threads"`
	Verbose        bool   `yaml:"verbose"`
}

// LoadConfig reads a YAML configuration. Keys that are not present keep
// their DefaultConfig value; unknown keys are an error.
//
//	stack_size: 256KB
//	initial_threads: 64
//	max_threads: 1000
//	verbose: true
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	var file configFile
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("lwp: config: %w", err)
	}
	if file.StackSize != "" {
		size, err := bytesize.Parse(file.StackSize)
		if err != nil {
			return cfg, fmt.Errorf("lwp: config: stack_size: %w", err)
		}
		cfg.StackSize = size
	}
	if file.InitialThreads < 0 {
		return cfg, fmt.Errorf("lwp: config: initial_threads must not be negative, got %d", file.InitialThreads)
	}
	if file.InitialThreads != 0 {
		cfg.InitialThreads = file.InitialThreads
	}
	cfg.MaxThreads = file.MaxThreads
	cfg.Verbose = file.Verbose
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration from the named file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultConfig(), err
	}
	defer f.Close()
	return LoadConfig(f)
}
