// Command lwpdemo runs a handful of cooperative workers on an lwp runtime
// and reports their exit statuses as they are reclaimed.
//
// Extra flags may be passed in the LWPFLAGS environment variable; they are
// parsed before the command line ones.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/shlex"
	"github.com/inhies/go-bytesize"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/tinygo-org/lwp"
)

type options struct {
	config    string
	workers   int
	rounds    int
	stackSize bytesize.ByteSize
	verbose   bool
}

// parseFlags parses the flags in LWPFLAGS followed by args.
func parseFlags(env string, args []string) (*options, error) {
	extra, err := shlex.Split(env)
	if err != nil {
		return nil, fmt.Errorf("LWPFLAGS: %w", err)
	}
	opts := &options{}
	fs := flag.NewFlagSet("lwpdemo", flag.ContinueOnError)
	fs.StringVar(&opts.config, "config", "", "YAML runtime configuration")
	fs.IntVar(&opts.workers, "workers", 3, "number of worker threads")
	fs.IntVar(&opts.rounds, "rounds", 3, "number of times each worker yields")
	fs.Var(&opts.stackSize, "stack-size", "stack size of each worker (e.g. 64KB)")
	fs.BoolVar(&opts.verbose, "v", false, "log every switch")
	if err := fs.Parse(append(extra, args...)); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if opts.workers < 0 || opts.rounds < 0 {
		return nil, fmt.Errorf("-workers and -rounds must not be negative")
	}
	return opts, nil
}

func (o *options) runtimeConfig() (lwp.Config, error) {
	cfg := lwp.DefaultConfig()
	if o.config != "" {
		var err error
		cfg, err = lwp.LoadConfigFile(o.config)
		if err != nil {
			return cfg, err
		}
	}
	if o.stackSize != 0 {
		cfg.StackSize = o.stackSize
	}
	if o.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

type printer struct {
	w     io.Writer
	color bool
}

func (p printer) tid(id lwp.TID) string {
	if !p.color {
		return fmt.Sprintf("[%d]", id)
	}
	return fmt.Sprintf("\x1b[36m[%d]\x1b[0m", id)
}

func (p printer) printf(id lwp.TID, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.tid(id), fmt.Sprintf(format, args...))
}

// worker returns the body of worker n: it yields rounds times and then
// exits with status n.
func worker(rt *lwp.Runtime, p printer, rounds int) lwp.Func {
	return func(arg any) int {
		n := arg.(int)
		for i := 0; i < rounds; i++ {
			p.printf(rt.CurrentID(), "worker %d round %d", n, i)
			rt.Yield()
		}
		return n
	}
}

func run(opts *options, p printer) error {
	cfg, err := opts.runtimeConfig()
	if err != nil {
		return err
	}
	rt := lwp.New(cfg)
	body := worker(rt, p, opts.rounds)
	for i := 0; i < opts.workers; i++ {
		if _, err := rt.Create(body, i+1); err != nil {
			return err
		}
	}
	if err := rt.Start(); err != nil {
		return err
	}
	self := rt.CurrentID()
	for {
		id, status := rt.Wait()
		if id == lwp.NoThread {
			break
		}
		p.printf(self, "reclaimed thread %d, status %d", id, status)
	}
	rt.Exit(0)
	return nil
}

func main() {
	opts, err := parseFlags(os.Getenv("LWPFLAGS"), os.Args[1:])
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "lwpdemo:", err)
		os.Exit(2)
	}
	p := printer{
		w:     colorable.NewColorableStdout(),
		color: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
	if err := run(opts, p); err != nil {
		fmt.Fprintln(os.Stderr, "lwpdemo:", err)
		os.Exit(1)
	}
}
