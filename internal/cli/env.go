package cli

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/google/subcommands"

	"expensetracker/internal/client"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/view"
)

// Env is what the expensectl subcommands share: configuration, output
// streams and the lazily created backend client and record view.
type Env struct {
	Config *config.Config
	Logger *log.Logger
	Out    io.Writer
	Err    io.Writer

	once   sync.Once
	client *client.Client
	view   *view.View
}

// NewEnv returns an Env writing to stdout and stderr.
func NewEnv(cfg *config.Config, logger *log.Logger) *Env {
	if logger == nil {
		logger = log.Discard()
	}
	return &Env{Config: cfg, Logger: logger, Out: os.Stdout, Err: os.Stderr}
}

func (e *Env) init() {
	e.once.Do(func() {
		e.client = client.New(e.Config.APIBaseURL, &http.Client{Timeout: e.Config.APITimeout}, e.Logger)
		e.view = view.New(e.client, view.Config{
			CacheSize: e.Config.ViewCacheSize,
			CacheTTL:  e.Config.ViewCacheTTL,
		}, e.Logger)
	})
}

// Client returns the backend client.
func (e *Env) Client() *client.Client {
	e.init()
	return e.client
}

// View returns the record view backed by Client.
func (e *Env) View() *view.View {
	e.init()
	return e.view
}

func (e *Env) failf(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, format+"\n", args...)
	return subcommands.ExitFailure
}

func (e *Env) usagef(f *flag.FlagSet, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(e.Err, format+"\n", args...)
	f.Usage()
	return subcommands.ExitUsageError
}

// Commands returns every expensectl subcommand bound to env.
func Commands(env *Env) []subcommands.Command {
	return []subcommands.Command{
		&importCmd{env: env},
		&exportCmd{env: env},
		&dashboardCmd{env: env},
		&watchCmd{env: env},
	}
}

// filterFlags are the -year, -month and -category flags of the commands
// that work on a record selection.
type filterFlags struct {
	year     int
	month    int
	category string
}

func (ff *filterFlags) register(f *flag.FlagSet) {
	f.IntVar(&ff.year, "year", 0, "Only records of this year (0 for all).")
	f.IntVar(&ff.month, "month", 0, "Only records of this month, 1-12 (needs -year).")
	f.StringVar(&ff.category, "category", "", "Only records of this category.")
}

func (ff *filterFlags) filter() (core.Filter, error) {
	f := core.Filter{Year: ff.year, Month: ff.month, Category: ff.category}
	return f, f.Validate()
}
