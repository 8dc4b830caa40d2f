package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"expensetracker/internal/core"
	"expensetracker/internal/reconcile"
)

type importCmd struct {
	env    *Env
	file   string
	filter filterFlags
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import expenses from a CSV file" }
func (*importCmd) Usage() string {
	return `expensectl import -file <expenses.csv> [-year <y> [-month <m>]] [-category <c>]

  Parses the file, drops rows already present in the selected records and
  sends the rest to the backend in one bulk import. The selection flags
  choose which records are loaded for the duplicate check.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "CSV file to import (required).")
	c.filter.register(f)
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.file == "" {
		return c.env.usagef(f, "import: -file is required")
	}
	filter, err := c.filter.filter()
	if err != nil {
		return c.env.usagef(f, "import: %v", err)
	}

	file, err := os.Open(c.file)
	if err != nil {
		return c.env.failf("import: %v", err)
	}
	defer file.Close()
	size := int64(-1)
	if st, err := file.Stat(); err == nil {
		size = st.Size()
	}
	// File level rejections come before any backend traffic.
	if err := reconcile.CheckFile(c.file, size, c.env.Config.ImportMaxBytes); err != nil {
		return c.env.failf("import: %v", err)
	}

	v := c.env.View()
	if err := v.SetFilter(filter); err != nil {
		return c.env.usagef(f, "import: %v", err)
	}
	loaded, err := v.Records(ctx)
	if err != nil {
		return c.env.failf("import: %v", err)
	}

	r := reconcile.New(c.env.Client(),
		reconcile.WithNotifier(v),
		reconcile.WithMaxFileSize(c.env.Config.ImportMaxBytes),
		reconcile.WithLogger(c.env.Logger))
	summary, err := r.ImportFile(ctx, c.file, size, file, loaded)
	if err != nil {
		return c.env.failf("import: %v", err)
	}
	printImportSummary(c.env, summary)
	return subcommands.ExitSuccess
}

func printImportSummary(env *Env, s core.ImportSummary) {
	if s.NothingToImport() {
		fmt.Fprintf(env.Out, "Nothing to import: %d duplicate rows, %d rows with errors\n",
			s.SkippedFrontendDuplicate, s.ParseErrors)
	} else {
		fmt.Fprintf(env.Out, "Imported %d, skipped %d (%d already loaded, %d already stored), failed %d, parse errors %d\n",
			s.Imported, s.Skipped(), s.SkippedFrontendDuplicate, s.SkippedBackendDuplicate, s.Failed, s.ParseErrors)
	}
	for _, re := range s.RowErrors {
		fmt.Fprintf(env.Out, "  %v\n", re)
	}
}
