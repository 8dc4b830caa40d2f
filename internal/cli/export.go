package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"expensetracker/internal/csvfile"
)

type exportCmd struct {
	env    *Env
	file   string
	filter filterFlags
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the selected expenses to a CSV file" }
func (*exportCmd) Usage() string {
	return `expensectl export [-file <out.csv> | -file -] [-year <y> [-month <m>]] [-category <c>]

  Writes the selected records as CSV. Without -file the name is derived
  from the selection (expenses-2025-03.csv); "-" writes to stdout.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "Output file, - for stdout.")
	c.filter.register(f)
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	filter, err := c.filter.filter()
	if err != nil {
		return c.env.usagef(f, "export: %v", err)
	}
	records, err := c.env.View().RecordsFor(ctx, filter)
	if err != nil {
		return c.env.failf("export: %v", err)
	}

	if c.file == "-" {
		if err := csvfile.Write(c.env.Out, records); err != nil {
			return c.env.failf("export: %v", err)
		}
		return subcommands.ExitSuccess
	}

	name := c.file
	if name == "" {
		name = csvfile.FileName(filter)
	}
	out, err := os.Create(name)
	if err != nil {
		return c.env.failf("export: %v", err)
	}
	if err := csvfile.Write(out, records); err != nil {
		out.Close()
		return c.env.failf("export: %v", err)
	}
	if err := out.Close(); err != nil {
		return c.env.failf("export: %v", err)
	}
	fmt.Fprintf(c.env.Out, "Exported %d records to %s\n", len(records), name)
	return subcommands.ExitSuccess
}
