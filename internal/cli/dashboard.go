package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"expensetracker/internal/core"
)

type dashboardCmd struct {
	env   *Env
	year  int
	month int
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "show the monthly overview" }
func (*dashboardCmd) Usage() string {
	return `expensectl dashboard [-year <y>] [-month <m>]

  Prints the month total, the totals by category for the month and the
  year, and the monthly trend. Defaults to the current month.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	now := time.Now()
	f.IntVar(&c.year, "year", now.Year(), "Year of the overview.")
	f.IntVar(&c.month, "month", int(now.Month()), "Month of the overview, 1-12.")
}

func (c *dashboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.month < 1 || c.month > 12 {
		return c.env.usagef(f, "dashboard: month must be between 1 and 12")
	}
	ov, err := c.env.View().Dashboard(ctx, c.year, c.month)
	if err != nil {
		return c.env.failf("dashboard: %v", err)
	}
	printOverview(c.env.Out, ov)
	return subcommands.ExitSuccess
}

func printOverview(w io.Writer, ov core.MonthOverview) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	defer tw.Flush()

	fmt.Fprintf(tw, "%s total\t%s\t\n", core.YearMonth{Year: ov.Year, Month: ov.Month}, ov.Total.StringFixed(2))

	fmt.Fprintf(tw, "\nBy category\t\t\n")
	for _, ca := range ov.ByCategory {
		fmt.Fprintf(tw, "%s\t%s\t\n", ca.Name, ca.Amount.StringFixed(2))
	}

	fmt.Fprintf(tw, "\nYear to date %d\t\t\n", ov.Year)
	for _, ca := range ov.YearToDate {
		fmt.Fprintf(tw, "%s\t%s\t\n", ca.Name, ca.Amount.StringFixed(2))
	}

	fmt.Fprintf(tw, "\nTrend\t\t\n")
	for i, v := range ov.Trend {
		fmt.Fprintf(tw, "%s\t%s\t\n", time.Month(i+1).String()[:3], v.StringFixed(2))
	}
}
