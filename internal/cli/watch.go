package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/log"
)

type watchCmd struct {
	env    *Env
	filter filterFlags
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "follow change events and keep the selection fresh" }
func (*watchCmd) Usage() string {
	return `expensectl watch [-year <y> [-month <m>]] [-category <c>]

  Consumes expense change events from AMQP_URL. Cached data of the changed
  months is dropped and the selected records are reloaded when affected.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.filter.register(f)
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := c.env.Config
	if !cfg.AMQPEnabled() {
		return c.env.failf("watch: AMQP_URL is not set")
	}
	filter, err := c.filter.filter()
	if err != nil {
		return c.env.usagef(f, "watch: %v", err)
	}
	v := c.env.View()
	if err := v.SetFilter(filter); err != nil {
		return c.env.usagef(f, "watch: %v", err)
	}
	records, err := v.Records(ctx)
	if err != nil {
		return c.env.failf("watch: %v", err)
	}
	fmt.Fprintf(c.env.Out, "Watching %d records\n", len(records))

	caches := cache.NewManager(c.env.Logger)
	for _, cl := range v.Cleaners() {
		caches.Register(cl)
	}
	caches.StartCleanup(cfg.ViewCacheTTL)
	defer caches.Stop()

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, c.env.Logger)
	if err != nil {
		return c.env.failf("watch: %v", err)
	}
	defer consumer.Close()

	err = consumer.ConsumeExpensesChanged(ctx, c.handler())
	if err != nil && !errors.Is(err, context.Canceled) {
		return c.env.failf("watch: %v", err)
	}
	return subcommands.ExitSuccess
}

// handler applies one change event to the view. Messages with unparseable
// months are dropped.
func (c *watchCmd) handler() func(context.Context, *amqp.ExpensesChangedMessage) error {
	v := c.env.View()
	return func(ctx context.Context, msg *amqp.ExpensesChangedMessage) error {
		months, err := msg.YearMonths()
		if err != nil {
			c.env.Logger.WarnContext(ctx, "Ignoring change event", log.FieldError, err)
			return nil
		}
		v.ExpensesChanged(ctx, months)
		records, err := v.Records(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.Out, "%s: %s changed, %d records selected\n",
			msg.Reason, strings.Join(msg.Months, ", "), len(records))
		return nil
	}
}
