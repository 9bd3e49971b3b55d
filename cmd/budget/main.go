package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"budget/internal/analytics"
	"budget/internal/cli"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/render"
	"budget/internal/services"
)

type env struct {
	app   *cli.App
	out   *render.Printer
	now   time.Time
	stdin io.Reader
}

func (e *env) today() core.Date { return core.DateOf(e.now) }

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"add":        {"add [flags] <description>", "Add an income or expense transaction", runAdd},
	"delete":     {"delete <id>", "Delete a transaction", runDelete},
	"list":       {"list [flags]", "List transactions, most recent first", runList},
	"summary":    {"summary", "Show total income, expenses and balance", runSummary},
	"monthly":    {"monthly", "Show income and expenses for recent months", runMonthly},
	"categories": {"categories [--month YYYY-MM]", "Show spending by category", runCategories},
	"trends":     {"trends", "Show spending trends and savings opportunities", runTrends},
	"goal":       {"goal set|clear|show", "Manage monthly budget goals", runGoal},
	"recurring":  {"recurring add|list|delete", "Manage recurring transactions", runRecurring},
	"currency":   {"currency [USD|JPY]", "Show or change the display currency", runCurrency},
	"export":     {"export [--output file]", "Export all transactions as JSON", runExport},
	"import":     {"import <file|->", "Replace all transactions with a JSON export", runImport},
	"process":    {"process", "Materialize due recurring transactions", runProcess},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: budget <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
}

func main() {
	cli.LoadEnvFile()
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger := cli.SetupLoggerTo(os.Stderr, level, log.ComponentCLI)

	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		usage(os.Stdout)
		return
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	ctx, stop := cli.SignalContext()
	defer stop()

	app, err := cli.InitApp(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize", log.FieldError, err)
		os.Exit(1)
	}

	e := &env{app: app, out: render.NewPrinter(os.Stdout), now: time.Now(), stdin: os.Stdin}

	// Every invocation catches up recurring transactions first.
	if n, err := app.Processor.ProcessDue(ctx, e.today()); err != nil {
		logger.Warn("Recurring processing failed", log.FieldOperation, log.OpProcess, log.FieldError, err)
	} else if n > 0 {
		e.out.Line("Added %d recurring transaction(s).", n)
	}

	err = cmd.run(ctx, e, os.Args[2:])
	if cerr := app.Close(); cerr != nil {
		logger.Warn("Failed to close backend", log.FieldError, cerr)
	}
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func runAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("add")
	typ := fs.StringP("type", "t", string(core.Expense), "income or expense")
	category := fs.StringP("category", "c", "", "category slug (see 'budget categories --all')")
	amount := fs.StringP("amount", "a", "", "positive amount, e.g. 12.50 or 12,50")
	date := fs.StringP("date", "d", e.today().String(), "date as YYYY-MM-DD")
	currency := fs.String("currency", "", "USD or JPY (default: display currency)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := core.TransactionInput{
		Description: strings.Join(fs.Args(), " "),
		Amount:      *amount,
		Type:        *typ,
		Category:    *category,
		Date:        *date,
		Currency:    *currency,
	}
	tx, err := input.Parse(e.app.Ledger.Currency())
	if err != nil {
		return err
	}
	tx, err = e.app.Ledger.AddTransaction(ctx, tx)
	if err != nil {
		return err
	}
	e.out.Line("Added %s %s on %s (%s).", tx.Type, tx.Description, tx.Date, tx.ID)
	return nil
}

func runDelete(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: budget delete <id>")
	}
	if err := e.app.Ledger.DeleteTransaction(ctx, core.ID(args[0])); err != nil {
		return err
	}
	e.out.Line("Deleted %s.", args[0])
	return nil
}

func runList(_ context.Context, e *env, args []string) error {
	fs := newFlags("list")
	var c analytics.Criteria
	fs.StringVarP(&c.Search, "search", "s", "", "match description or category")
	fs.StringVarP(&c.Type, "type", "t", analytics.All, "income, expense or all")
	fs.StringVarP(&c.Category, "category", "c", analytics.All, "category slug or all")
	fs.StringVarP(&c.Month, "month", "m", "", "YYYY-MM")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e.out.Transactions(e.app.Reports.List(c), e.app.Ledger.Currency())
	return nil
}

func runSummary(_ context.Context, e *env, _ []string) error {
	d := e.app.Reports.Dashboard(e.now)
	e.out.Summary(d.Summary, d.Currency)
	return nil
}

func runMonthly(_ context.Context, e *env, _ []string) error {
	d := e.app.Reports.Dashboard(e.now)
	e.out.Monthly(d.Monthly, d.Currency)
	return nil
}

func runCategories(_ context.Context, e *env, args []string) error {
	fs := newFlags("categories")
	month := fs.StringP("month", "m", "", "YYYY-MM (default: current month)")
	all := fs.Bool("all", false, "list the category vocabulary instead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *all {
		for _, t := range []core.TransactionType{core.Income, core.Expense} {
			e.out.Line("%s:", t)
			for _, slug := range core.Categories(t) {
				e.out.Line("  %-16s %s", slug, core.CategoryDisplayName(slug))
			}
		}
		return nil
	}

	if *month == "" {
		d := e.app.Reports.Dashboard(e.now)
		e.out.Categories(d.Month, d.Categories, d.Currency)
		return nil
	}
	if _, err := time.Parse(core.MonthLayout, *month); err != nil {
		return fmt.Errorf("invalid month %q: want YYYY-MM", *month)
	}
	display := e.app.Ledger.Currency()
	totals := analytics.CategoryTotals(e.app.Ledger.Transactions(), *month, display)
	e.out.Categories(*month, analytics.SortedCategoryAmounts(totals), display)
	return nil
}

func runTrends(_ context.Context, e *env, _ []string) error {
	d := e.app.Reports.Dashboard(e.now)
	e.out.Trends(d.Trends, d.Currency)
	return nil
}

func runGoal(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: budget goal set|clear|show")
	}
	fs := newFlags("goal " + args[0])
	category := fs.StringP("category", "c", "", "expense category (default: overall monthly goal)")
	currency := fs.String("currency", "", "USD or JPY (default: display currency)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "set":
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: budget goal set [--category c] <amount>")
		}
		amount, err := core.ParseAmount(fs.Arg(0))
		if err != nil {
			return err
		}
		goal := core.BudgetGoal{Amount: amount}
		if *currency != "" {
			if goal.Currency, err = core.ParseCurrency(*currency); err != nil {
				return err
			}
		}
		if err := e.app.Ledger.SetGoal(ctx, *category, goal); err != nil {
			return err
		}
		e.out.Line("Goal saved.")
	case "clear":
		if err := e.app.Ledger.ClearGoal(ctx, *category); err != nil {
			return err
		}
		e.out.Line("Goal cleared.")
	case "show":
	default:
		return fmt.Errorf("unknown goal command %q", args[0])
	}

	d := e.app.Reports.Dashboard(e.now)
	e.out.Goals(d.Goals, d.Currency)
	return nil
}

func runRecurring(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: budget recurring add|list|delete")
	}
	switch args[0] {
	case "add":
		return runRecurringAdd(ctx, e, args[1:])
	case "list":
		e.out.Rules(e.app.Reports.Upcoming(e.today()))
		return nil
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: budget recurring delete <id>")
		}
		if err := e.app.Ledger.DeleteRule(ctx, core.ID(args[1])); err != nil {
			return err
		}
		e.out.Line("Deleted recurring transaction %s. Already added transactions are kept.", args[1])
		return nil
	}
	return fmt.Errorf("unknown recurring command %q", args[0])
}

func runRecurringAdd(ctx context.Context, e *env, args []string) error {
	fs := newFlags("recurring add")
	typ := fs.StringP("type", "t", string(core.Expense), "income or expense")
	category := fs.StringP("category", "c", "", "category slug")
	amount := fs.StringP("amount", "a", "", "positive amount")
	frequency := fs.StringP("frequency", "f", string(core.Monthly), "weekly, monthly or yearly")
	start := fs.StringP("start", "s", e.today().String(), "first occurrence as YYYY-MM-DD")
	currency := fs.String("currency", "", "USD or JPY (default: display currency)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := core.ParseAmount(*amount)
	if err != nil {
		return err
	}
	startDate, err := core.ParseDate(*start)
	if err != nil {
		return err
	}
	rule := core.RecurringRule{
		Description: strings.TrimSpace(strings.Join(fs.Args(), " ")),
		Amount:      parsed,
		Type:        core.TransactionType(strings.ToLower(*typ)),
		Category:    *category,
		Frequency:   core.Frequency(strings.ToLower(*frequency)),
		StartDate:   startDate,
	}
	if *currency != "" {
		if rule.Currency, err = core.ParseCurrency(*currency); err != nil {
			return err
		}
	}

	rule, caughtUp, err := e.app.Ledger.AddRule(ctx, rule)
	if err != nil {
		return err
	}
	e.out.Line("Added recurring %s %q (%s).", rule.Frequency, rule.Description, rule.ID)
	if len(caughtUp) > 0 {
		e.out.Line("Added %d past occurrence(s).", len(caughtUp))
	}
	return nil
}

func runCurrency(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		e.out.Line("%s", e.app.Ledger.Currency())
		return nil
	}
	c, err := core.ParseCurrency(args[0])
	if err != nil {
		return err
	}
	if err := e.app.Ledger.SetCurrency(ctx, c); err != nil {
		return err
	}
	e.out.Line("Display currency set to %s.", c)
	return nil
}

func runExport(_ context.Context, e *env, args []string) error {
	fs := newFlags("export")
	output := fs.StringP("output", "o", services.ExportFileName(e.now), "file to write, - for stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *output == "-" {
		return e.app.Ledger.Export(os.Stdout)
	}
	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := e.app.Ledger.Export(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	e.out.Line("Exported %d transaction(s) to %s.", len(e.app.Ledger.Transactions()), *output)
	return nil
}

func runImport(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: budget import <file|->")
	}
	r := e.stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		r = f
	}
	n, err := e.app.Ledger.Import(ctx, r)
	if errors.Is(err, services.ErrImport) {
		e.out.Warn("Import failed, existing transactions were kept.")
		return err
	}
	if err != nil {
		return err
	}
	e.out.Line("Imported %d transaction(s).", n)
	return nil
}

func runProcess(ctx context.Context, e *env, _ []string) error {
	// Startup has already processed through today; this reports the schedule.
	n, err := e.app.Processor.ProcessDue(ctx, e.today())
	if err != nil {
		return err
	}
	e.out.Line("Processed recurring transactions through %s (%d new).", e.today(), n)
	e.out.Rules(e.app.Reports.Upcoming(e.today()))
	return nil
}
