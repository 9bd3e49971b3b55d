package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"budget/internal/core"
	"budget/internal/services"
)

const barWidth = 20

// Printer writes styled reports to one output.
type Printer struct {
	out   io.Writer
	money Money

	title    lipgloss.Style
	positive lipgloss.Style
	negative lipgloss.Style
	warning  lipgloss.Style
	muted    lipgloss.Style
}

// NewPrinter styles for the color profile of out; plain text when out is
// not a terminal.
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:      out,
		money:    NewMoney(language.English),
		title:    r.NewStyle().Bold(true).Underline(true),
		positive: r.NewStyle().Foreground(lipgloss.Color("2")),
		negative: r.NewStyle().Foreground(lipgloss.Color("1")),
		warning:  r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		muted:    r.NewStyle().Faint(true),
	}
}

func (p *Printer) heading(s string) {
	fmt.Fprintln(p.out, p.title.Render(s))
}

func (p *Printer) signed(amount decimal.Decimal, c core.Currency) string {
	s := p.money.Format(amount, c)
	if amount.IsNegative() {
		return p.negative.Render(s)
	}
	return p.positive.Render(s)
}

func (p *Printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
}

func (p *Printer) Summary(s core.Summary, c core.Currency) {
	p.heading("Summary (" + string(c) + ")")
	tw := p.table()
	fmt.Fprintf(tw, "Income\t%s\n", p.positive.Render(p.money.Format(s.Income, c)))
	fmt.Fprintf(tw, "Expenses\t%s\n", p.negative.Render(p.money.Format(s.Expenses, c)))
	fmt.Fprintf(tw, "Balance\t%s\n", p.signed(s.Balance, c))
	tw.Flush()
}

// Transactions lists txs with every amount converted to c.
func (p *Printer) Transactions(txs []core.Transaction, c core.Currency) {
	if len(txs) == 0 {
		fmt.Fprintln(p.out, p.muted.Render("No transactions found."))
		return
	}
	tw := p.table()
	fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tDESCRIPTION\tAMOUNT\tID")
	for _, tx := range txs {
		amount := p.money.Format(core.Convert(tx.Amount, tx.Currency, c), c)
		if tx.Type == core.Expense {
			amount = p.negative.Render("-" + amount)
		} else {
			amount = p.positive.Render("+" + amount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Date, tx.Type, core.CategoryDisplayName(tx.Category), tx.Description, amount,
			p.muted.Render(string(tx.ID)))
	}
	tw.Flush()
}

func (p *Printer) Monthly(months []core.MonthTotals, c core.Currency) {
	p.heading("Monthly overview (" + string(c) + ")")
	tw := p.table()
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSES\tBALANCE")
	for _, m := range months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Month,
			p.money.Format(m.Income, c), p.money.Format(m.Expenses, c), p.signed(m.Balance(), c))
	}
	tw.Flush()
}

func (p *Printer) Categories(month string, amounts []core.CategoryAmount, c core.Currency) {
	p.heading("Spending by category, " + month)
	if len(amounts) == 0 {
		fmt.Fprintln(p.out, p.muted.Render("No expenses this month."))
		return
	}
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a.Amount)
	}
	tw := p.table()
	for _, a := range amounts {
		share := core.Percent(a.Amount, total)
		fmt.Fprintf(tw, "%s\t%s\t%5.1f%%\t%s\n",
			core.CategoryDisplayName(a.Name), p.money.Format(a.Amount, c), share, bar(share))
	}
	tw.Flush()
}

func (p *Printer) Trends(r core.TrendReport, c core.Currency) {
	p.heading("Spending trends")
	tw := p.table()
	change := fmt.Sprintf("%+.1f%%", r.MonthlyChange)
	if r.MonthlyChange > 0 {
		change = p.negative.Render(change)
	} else {
		change = p.positive.Render(change)
	}
	fmt.Fprintf(tw, "Monthly change\t%s\n", change)
	fmt.Fprintf(tw, "Average spending (3 months)\t%s\n", p.money.Format(r.AverageSpending, c))
	if r.TopCategory != nil {
		fmt.Fprintf(tw, "Top category\t%s %s (%+.1f%%)\n",
			core.CategoryDisplayName(r.TopCategory.Category),
			p.money.Format(r.TopCategory.Amount, c), r.TopCategory.Change)
	} else {
		fmt.Fprintf(tw, "Top category\t%s\n", p.muted.Render("none"))
	}
	tw.Flush()

	fmt.Fprintln(p.out)
	p.heading("Savings opportunities")
	for _, tip := range r.SavingsOpportunities {
		fmt.Fprintln(p.out, "  • "+tip)
	}
}

func (p *Printer) Goals(goals []core.GoalStatus, c core.Currency) {
	p.heading("Budget goals, this month")
	if len(goals) == 0 {
		fmt.Fprintln(p.out, p.muted.Render("No active goal."))
		return
	}
	tw := p.table()
	for _, g := range goals {
		name := "Overall"
		if g.Category != "" {
			name = core.CategoryDisplayName(g.Category)
		}
		flag := ""
		if g.Warning {
			flag = p.warning.Render("warning")
		}
		fmt.Fprintf(tw, "%s\t%s of %s\t%5.1f%%\t%s\t%s\n", name,
			p.money.Format(g.Spent, c), p.money.Format(g.GoalAmount, c), g.Percentage, bar(g.Progress), flag)
	}
	tw.Flush()
}

func (p *Printer) Rules(rules []services.ScheduledRule) {
	if len(rules) == 0 {
		fmt.Fprintln(p.out, p.muted.Render("No recurring transactions."))
		return
	}
	tw := p.table()
	fmt.Fprintln(tw, "NEXT\tFREQUENCY\tTYPE\tCATEGORY\tDESCRIPTION\tAMOUNT\tID")
	for _, s := range rules {
		r := s.Rule
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Next, r.Frequency, r.Type, core.CategoryDisplayName(r.Category), r.Description,
			p.money.Format(r.Amount, r.Currency), p.muted.Render(string(r.ID)))
	}
	tw.Flush()
}

// Line writes one plain message.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Warn writes one highlighted message.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, p.warning.Render(fmt.Sprintf(format, args...)))
}

// bar draws a progress bar for a percentage clamped to [0, 100].
func bar(percent float64) string {
	filled := int(min(max(percent, 0), 100) / 100 * barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
