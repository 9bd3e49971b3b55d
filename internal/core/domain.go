package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// RecurringPrefix marks transactions materialized from a recurring rule.
const RecurringPrefix = "[Recurring] "

const maxDescriptionLen = 200

type (
	TransactionType string

	Frequency string

	Transaction struct {
		ID          ID              `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Currency    Currency        `json:"currency,omitempty"`
	}

	RecurringRule struct {
		ID          ID              `json:"id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Currency    Currency        `json:"currency,omitempty"`
		Frequency   Frequency       `json:"frequency"`
		StartDate   Date            `json:"startDate"`
	}

	BudgetGoal struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency Currency        `json:"currency"`
	}

	// Goals holds the blanket monthly goal and any per-category goals.
	Goals struct {
		Overall    *BudgetGoal
		ByCategory map[string]BudgetGoal
	}
)

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrDescriptionLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidFrequency = errors.New("invalid frequency")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func validateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func validateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return ErrDescriptionLong
	}
	return nil
}

func validateClassification(t TransactionType, category string) error {
	if !t.Valid() {
		return ErrInvalidType
	}
	if !ValidCategory(t, category) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidCategory, category, t)
	}
	return nil
}

func (tx Transaction) Validate() error {
	if err := validateDescription(tx.Description); err != nil {
		return err
	}
	if err := validateAmount(tx.Amount); err != nil {
		return err
	}
	if err := validateClassification(tx.Type, tx.Category); err != nil {
		return err
	}
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if !tx.Currency.Supported() {
		return ErrInvalidCurrency
	}
	return nil
}

// Reportable checks only what aggregation depends on: a known type and a
// date. Stored and imported records are held to this, not to Validate.
func (tx Transaction) Reportable() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	if err := validateClassification(r.Type, r.Category); err != nil {
		return err
	}
	if err := r.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if !r.Currency.Supported() {
		return ErrInvalidCurrency
	}
	return nil
}

func (g BudgetGoal) Validate() error {
	if err := validateAmount(g.Amount); err != nil {
		return err
	}
	if !g.Currency.Supported() {
		return ErrInvalidCurrency
	}
	return nil
}

// Goal returns the goal for a category, or the overall goal when category is empty.
func (g Goals) Goal(category string) *BudgetGoal {
	if category == "" {
		return g.Overall
	}
	goal, ok := g.ByCategory[category]
	if !ok {
		return nil
	}
	return &goal
}

// Clone returns a deep copy.
func (g Goals) Clone() Goals {
	out := Goals{}
	if g.Overall != nil {
		overall := *g.Overall
		out.Overall = &overall
	}
	if len(g.ByCategory) > 0 {
		out.ByCategory = make(map[string]BudgetGoal, len(g.ByCategory))
		for k, v := range g.ByCategory {
			out.ByCategory[k] = v
		}
	}
	return out
}

// Materialize builds the concrete transaction for one occurrence of the rule.
func (r RecurringRule) Materialize(id ID, on Date) Transaction {
	return Transaction{
		ID:          id,
		Description: RecurringPrefix + r.Description,
		Amount:      r.Amount,
		Type:        r.Type,
		Category:    r.Category,
		Date:        on,
		Currency:    r.Currency,
	}
}
