package core

import (
	"errors"
	"sort"
	"strings"
)

// TransactionInput is a raw, user-submitted transaction form.
type TransactionInput struct {
	Description string
	Amount      string
	Type        string
	Category    string
	Date        string
	Currency    string // empty means the current display currency
}

// ValidationError lists every offending form field.
type ValidationError struct {
	Fields map[string]error
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name].Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the field errors to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Fields))
	for _, err := range e.Fields {
		errs = append(errs, err)
	}
	return errs
}

// Parse validates the form and returns a transaction without an id.
func (in TransactionInput) Parse(current Currency) (Transaction, error) {
	fields := map[string]error{}
	tx := Transaction{
		Description: strings.TrimSpace(in.Description),
		Type:        TransactionType(strings.ToLower(strings.TrimSpace(in.Type))),
		Category:    strings.TrimSpace(in.Category),
		Currency:    current,
	}

	if err := validateDescription(tx.Description); err != nil {
		fields["description"] = err
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		fields["amount"] = err
	}
	tx.Amount = amount
	if strings.TrimSpace(in.Date) == "" {
		fields["date"] = ErrInvalidDate
	} else if tx.Date, err = ParseDate(in.Date); err != nil {
		fields["date"] = err
	}
	if err := validateClassification(tx.Type, tx.Category); err != nil {
		if errors.Is(err, ErrInvalidType) {
			fields["type"] = err
		} else {
			fields["category"] = err
		}
	}
	if in.Currency != "" {
		if tx.Currency, err = ParseCurrency(in.Currency); err != nil {
			fields["currency"] = err
		}
	}

	if len(fields) > 0 {
		return Transaction{}, &ValidationError{Fields: fields}
	}
	return tx, nil
}
