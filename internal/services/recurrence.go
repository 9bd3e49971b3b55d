package services

import (
	"slices"

	"budget/internal/core"
)

// OccurrencesUpTo returns every occurrence of rule on or before asOf, oldest first.
// A rule starting after asOf has no occurrences.
func OccurrencesUpTo(rule core.RecurringRule, asOf core.Date) ([]core.Date, error) {
	stepper, err := GetStepper(rule.Frequency)
	if err != nil {
		return nil, err
	}
	return slices.Collect(Occurrences(stepper, rule.StartDate, asOf)), nil
}

// Materialize builds the transactions for occurrences strictly after
// lastChecked and on or before today. A zero lastChecked means the rule
// has never been processed.
func Materialize(rule core.RecurringRule, lastChecked, today core.Date, newID core.IDGenerator) ([]core.Transaction, error) {
	stepper, err := GetStepper(rule.Frequency)
	if err != nil {
		return nil, err
	}
	if newID == nil {
		newID = core.NewID
	}

	var out []core.Transaction
	for on := range Occurrences(stepper, rule.StartDate, today) {
		if !lastChecked.IsZero() && !on.After(lastChecked) {
			continue
		}
		out = append(out, rule.Materialize(newID(), on))
	}
	return out, nil
}

// NextDate returns the first occurrence of rule strictly after today.
func NextDate(rule core.RecurringRule, today core.Date) (core.Date, error) {
	stepper, err := GetStepper(rule.Frequency)
	if err != nil {
		return core.Date{}, err
	}
	if rule.StartDate.After(today) {
		return rule.StartDate, nil
	}
	n := 0
	for range Occurrences(stepper, rule.StartDate, today) {
		n++
	}
	return stepper.Step(rule.StartDate, n), nil
}
