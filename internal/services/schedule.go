// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring schedules.
// Each frequency (weekly, monthly, yearly) has its own stepper that
// computes the n-th occurrence of a rule from its start date.
package services

import (
	"fmt"
	"iter"

	"budget/internal/core"
)

// maxOccurrences bounds a single projection. A weekly rule reaches it after
// roughly 190 years.
const maxOccurrences = 10000

// Stepper is the strategy interface for advancing a recurring schedule.
type Stepper interface {
	// Step returns the n-th occurrence counted from start (n = 0 is start itself).
	Step(start core.Date, n int) core.Date
}

// WeeklyStepper implements Stepper for weekly rules.
type WeeklyStepper struct{}

// Step adds n weeks.
func (WeeklyStepper) Step(start core.Date, n int) core.Date {
	return core.Date{Time: start.AddDate(0, 0, 7*n)}
}

// MonthlyStepper implements Stepper for monthly rules.
type MonthlyStepper struct{}

// Step adds n calendar months to start. Days past the end of the target
// month overflow into the next one (Jan 31 + 1 month = Mar 3 in 2023).
func (MonthlyStepper) Step(start core.Date, n int) core.Date {
	return core.Date{Time: start.AddDate(0, n, 0)}
}

// YearlyStepper implements Stepper for yearly rules.
type YearlyStepper struct{}

// Step adds n calendar years; Feb 29 overflows to Mar 1 in common years.
func (YearlyStepper) Step(start core.Date, n int) core.Date {
	return core.Date{Time: start.AddDate(n, 0, 0)}
}

// stepStrategies maps frequencies to their corresponding steppers.
var stepStrategies = map[core.Frequency]Stepper{
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a frequency.
// Returns an error if the frequency is not supported.
func GetStepper(frequency core.Frequency) (Stepper, error) {
	stepper, ok := stepStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, frequency)
	}
	return stepper, nil
}

// RegisterStepper allows registering custom steppers for new frequencies.
func RegisterStepper(frequency core.Frequency, stepper Stepper) {
	stepStrategies[frequency] = stepper
}

// Occurrences lazily yields the schedule of a rule starting at start, oldest
// first, stopping once an occurrence would fall after until.
func Occurrences(stepper Stepper, start, until core.Date) iter.Seq[core.Date] {
	return func(yield func(core.Date) bool) {
		for n := 0; n < maxOccurrences; n++ {
			cursor := stepper.Step(start, n)
			if cursor.After(until) {
				return
			}
			if !yield(cursor) {
				return
			}
		}
	}
}
