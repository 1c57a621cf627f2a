package models

import (
	"math"
	"time"
)

const (
	FirstWeek  = "First Week"
	SecondWeek = "Second Week"
	ThirdWeek  = "Third Week"
	FourthWeek = "Fourth Week"
)

// MonthWeeks lists the week labels in calendar order.
var MonthWeeks = []string{FirstWeek, SecondWeek, ThirdWeek, FourthWeek}

// Observation is one long-form row: a single product's sales for one hour of one day.
type Observation struct {
	Date       time.Time
	Month      string
	MonthWeek  string
	Weekday    string
	Time       string
	Item       string
	Quantity   float64
	Ticket     float64
	Sales      float64
	AVSPerHour float64
}

// NewObservation builds a row and derives its calendar and per-ticket fields.
func NewObservation(date time.Time, hour, item string, quantity, ticket, sales float64) Observation {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return Observation{
		Date:       day,
		Month:      day.Month().String(),
		MonthWeek:  MonthWeek(day.Day()),
		Weekday:    day.Weekday().String(),
		Time:       hour,
		Item:       item,
		Quantity:   quantity,
		Ticket:     ticket,
		Sales:      sales,
		AVSPerHour: AVSPerHour(sales, ticket),
	}
}

// MonthWeek buckets a day of the month into one of four weeks. Days 29-31 fold
// back into the first week rather than opening a fifth.
func MonthWeek(day int) string {
	week := (day-1)/7 + 1
	switch week {
	case 2:
		return SecondWeek
	case 3:
		return ThirdWeek
	case 4:
		return FourthWeek
	default:
		return FirstWeek
	}
}

// AVSPerHour is the average spend per ticket. It is NaN when no tickets were issued.
func AVSPerHour(sales, ticket float64) float64 {
	if ticket == 0 || math.IsNaN(ticket) || math.IsNaN(sales) {
		return math.NaN()
	}
	return sales / ticket
}
