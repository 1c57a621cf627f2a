package pipeline

import (
	"testing"
	"time"

	"qsr-dashboard/internal/models"
)

func date(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func row(t testing.TB, day, hour, item string, qty, ticket, sales float64) models.Observation {
	t.Helper()
	return models.NewObservation(date(t, day), hour, item, qty, ticket, sales)
}

// sampleData spans two months, three catalogued products, one uncatalogued
// product and three opening hours.
func sampleData(t testing.TB) []models.Observation {
	t.Helper()
	var out []models.Observation
	days := []string{
		"2023-01-02", // Monday, First Week
		"2023-01-11", // Wednesday, Second Week
		"2023-01-18", // Wednesday, Third Week
		"2023-01-25", // Wednesday, Fourth Week
		"2023-01-29", // Sunday, folds into First Week
		"2023-02-03", // Friday, First Week
		"2023-02-14", // Tuesday, Second Week
		"2023-02-22", // Wednesday, Fourth Week
		"2023-02-28", // Tuesday, Fourth Week
	}
	hours := []string{"9AM", "10AM", "11AM"}
	for _, item := range []string{"Rot", "1PC", "Jollof Rice", "Mystery Box"} {
		for d, day := range days {
			for h, hour := range hours {
				qty := float64(1 + d + h)
				out = append(out, row(t, day, hour, item, qty, float64(10+h), float64(1000+100*h)))
			}
		}
	}
	return out
}
