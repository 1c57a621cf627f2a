package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/models"
	"qsr-dashboard/internal/observability"
	"qsr-dashboard/internal/pipeline"
)

func day(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}

// salesData has two chicken products, one cereal product and one uncatalogued
// product, each sold at 9AM, 10AM and 11AM on four days.
func salesData(t testing.TB) []models.Observation {
	t.Helper()
	var obs []models.Observation
	days := []string{"2023-01-02", "2023-01-18", "2023-02-03", "2023-02-22"}
	hours := []string{"9AM", "10AM", "11AM"}
	for p, item := range []string{"Rot", "1PC", "Jollof Rice", "Mystery Box"} {
		for d, date := range days {
			for h, hour := range hours {
				qty := float64(1 + p + d + h)
				obs = append(obs, models.NewObservation(day(t, date), hour, item, qty, float64(10+h), float64(1000+100*h)))
			}
		}
	}
	return obs
}

func loaded(t *testing.T, opts ...Option) *Analytics {
	t.Helper()
	a := NewAnalytics(opts...)
	a.SetData(salesData(t))
	return a
}

func TestAnalytics_NotLoaded(t *testing.T) {
	a := NewAnalytics()
	ctx := context.Background()

	_, err := a.Hourly(ctx, Query{})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = a.Product(ctx, Query{})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = a.Compare(ctx, CompareQuery{})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = a.Correlation(ctx, "", "")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = a.Options(ctx, Query{})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = a.Bounds(ctx, catalog.ChickenPackages)
	assert.ErrorIs(t, err, ErrNotLoaded)

	assert.Equal(t, false, a.Stats()["loaded"])
}

func TestAnalytics_Hourly(t *testing.T) {
	a := loaded(t)

	view, err := a.Hourly(context.Background(), Query{
		Group: catalog.ChickenPackages,
		Hour:  "10AM",
		Agg:   pipeline.Total,
	})
	require.NoError(t, err)
	require.False(t, view.NoData)

	assert.Equal(t, "10AM", view.Hour)
	assert.Equal(t, []string{"Rot", "1PC"}, view.Table.Keys())
	// Rot at 10AM: 2+3+4+5, 1PC: 3+4+5+6
	assert.Equal(t, 14.0, view.Table.Rows[0].Quantity)
	assert.Equal(t, 18.0, view.Table.Rows[1].Quantity)
	assert.Equal(t, 16.0, view.Cards.QuantityAvg)
	assert.Equal(t, "Total", view.Cards.Function)

	assert.Equal(t, "Rot", view.Product)
	assert.InDelta(t, 43.75, view.Share.SharePct, 1e-9)
	assert.InDelta(t, 56.25, view.Share.RestPct, 1e-9)
}

func TestAnalytics_Hourly_SelectedProduct(t *testing.T) {
	a := loaded(t)

	view, err := a.Hourly(context.Background(), Query{Group: catalog.ChickenPackages, Item: "1PC"})
	require.NoError(t, err)
	assert.Equal(t, "9AM", view.Hour)
	assert.Equal(t, "1PC", view.Product)

	// a product outside the current table falls back to the first row
	view, err = a.Hourly(context.Background(), Query{Group: catalog.ChickenPackages, Item: "Jollof Rice"})
	require.NoError(t, err)
	assert.Equal(t, "Rot", view.Product)
}

func TestAnalytics_Hourly_NoData(t *testing.T) {
	a := loaded(t)

	view, err := a.Hourly(context.Background(), Query{Group: catalog.Others})
	require.NoError(t, err)
	assert.True(t, view.NoData)
	assert.Empty(t, view.Table.Rows)
	assert.Equal(t, "Average", view.Cards.Function)

	view, err = a.Hourly(context.Background(), Query{
		Group: catalog.ChickenPackages,
		Start: day(t, "2024-01-01"),
		End:   day(t, "2024-01-31"),
	})
	require.NoError(t, err)
	assert.True(t, view.NoData)
}

func TestAnalytics_Product(t *testing.T) {
	a := loaded(t)

	view, err := a.Product(context.Background(), Query{
		Group:   catalog.ChickenPackages,
		Months:  []string{"January"},
		Item:    "1PC",
		Hour:    "11AM",
		Agg:     pipeline.Maximum,
		Feature: pipeline.Sales,
	})
	require.NoError(t, err)
	require.False(t, view.NoData)

	assert.Equal(t, "1PC", view.Item)
	assert.Equal(t, "11AM", view.Hour)
	assert.Equal(t, "Sales", view.Feature)
	assert.Equal(t, []models.SeriesPoint{
		{Label: "9AM", Value: 1000},
		{Label: "10AM", Value: 1100},
		{Label: "11AM", Value: 1200},
	}, view.Trend)

	// January maxima for 1PC: 9AM 3, 10AM 4, 11AM 5
	assert.InDelta(t, 5.0/12*100, view.Share.SharePct, 1e-9)
}

func TestAnalytics_Product_Defaults(t *testing.T) {
	a := loaded(t)

	view, err := a.Product(context.Background(), Query{Group: catalog.CerealPackages})
	require.NoError(t, err)
	assert.Equal(t, "Jollof Rice", view.Item)
	assert.Equal(t, "9AM", view.Hour)
	assert.Equal(t, "Quantity", view.Feature)
	assert.Len(t, view.Trend, 3)

	view, err = a.Product(context.Background(), Query{Group: catalog.Others})
	require.NoError(t, err)
	assert.True(t, view.NoData)
	assert.Empty(t, view.Trend)
}

func TestAnalytics_Compare(t *testing.T) {
	a := loaded(t)

	view, err := a.Compare(context.Background(), CompareQuery{
		Group: catalog.ChickenPackages,
		Agg:   pipeline.Total,
		Left:  Side{Months: []string{"January"}, Item: "Rot"},
		Right: Side{Start: day(t, "2023-02-01"), End: day(t, "2023-02-28"), Item: "1PC"},
	})
	require.NoError(t, err)
	require.False(t, view.NoData)

	assert.Equal(t, "Rot", view.LeftItem)
	assert.Equal(t, "1PC", view.RightItem)
	assert.Equal(t, "Quantity", view.Metric)
	// Rot January 9AM: 1+2, 1PC February 9AM: 4+5
	assert.Equal(t, models.ComparisonRow{Time: "9AM", Left: 3, Right: 9}, view.Rows[0])
	assert.Len(t, view.Rows, 3)

	view, err = a.Compare(context.Background(), CompareQuery{Group: catalog.Others})
	require.NoError(t, err)
	assert.True(t, view.NoData)
}

func TestAnalytics_Correlation(t *testing.T) {
	a := loaded(t)

	view, err := a.Correlation(context.Background(), "Ticket", "Sales")
	require.NoError(t, err)
	require.False(t, view.NoData)
	assert.True(t, view.Defined)
	assert.InDelta(t, 1.0, view.Coefficient, 1e-9)
	assert.Len(t, view.Points, 4*3)

	view, err = a.Correlation(context.Background(), "Ticket", "Nothing")
	require.NoError(t, err)
	assert.True(t, view.NoData)
}

func TestAnalytics_OptionsAndBounds(t *testing.T) {
	a := loaded(t)
	ctx := context.Background()

	opts, err := a.Options(ctx, Query{Group: catalog.ChickenPackages, Months: []string{"February"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"January", "February"}, opts.Months)
	assert.Equal(t, []string{models.FirstWeek, models.FourthWeek}, opts.Weeks)
	assert.Equal(t, []string{"Rot", "1PC"}, opts.Items)

	b, err := a.Bounds(ctx, catalog.CerealPackages)
	require.NoError(t, err)
	assert.Equal(t, day(t, "2023-01-02"), b.Start)
	assert.Equal(t, day(t, "2023-02-22"), b.End)

	_, err = a.Bounds(ctx, catalog.Others)
	assert.ErrorIs(t, err, pipeline.ErrNoData)
}

func TestAnalytics_Catalogs(t *testing.T) {
	a := loaded(t)

	infos := a.Catalogs()
	require.Len(t, infos, len(catalog.Groups))

	present := make(map[catalog.GroupID]int)
	for _, info := range infos {
		present[info.ID] = info.Present
		assert.NotEmpty(t, info.Items)
	}
	assert.Equal(t, 2, present[catalog.ChickenPackages])
	assert.Equal(t, 1, present[catalog.CerealPackages])
	assert.Equal(t, 0, present[catalog.Others])

	stats := a.Stats()
	assert.Equal(t, true, stats["loaded"])
	assert.Equal(t, int64(4*4*3), stats["record_count"])
	assert.Equal(t, 1, stats["uncatalogued"])
}

func TestAnalytics_LoadFromFile(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	metrics := observability.NewMetrics()

	a := NewAnalytics(WithLogger(logger), WithMetrics(metrics))
	require.NoError(t, a.LoadFromFile(context.Background(), createTempCSV(t, salesCSV)))

	view, err := a.Hourly(context.Background(), Query{Group: catalog.ChickenPackages, Hour: "9AM", Agg: pipeline.Total})
	require.NoError(t, err)
	// 1PC sold 1 and 5 at 9AM, Rot 3 and 2
	assert.Equal(t, []string{"Rot", "1PC"}, view.Table.Keys())
	assert.Equal(t, 6.0, view.Table.Rows[1].Quantity)

	assert.Contains(t, logs.String(), "skipped rows")
	assert.Equal(t, 1, a.Stats()["skipped_rows"])

	assert.Equal(t, 9.0, testutil.ToFloat64(metrics.DatasetRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ViewsTotal.WithLabelValues("hourly")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.NoDataTotal.WithLabelValues("hourly")))
}

func TestAnalytics_LoadFromFile_UncataloguedWarning(t *testing.T) {
	var logs bytes.Buffer
	a := NewAnalytics(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	path := createTempCSV(t, "Date,Time,Ticket,Sales,Rot,Dragon Roll\n2023-01-02,9AM,1,10,1,1\n")
	require.NoError(t, a.LoadFromFile(context.Background(), path))
	assert.Contains(t, logs.String(), "Dragon Roll")
}

func TestAnalytics_Cache(t *testing.T) {
	cacheDir := t.TempDir()
	path := createTempXLSX(t)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	first := NewAnalytics(WithCache(cacheDir))
	require.NoError(t, first.LoadFromFile(context.Background(), path))

	var logs bytes.Buffer
	second := NewAnalytics(WithCache(cacheDir), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, second.LoadFromFile(context.Background(), path))
	assert.Contains(t, logs.String(), "loaded from cache")

	a, err := first.observations()
	require.NoError(t, err)
	b, err := second.observations()
	require.NoError(t, err)
	assert.Equal(t, len(a), len(b))
	assert.Equal(t, a[0].Date.Unix(), b[0].Date.Unix())
	assert.Equal(t, a[len(a)-1].Item, b[len(b)-1].Item)

	// a source modified after the cache was written is read again
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	logs.Reset()
	require.NoError(t, second.LoadFromFile(context.Background(), path))
	assert.NotContains(t, logs.String(), "loaded from cache")
	assert.Contains(t, logs.String(), "processing sales sheet")
}

// createTwoSheetXLSX writes a workbook whose sheets differ only in Rot's
// quantity.
func createTwoSheetXLSX(t *testing.T, quantities map[string]int) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range []string{"Sheet1", "Other"} {
		if sheet != "Sheet1" {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		header := []any{"", "Date", "Time", "Ticket", "Sales", "Rot"}
		require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
		row := []any{0, "2023-01-02", "9AM", 10, 1000, quantities[sheet]}
		require.NoError(t, f.SetSheetRow(sheet, "A2", &row))
	}

	path := filepath.Join(t.TempDir(), "sheets.xlsx")
	require.NoError(t, f.SaveAs(path))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))
	return path
}

func TestAnalytics_Cache_PerSheet(t *testing.T) {
	cacheDir := t.TempDir()
	path := createTwoSheetXLSX(t, map[string]int{"Sheet1": 5, "Other": 99})

	load := func(sheet string) (float64, string) {
		var logs bytes.Buffer
		a := NewAnalytics(WithCache(cacheDir), WithSheet(sheet), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
		require.NoError(t, a.LoadFromFile(context.Background(), path))
		obs, err := a.observations()
		require.NoError(t, err)
		require.Len(t, obs, 1)
		return obs[0].Quantity, logs.String()
	}

	qty, logs := load("Sheet1")
	assert.Equal(t, 5.0, qty)
	assert.NotContains(t, logs, "loaded from cache")

	qty, logs = load("Other")
	assert.Equal(t, 99.0, qty)
	assert.NotContains(t, logs, "loaded from cache")

	qty, logs = load("Sheet1")
	assert.Equal(t, 5.0, qty)
	assert.Contains(t, logs, "loaded from cache")

	qty, logs = load("Other")
	assert.Equal(t, 99.0, qty)
	assert.Contains(t, logs, "loaded from cache")
}

func TestAnalytics_NonFiniteCellsAreMissing(t *testing.T) {
	a := NewAnalytics()
	path := createTempCSV(t, "Date,Time,Ticket,Sales,Rot,1PC\n2023-01-02,10AM,10,1000,inf,2\n")
	require.NoError(t, a.LoadFromFile(context.Background(), path))

	view, err := a.Hourly(context.Background(), Query{Group: catalog.ChickenPackages, Hour: "10AM", Agg: pipeline.Total})
	require.NoError(t, err)
	assert.Equal(t, []string{"1PC"}, view.Table.Keys())
	assert.Equal(t, 100.0, view.Table.Rows[0].SharePct)

	_, err = json.Marshal(view)
	assert.NoError(t, err)
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := loaded(t)
	want, err := a.Hourly(context.Background(), Query{Group: catalog.ChickenPackages})
	require.NoError(t, err)
	data := salesData(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				a.SetData(data)
				return
			}
			got, err := a.Hourly(context.Background(), Query{Group: catalog.ChickenPackages})
			assert.NoError(t, err)
			assert.Equal(t, want.Table, got.Table)
		}(i)
	}
	wg.Wait()
}

func BenchmarkAnalytics_Hourly(b *testing.B) {
	a := NewAnalytics()
	a.SetData(salesData(b))
	q := Query{Group: catalog.ChickenPackages, Hour: "10AM", Agg: pipeline.Average}

	b.ResetTimer()
	for b.Loop() {
		_, _ = a.Hourly(context.Background(), q)
	}
}
