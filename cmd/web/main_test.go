package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"qsr-dashboard/internal/config"
	"qsr-dashboard/internal/middleware"
	"qsr-dashboard/internal/models"
	"qsr-dashboard/internal/observability"
	"qsr-dashboard/internal/server"
	"qsr-dashboard/internal/services"
)

const salesCSV = `Date,Time,Ticket,Sales,Rot,1PC,Jollof Rice
2023-01-09,9AM,10,1000,3,1,2
2023-01-09,10AM,12,1500,4,2,1
2023-02-14,9AM,8,800,2,5,1
`

// Test helper to create analytics with test data
func newTestAnalytics(opts ...services.Option) *services.Analytics {
	a := services.NewAnalytics(opts...)
	day := time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC)
	a.SetData([]models.Observation{
		models.NewObservation(day, "9AM", "Jollof Rice", 2, 10, 1000),
		models.NewObservation(day, "10AM", "Jollof Rice", 1, 12, 1500),
		models.NewObservation(day, "9AM", "Rot", 3, 10, 1000),
	})
	return a
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSecurity() config.SecurityConfig {
	return config.SecurityConfig{
		EnableRateLimit: true,
		RateLimitRPS:    100,
		RateLimitBurst:  20,
		AllowedOrigins:  []string{"http://localhost:8084"},
		TrustedProxies:  []string{"127.0.0.1"},
	}
}

func TestDashboardHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	dashboardHandler(newTestAnalytics())(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cacheMaxAge, w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, "<title>"+dashboardTitle+"</title>")
	assert.Contains(t, body, `<option value="chicken_packages">Chicken Packs</option>`)
	assert.Contains(t, body, `min="2023-01-09"`)
}

func TestDashboardPage_NotLoaded(t *testing.T) {
	page := dashboardPage(context.Background(), services.NewAnalytics())
	assert.Len(t, page.Groups, 4)
	assert.Equal(t, []string{"Minimum", "Average", "Maximum", "Total"}, page.AggFuncs)
	assert.Empty(t, page.StartDate)
}

// Integration tests for HTTP routes through the full middleware stack
func TestServer_Routes(t *testing.T) {
	logger := quietLogger()
	metrics := observability.NewMetrics()
	analytics := newTestAnalytics(services.WithMetrics(metrics))
	srv := server.NewServer(analytics, logger, metrics, &server.TemplateHandlers{Dashboard: dashboardHandler(analytics)})
	handler := newHandler(testSecurity(), logger, noop.NewTracerProvider().Tracer("test"), metrics,
		middleware.NewRateLimiter(testSecurity()))(srv)

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/health", http.StatusOK, "application/json"},
		{"/api/hourly?group=cereal_packages&hour=9AM", http.StatusOK, "application/json"},
		{"/api/catalogs", http.StatusOK, "application/json"},
		{"/sse/hourly", http.StatusOK, "text/event-stream"},
		{"/metrics", http.StatusOK, "text/plain"},
		{"/nonexistent", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			if tt.contentType != "" {
				assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			}
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "GET /api/hourly", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestWriteReport(t *testing.T) {
	var out bytes.Buffer
	err := writeReport(&out, "chicken_packages", services.HourlyView{
		Hour:    "10AM",
		Product: "Rot",
		Table: models.AggregatedTable{
			Function: "Total",
			Rows: []models.AggregatedRow{
				{Key: "Rot", Quantity: 14, Ticket: 44, Sales: 4400, AVSPerHour: 100, SharePct: 43.75},
				{Key: "1PC", Quantity: 18, Ticket: 44, Sales: 4400, AVSPerHour: 100, SharePct: 56.25},
			},
		},
		Cards: models.SummaryCards{Function: "Total", QuantityAvg: 16, TicketAvg: 44, SalesAvg: 4400, AVSAvg: 100},
		Share: models.Share{Key: "Rot", SharePct: 43.75, RestPct: 56.25},
	})
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "chicken_packages at 10AM (Total)")
	assert.Contains(t, report, "1PC")
	assert.Contains(t, report, "56.25")
	assert.Contains(t, report, "quantity 16.00")
	assert.Contains(t, report, "Rot sold 43.75% of the quantity, the rest 56.25%")
}

func TestWriteReport_NoData(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeReport(&out, "others", services.HourlyView{
		Table:  models.AggregatedTable{Function: "Average"},
		NoData: true,
	}))
	assert.Contains(t, out.String(), "No data available")
	assert.NotContains(t, out.String(), "Quantity")
}

func TestReportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o644))

	var out, errOut bytes.Buffer
	cmd := reportCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--file", path, "--group", "chicken_packages", "--agg", "Total", "--hour", "9AM", "--item", "1PC"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))

	report := out.String()
	assert.Contains(t, report, "chicken_packages at 9AM (Total)")
	// Rot sold 3+2 at 9AM and 1PC 1+5
	assert.Contains(t, report, "5.00")
	assert.Contains(t, report, "1PC sold 54.55% of the quantity")
	assert.Empty(t, errOut.String())
}

func TestReportCommand_FilterFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o644))
	base := []string{"--file", path, "--group", "chicken_packages", "--agg", "Total", "--hour", "9AM", "--item", "1PC"}

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr string
	}{
		{"start", []string{"--start", "2023-02-01"}, "1PC sold 71.43% of the quantity", ""},
		{"end", []string{"--end", "2023-01-31"}, "1PC sold 25.00% of the quantity", ""},
		{"weeks", []string{"--weeks", "Second Week"}, "1PC sold 54.55% of the quantity", ""},
		{"weekdays", []string{"--weeks", "Second Week", "--weekdays", "Tuesday"}, "1PC sold 71.43% of the quantity", ""},
		{"stale weekday passes through", []string{"--weekdays", "Sunday"}, "1PC sold 54.55% of the quantity", ""},
		{"reversed range passes through", []string{"--start", "2023-03-01", "--end", "2023-01-01"}, "1PC sold 54.55% of the quantity", "selection fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			cmd := reportCmd()
			cmd.SetOut(&out)
			cmd.SetErr(&errOut)
			cmd.SetArgs(append(append([]string{}, base...), tt.args...))

			require.NoError(t, cmd.ExecuteContext(context.Background()))
			assert.Contains(t, out.String(), tt.want)
			if tt.wantErr != "" {
				assert.Contains(t, errOut.String(), tt.wantErr)
			}
		})
	}
}

func TestReportCommand_InvalidDate(t *testing.T) {
	cmd := reportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--start", "09/01/2023"})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --start")
}

func TestReportCommand_Errors(t *testing.T) {
	cmd := reportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--file", filepath.Join(t.TempDir(), "missing.xlsx")})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load sales sheet")

	cmd = reportCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--catalog-file", filepath.Join(t.TempDir(), "catalogs.yaml")})
	err = cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load catalogs")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "qsr-dashboard "))
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "report", "version"})
}
