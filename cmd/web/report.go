package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/config"
	"qsr-dashboard/internal/pipeline"
	"qsr-dashboard/internal/services"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type reportOptions struct {
	data     config.DataConfig
	group    string
	agg      string
	hour     string
	item     string
	start    string
	end      string
	months   []string
	weeks    []string
	weekdays []string
	verbose  bool
}

func reportCmd() *cobra.Command {
	opts := reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the products sold at one hour",
		Long: `Report loads a sales sheet and prints the hourly products view: each
product of the catalog aggregated at one hour, the summary cards and the
selected product's share of the quantity sold.`,
		Example: `  qsr-dashboard report --file QSR_dataset.xlsx --group chicken_packages --agg Total --hour 10AM`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.data.File, "file", "f", "QSR_dataset.xlsx", "sales sheet (.xlsx, .xls or .csv)")
	flags.StringVar(&opts.data.Sheet, "sheet", "", "worksheet name (default: first sheet)")
	flags.StringVar(&opts.data.CatalogFile, "catalog-file", "", "YAML file overriding the built-in catalogs")
	flags.StringVarP(&opts.group, "group", "g", string(catalog.DefaultGroup), "catalog group")
	flags.StringVarP(&opts.agg, "agg", "a", string(pipeline.DefaultAggFunc), "aggregation: Minimum, Average, Maximum or Total")
	flags.StringVar(&opts.hour, "hour", "", "hour label such as 10AM (default: first hour in the sheet)")
	flags.StringVar(&opts.item, "item", "", "product whose share is reported (default: first row)")
	flags.StringVar(&opts.start, "start", "", "first day to include, YYYY-MM-DD")
	flags.StringVar(&opts.end, "end", "", "last day to include, YYYY-MM-DD")
	flags.StringSliceVar(&opts.months, "months", nil, "restrict to these months")
	flags.StringSliceVar(&opts.weeks, "weeks", nil, "restrict to these month weeks (First Week ... Fourth Week)")
	flags.StringSliceVar(&opts.weekdays, "weekdays", nil, "restrict to these weekdays")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	return cmd
}

func runReport(cmd *cobra.Command, opts reportOptions) error {
	start, err := reportDay("start", opts.start)
	if err != nil {
		return err
	}
	end, err := reportDay("end", opts.end)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	analytics, err := newAnalytics(opts.data, services.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to load catalogs: %w", err)
	}
	if err := analytics.LoadFromFile(cmd.Context(), opts.data.File); err != nil {
		return fmt.Errorf("failed to load sales sheet: %w", err)
	}

	group, err := pipeline.ParseGroup(opts.group)
	if err != nil {
		logger.Warn("selection fallback", "error", err)
	}
	agg, err := pipeline.ParseAggFunc(opts.agg)
	if err != nil {
		logger.Warn("selection fallback", "error", err)
	}
	if err := (pipeline.DateRange{Start: start, End: end}).Check(); err != nil {
		logger.Warn("selection fallback", "error", err)
	}

	view, err := analytics.Hourly(cmd.Context(), services.Query{
		Group:    group,
		Start:    start,
		End:      end,
		Months:   opts.months,
		Weeks:    opts.weeks,
		Weekdays: opts.weekdays,
		Agg:      agg,
		Hour:     opts.hour,
		Item:     opts.item,
	})
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), string(group), view)
}

func reportDay(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected a date as YYYY-MM-DD", flag, value)
	}
	return t, nil
}

func writeReport(out io.Writer, group string, view services.HourlyView) error {
	fmt.Fprintf(out, "%s\n", headerStyle.Render(fmt.Sprintf("%s at %s (%s)", group, view.Hour, view.Table.Function)))

	if view.NoData {
		fmt.Fprintln(out, mutedStyle.Render("No data available for the current selection"))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		headerStyle.Render("Product"),
		headerStyle.Render("Quantity"),
		headerStyle.Render("Ticket"),
		headerStyle.Render("Sales"),
		headerStyle.Render("AVS Per Hour"),
		headerStyle.Render("Share %"))
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		strings.Repeat("-", 20),
		strings.Repeat("-", 8),
		strings.Repeat("-", 8),
		strings.Repeat("-", 10),
		strings.Repeat("-", 12),
		strings.Repeat("-", 7))
	for _, row := range view.Table.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Key,
			number(row.Quantity),
			number(row.Ticket),
			number(row.Sales),
			number(row.AVSPerHour),
			number(row.SharePct))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cards := view.Cards
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s  quantity %s  ticket %s  sales %s  avs %s\n",
		headerStyle.Render(cards.Function),
		number(cards.QuantityAvg),
		number(cards.TicketAvg),
		number(cards.SalesAvg),
		number(cards.AVSAvg))
	fmt.Fprintf(out, "%s sold %s%% of the quantity, the rest %s%%\n",
		view.Product, number(view.Share.SharePct), number(view.Share.RestPct))
	return nil
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
