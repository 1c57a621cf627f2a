package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"qsr-dashboard/internal/models"
)

const (
	maxWorkers    = 10
	maxXLSRows    = 100000
	headerScanMax = 10
)

// Sheet is the wide sales table as read from disk: one row per (date, hour)
// with a quantity column per product.
type Sheet struct {
	Products []string
	Rows     []SheetRow
	Skipped  int
}

type SheetRow struct {
	Date       time.Time
	Time       string
	Ticket     float64
	Sales      float64
	Quantities []float64
}

type columns struct {
	date, time, ticket, sales int
	products                  []int
}

// ReadSheet reads a .xlsx, .xls or .csv sales sheet. An empty sheet name
// selects the first worksheet.
func ReadSheet(path, sheet string) (*Sheet, error) {
	rows, err := readRows(path, sheet)
	if err != nil {
		return nil, err
	}
	return parseSheet(rows)
}

func readRows(path, sheet string) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return readXLSX(path, sheet)
	case ".xls":
		return readXLS(path, sheet)
	case ".csv":
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported sheet format %q", ext)
	}
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("no worksheet found")
		}
		sheet = sheets[0]
	}

	// Raw values keep dates as serial numbers instead of locale-formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(path, sheet string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	if sheet == "" {
		if workbook.NumSheets() == 1 {
			return workbook.ReadAllCells(maxXLSRows), nil
		}
		return xlsSheetRows(workbook.GetSheet(0)), nil
	}
	for i := range workbook.NumSheets() {
		if ws := workbook.GetSheet(i); ws != nil && ws.Name == sheet {
			return xlsSheetRows(ws), nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found", sheet)
}

func xlsSheetRows(ws *xls.WorkSheet) [][]string {
	rows := make([][]string, 0, int(ws.MaxRow)+1)
	for i := 0; i <= int(ws.MaxRow) && i < maxXLSRows; i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = row.Col(c)
		}
		rows = append(rows, cells)
	}
	return rows
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return decodeCSV(f)
}

func decodeCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func parseSheet(rows [][]string) (*Sheet, error) {
	headerIdx, cols, header, err := findHeader(rows)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Products: make([]string, 0, len(cols.products))}
	for _, c := range cols.products {
		sheet.Products = append(sheet.Products, header[c])
	}

	for _, raw := range rows[headerIdx+1:] {
		dateCell := cell(raw, cols.date)
		if dateCell == "" {
			continue
		}
		date, err := parseDate(dateCell)
		if err != nil {
			sheet.Skipped++
			continue
		}

		row := SheetRow{
			Date:       date,
			Time:       parseHour(cell(raw, cols.time)),
			Ticket:     parseNumber(cell(raw, cols.ticket)),
			Sales:      parseNumber(cell(raw, cols.sales)),
			Quantities: make([]float64, len(cols.products)),
		}
		for i, c := range cols.products {
			row.Quantities[i] = parseNumber(cell(raw, c))
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("no valid rows found")
	}
	return sheet, nil
}

// findHeader locates the first row naming Date, Time, Ticket and Sales. Every
// other named column is a product, except the first column, which holds the
// row index.
func findHeader(rows [][]string) (int, columns, []string, error) {
	for i := 0; i < len(rows) && i < headerScanMax; i++ {
		header := make([]string, len(rows[i]))
		for j, h := range rows[i] {
			header[j] = strings.TrimSpace(h)
		}

		cols := columns{date: -1, time: -1, ticket: -1, sales: -1}
		for j, h := range header {
			switch strings.ToLower(h) {
			case "date":
				cols.date = j
			case "time":
				cols.time = j
			case "ticket":
				cols.ticket = j
			case "sales":
				cols.sales = j
			}
		}
		if cols.date < 0 || cols.time < 0 || cols.ticket < 0 || cols.sales < 0 {
			continue
		}

		for j, h := range header {
			if j == 0 || h == "" || j == cols.date || j == cols.time || j == cols.ticket || j == cols.sales {
				continue
			}
			cols.products = append(cols.products, j)
		}
		return i, cols, header, nil
	}
	return 0, columns{}, nil, fmt.Errorf("header row with Date, Time, Ticket and Sales not found")
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseNumber reads a numeric cell. Empty, unreadable and non-finite cells
// ("inf", "NaN") are missing values.
func parseNumber(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// Day-first layouts, matching how the sheet is exported.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"02/01/06",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

func parseDate(s string) (time.Time, error) {
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date serial %q: %w", s, err)
		}
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseHour keeps text labels such as "10AM" as written and turns Excel time
// fractions into the same label form.
func parseHour(s string) string {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v >= 1 {
		return s
	}
	minutes := int(math.Round(v * 24 * 60))
	return time.Date(2000, 1, 1, 0, minutes, 0, 0, time.UTC).Format("3PM")
}

// Melt turns the wide sheet into long observations, one per product per row,
// ordered product by product like a dataframe melt. Products are converted in
// parallel.
func Melt(ctx context.Context, sheet *Sheet) ([]models.Observation, error) {
	parts := make([][]models.Observation, len(sheet.Products))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for p, product := range sheet.Products {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out := make([]models.Observation, 0, len(sheet.Rows))
			for i := range sheet.Rows {
				r := &sheet.Rows[i]
				out = append(out, models.NewObservation(r.Date, r.Time, product, r.Quantities[p], r.Ticket, r.Sales))
			}
			parts[p] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, part := range parts {
		total += len(part)
	}
	obs := make([]models.Observation, 0, total)
	for _, part := range parts {
		obs = append(obs, part...)
	}
	return obs, nil
}
