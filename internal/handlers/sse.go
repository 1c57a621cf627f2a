package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"qsr-dashboard/internal/models"
	"qsr-dashboard/internal/services"
)

const noDataMessage = "No data available for the current selection"

var funcs = template.FuncMap{
	"num": formatNumber,
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var tables = template.Must(template.New("tables").Funcs(funcs).Parse(`
{{define "aggregated"}}<table class="modern-table">
<thead><tr><th>{{.Label}}</th><th>Quantity</th><th>Ticket</th><th>Sales</th><th>AVS Per Hour</th><th>Share %</th></tr></thead>
<tbody>
{{range .Table.Rows}}<tr{{if eq .Key $.Selected}} class="selected"{{end}}>
<td>{{.Key}}</td>
<td>{{num .Quantity}}</td>
<td>{{num .Ticket}}</td>
<td><strong>{{num .Sales}}</strong></td>
<td>{{num .AVSPerHour}}</td>
<td>{{num .SharePct}}</td>
</tr>{{end}}
</tbody>
</table>{{end}}

{{define "hourly"}}<div id="hourly-content">
{{if .NoData}}<div class="no-data">{{.Message}}</div>{{else}}
<div class="summary-cards">
<div class="card"><span>{{.Cards.Function}} Quantity</span><strong>{{num .Cards.QuantityAvg}}</strong></div>
<div class="card"><span>{{.Cards.Function}} Ticket</span><strong>{{num .Cards.TicketAvg}}</strong></div>
<div class="card"><span>{{.Cards.Function}} Sales</span><strong>{{num .Cards.SalesAvg}}</strong></div>
<div class="card"><span>{{.Cards.Function}} AVS Per Hour</span><strong>{{num .Cards.AVSAvg}}</strong></div>
</div>
{{template "aggregated" .}}{{end}}
</div>{{end}}

{{define "product"}}<div id="product-content">
{{if .NoData}}<div class="no-data">{{.Message}}</div>{{else}}{{template "aggregated" .}}{{end}}
</div>{{end}}

{{define "compare"}}<div id="compare-content">
{{if .NoData}}<div class="no-data">{{.Message}}</div>{{else}}<table class="modern-table">
<thead><tr><th>Time</th><th>{{.Left}}</th><th>{{.Right}}</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Time}}</td><td>{{num .Left}}</td><td>{{num .Right}}</td></tr>{{end}}
</tbody>
</table>{{end}}
</div>{{end}}
`))

type tableData struct {
	Label    string
	Selected string
	Table    models.AggregatedTable
	Cards    models.SummaryCards
	NoData   bool
	Message  string
}

type compareData struct {
	Left    string
	Right   string
	Rows    []models.ComparisonRow
	NoData  bool
	Message string
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	err := tables.ExecuteTemplate(&buf, name, data)
	return buf.String(), err
}

func (h *SSEHandlers) renderHourly(view services.HourlyView) (string, error) {
	return render("hourly", tableData{
		Label:    "Product",
		Selected: view.Product,
		Table:    view.Table,
		Cards:    view.Cards,
		NoData:   view.NoData,
		Message:  noDataMessage,
	})
}

func (h *SSEHandlers) renderProduct(view services.ProductView) (string, error) {
	return render("product", tableData{
		Label:    "Time",
		Selected: view.Hour,
		Table:    view.Table,
		NoData:   view.NoData,
		Message:  noDataMessage,
	})
}

func (h *SSEHandlers) renderCompare(view services.CompareView) (string, error) {
	return render("compare", compareData{
		Left:    view.LeftItem,
		Right:   view.RightItem,
		Rows:    view.Rows,
		NoData:  view.NoData,
		Message: noDataMessage,
	})
}

// selection reads and resolves the page signals. Failures are answered with a
// JSON error before any event is sent.
func (h *SSEHandlers) selection(w http.ResponseWriter, r *http.Request) (Signals, services.Query, bool) {
	signals, err := readSignals(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return Signals{}, services.Query{}, false
	}
	q, err := resolver{ctx: r.Context(), logger: h.logger}.query(signals.Params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return Signals{}, services.Query{}, false
	}
	return signals, q, true
}

func (h *SSEHandlers) patchSignals(sse *datastar.ServerSentEventGenerator, signals map[string]any) {
	data, err := json.Marshal(signals)
	if err != nil {
		h.logger.Error("marshal signals", "error", err)
		return
	}
	if err := sse.PatchSignals(data); err != nil {
		h.logger.Debug("patch signals", "error", err)
	}
}

func (h *SSEHandlers) patchElements(sse *datastar.ServerSentEventGenerator, html string, err error) {
	if err != nil {
		h.logger.Error("render view", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Debug("patch elements", "error", err)
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	_, q, ok := h.selection(w, r)
	if !ok {
		return
	}

	opts, err := h.analytics.Options(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchSignals(sse, map[string]any{"optionsData": opts})
	flush(w)
}

func (h *SSEHandlers) HandleHourly(w http.ResponseWriter, r *http.Request) {
	_, q, ok := h.selection(w, r)
	if !ok {
		return
	}

	view, err := h.analytics.Hourly(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchSignals(sse, map[string]any{"hourlyData": view})
	html, err := h.renderHourly(view)
	h.patchElements(sse, html, err)
	flush(w)
}

func (h *SSEHandlers) HandleProduct(w http.ResponseWriter, r *http.Request) {
	_, q, ok := h.selection(w, r)
	if !ok {
		return
	}

	view, err := h.analytics.Product(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchSignals(sse, map[string]any{"productData": view})
	html, err := h.renderProduct(view)
	h.patchElements(sse, html, err)
	flush(w)
}

func (h *SSEHandlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	signals, err := readSignals(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	cq, err := resolver{ctx: r.Context(), logger: h.logger}.compare(signals.Compare)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	view, err := h.analytics.Compare(r.Context(), cq)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchSignals(sse, map[string]any{"compareData": view})
	html, err := h.renderCompare(view)
	h.patchElements(sse, html, err)
	flush(w)
}

func (h *SSEHandlers) HandleCorrelation(w http.ResponseWriter, r *http.Request) {
	signals, err := readSignals(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := check(signals.Correlation); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	view, err := h.analytics.Correlation(r.Context(), signals.Correlation.X, signals.Correlation.Y)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	h.patchSignals(sse, map[string]any{"correlationData": view})
	flush(w)
}

// HandleRefreshAll recomputes every view for the current signals and sends
// them as one batch of events.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	signals, q, ok := h.selection(w, r)
	if !ok {
		return
	}
	rs := resolver{ctx: r.Context(), logger: h.logger}
	cq, err := rs.compare(signals.Compare)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := check(signals.Correlation); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ctx := r.Context()
	opts, err := h.analytics.Options(ctx, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	hourly, err := h.analytics.Hourly(ctx, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	product, err := h.analytics.Product(ctx, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	compare, err := h.analytics.Compare(ctx, cq)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	correlation, err := h.analytics.Correlation(ctx, signals.Correlation.X, signals.Correlation.Y)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)

	html, err := h.renderHourly(hourly)
	h.patchElements(sse, html, err)
	html, err = h.renderProduct(product)
	h.patchElements(sse, html, err)
	html, err = h.renderCompare(compare)
	h.patchElements(sse, html, err)

	h.patchSignals(sse, map[string]any{
		"optionsData":     opts,
		"hourlyData":      hourly,
		"productData":     product,
		"compareData":     compare,
		"correlationData": correlation,
	})
	flush(w)
}
