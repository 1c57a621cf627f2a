package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"qsr-dashboard/internal/catalog"
	"qsr-dashboard/internal/errors"
	"qsr-dashboard/internal/pipeline"
	"qsr-dashboard/internal/services"
)

// signalsParam carries the datastar signals of a GET request.
const signalsParam = "datastar"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Params is one dashboard selection, read from a query string or from the
// datastar signals of the page.
type Params struct {
	Group    string   `json:"group" validate:"max=64"`
	Start    string   `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End      string   `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Months   []string `json:"months" validate:"max=12,dive,max=16"`
	Weeks    []string `json:"weeks" validate:"max=4,dive,max=16"`
	Weekdays []string `json:"weekdays" validate:"max=7,dive,max=16"`
	Agg      string   `json:"agg" validate:"max=16"`
	Hour     string   `json:"hour" validate:"max=16"`
	Item     string   `json:"item" validate:"max=128"`
	Feature  string   `json:"feature" validate:"max=32"`
}

type SideParams struct {
	Start    string   `json:"start" validate:"omitempty,datetime=2006-01-02"`
	End      string   `json:"end" validate:"omitempty,datetime=2006-01-02"`
	Months   []string `json:"months" validate:"max=12,dive,max=16"`
	Weeks    []string `json:"weeks" validate:"max=4,dive,max=16"`
	Weekdays []string `json:"weekdays" validate:"max=7,dive,max=16"`
	Item     string   `json:"item" validate:"max=128"`
}

type CompareParams struct {
	Group  string     `json:"group" validate:"max=64"`
	Agg    string     `json:"agg" validate:"max=16"`
	Metric string     `json:"metric" validate:"max=32"`
	Left   SideParams `json:"left"`
	Right  SideParams `json:"right"`
}

type CorrelationParams struct {
	X string `json:"x" validate:"max=128"`
	Y string `json:"y" validate:"max=128"`
}

// Signals is the signal object the dashboard page sends with every datastar
// request.
type Signals struct {
	Params
	Compare     CompareParams     `json:"compare"`
	Correlation CorrelationParams `json:"correlation"`
}

func paramsFromQuery(q url.Values) Params {
	return Params{
		Group:    q.Get("group"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Months:   list(q, "months"),
		Weeks:    list(q, "weeks"),
		Weekdays: list(q, "weekdays"),
		Agg:      q.Get("agg"),
		Hour:     q.Get("hour"),
		Item:     q.Get("item"),
		Feature:  q.Get("feature"),
	}
}

func sideFromQuery(q url.Values, prefix string) SideParams {
	return SideParams{
		Start:    q.Get(prefix + "start"),
		End:      q.Get(prefix + "end"),
		Months:   list(q, prefix+"months"),
		Weeks:    list(q, prefix+"weeks"),
		Weekdays: list(q, prefix+"weekdays"),
		Item:     q.Get(prefix + "item"),
	}
}

func compareFromQuery(q url.Values) CompareParams {
	return CompareParams{
		Group:  q.Get("group"),
		Agg:    q.Get("agg"),
		Metric: q.Get("metric"),
		Left:   sideFromQuery(q, "left_"),
		Right:  sideFromQuery(q, "right_"),
	}
}

// list accepts both repeated keys and comma separated values.
func list(q url.Values, key string) []string {
	var out []string
	for _, v := range q[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// readSignals decodes the datastar signals; a GET without any leaves every
// selection at its default.
func readSignals(r *http.Request) (Signals, error) {
	var s Signals
	if r.Method == http.MethodGet && !r.URL.Query().Has(signalsParam) {
		return s, nil
	}
	if err := datastar.ReadSignals(r, &s); err != nil {
		return Signals{}, errors.BadRequestWrap(err, "Malformed signals")
	}
	if s.Compare.Group == "" {
		s.Compare.Group = s.Group
	}
	return s, nil
}

func check(v any) error {
	if err := validate.Struct(v); err != nil {
		return errors.ValidationWrap(err, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid selection"
	}
	fe := verrs[0]
	if fe.Tag() == "datetime" {
		return fmt.Sprintf("Invalid %s: expected a date as YYYY-MM-DD", fe.Field())
	}
	return fmt.Sprintf("Invalid %s (%s)", fe.Field(), fe.Tag())
}

// resolver turns validated parameters into pipeline selections. Unknown names
// fall back to their defaults and are logged rather than rejected.
type resolver struct {
	ctx    context.Context
	logger *slog.Logger
}

func (rs resolver) soft(err error) {
	if err != nil {
		rs.logger.WarnContext(rs.ctx, "selection fallback", "error", err)
	}
}

func (rs resolver) group(raw string) catalog.GroupID {
	id, err := pipeline.ParseGroup(raw)
	rs.soft(err)
	return id
}

func (rs resolver) dates(start, end string) (time.Time, time.Time) {
	s, e := parseDay(start), parseDay(end)
	rs.soft(pipeline.DateRange{Start: s, End: e}.Check())
	return s, e
}

func (rs resolver) query(p Params) (services.Query, error) {
	if err := check(p); err != nil {
		return services.Query{}, err
	}

	agg, err := pipeline.ParseAggFunc(p.Agg)
	rs.soft(err)

	q := services.Query{
		Group:    rs.group(p.Group),
		Months:   p.Months,
		Weeks:    p.Weeks,
		Weekdays: p.Weekdays,
		Agg:      agg,
		Hour:     strings.TrimSpace(p.Hour),
		Item:     strings.TrimSpace(p.Item),
	}
	q.Start, q.End = rs.dates(p.Start, p.End)

	if p.Feature != "" {
		feature, err := pipeline.ParseMetric(p.Feature)
		rs.soft(err)
		q.Feature = feature
	}
	return q, nil
}

func (rs resolver) compare(p CompareParams) (services.CompareQuery, error) {
	if err := check(p); err != nil {
		return services.CompareQuery{}, err
	}

	agg, err := pipeline.ParseAggFunc(p.Agg)
	rs.soft(err)
	metric, err := pipeline.ParseMetric(p.Metric)
	rs.soft(err)

	return services.CompareQuery{
		Group:  rs.group(p.Group),
		Agg:    agg,
		Metric: metric,
		Left:   rs.side(p.Left),
		Right:  rs.side(p.Right),
	}, nil
}

func (rs resolver) side(p SideParams) services.Side {
	s := services.Side{
		Months:   p.Months,
		Weeks:    p.Weeks,
		Weekdays: p.Weekdays,
		Item:     strings.TrimSpace(p.Item),
	}
	s.Start, s.End = rs.dates(p.Start, p.End)
	return s
}

func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
