// Package templates renders the dashboard page. Every view on the page is
// filled in by the /sse endpoints once the page loads.
package templates

import "encoding/json"

type Option struct {
	Value string
	Label string
}

// Page is everything the dashboard needs before the first SSE round trip.
type Page struct {
	Title     string
	Version   string
	Groups    []Option
	AggFuncs  []string
	Metrics   []string
	StartDate string
	EndDate   string
}

type signals struct {
	Group       string         `json:"group"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	Months      []string       `json:"months"`
	Weeks       []string       `json:"weeks"`
	Weekdays    []string       `json:"weekdays"`
	Agg         string         `json:"agg"`
	Hour        string         `json:"hour"`
	Item        string         `json:"item"`
	Feature     string         `json:"feature"`
	Compare     compareSignals `json:"compare"`
	Correlation struct {
		X string `json:"x"`
		Y string `json:"y"`
	} `json:"correlation"`
}

type compareSignals struct {
	Agg    string      `json:"agg"`
	Metric string      `json:"metric"`
	Left   sideSignals `json:"left"`
	Right  sideSignals `json:"right"`
}

type sideSignals struct {
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Months []string `json:"months"`
	Item   string   `json:"item"`
}

func (p Page) initialSignals() (string, error) {
	s := signals{
		Start:    p.StartDate,
		End:      p.EndDate,
		Months:   []string{},
		Weeks:    []string{},
		Weekdays: []string{},
	}
	if len(p.Groups) > 0 {
		s.Group = p.Groups[0].Value
	}
	if len(p.AggFuncs) > 0 {
		s.Agg = p.AggFuncs[0]
		s.Compare.Agg = p.AggFuncs[0]
	}
	if len(p.Metrics) > 0 {
		s.Feature = p.Metrics[0]
		s.Compare.Metric = p.Metrics[0]
		s.Correlation.X = p.Metrics[1%len(p.Metrics)]
		s.Correlation.Y = p.Metrics[len(p.Metrics)-1]
	}
	s.Compare.Left.Months = []string{}
	s.Compare.Right.Months = []string{}

	data, err := json.Marshal(s)
	return string(data), err
}
