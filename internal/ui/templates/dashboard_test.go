package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage() Page {
	return Page{
		Title:   "QSR Sales Dashboard",
		Version: "1.0.0",
		Groups: []Option{
			{Value: "cereal_packages", Label: "Cereal Packs"},
			{Value: "chicken_packages", Label: "Chicken Packs"},
		},
		AggFuncs:  []string{"Average", "Total"},
		Metrics:   []string{"Quantity", "Ticket", "Sales", "AVS Per Hour"},
		StartDate: "2023-01-02",
		EndDate:   "2023-03-31",
	}
}

func TestDashboard_Render(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dashboard(testPage()).Render(context.Background(), &buf))
	html := buf.String()

	for _, want := range []string{
		"<title>QSR Sales Dashboard</title>",
		`<option value="chicken_packages">Chicken Packs</option>`,
		`<option value="AVS Per Hour">AVS Per Hour</option>`,
		`min="2023-01-02"`,
		`id="hourly-content"`,
		`id="product-content"`,
		`id="compare-content"`,
		`data-init="@get('/sse/refresh-all')"`,
		"&#34;group&#34;:&#34;cereal_packages&#34;",
		"bundles/datastar.js",
	} {
		assert.Contains(t, html, want)
	}
}

func TestPage_InitialSignals(t *testing.T) {
	raw, err := testPage().initialSignals()
	require.NoError(t, err)

	var s signals
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, "cereal_packages", s.Group)
	assert.Equal(t, "Average", s.Agg)
	assert.Equal(t, "Quantity", s.Feature)
	assert.Equal(t, "Ticket", s.Correlation.X)
	assert.Equal(t, "AVS Per Hour", s.Correlation.Y)
	assert.Equal(t, "2023-03-31", s.End)
	assert.NotNil(t, s.Months)

	raw, err = Page{}.initialSignals()
	require.NoError(t, err)
	assert.Contains(t, raw, `"group":""`)
}

func TestDashboard_EscapesValues(t *testing.T) {
	p := testPage()
	p.Title = `<script>alert("x")</script>`
	p.Groups = []Option{{Value: `a"b`, Label: "<b>Packs</b>"}}

	var buf bytes.Buffer
	require.NoError(t, Dashboard(p).Render(context.Background(), &buf))
	html := buf.String()

	assert.NotContains(t, html, `<script>alert`)
	assert.Contains(t, html, "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;")
	assert.Contains(t, html, `<option value="a&#34;b">&lt;b&gt;Packs&lt;/b&gt;</option>`)
}

func TestDashboard_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.ErrorIs(t, Dashboard(testPage()).Render(ctx, &buf), context.Canceled)
	assert.Empty(t, buf.String())
}
