package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qsr-dashboard/internal/models"
)

func TestCorrelate_PerfectlyLinear(t *testing.T) {
	data := []models.Observation{
		row(t, "2023-01-02", "9AM", "Rot", 1, 1, 10),
		row(t, "2023-01-02", "10AM", "Rot", 2, 2, 20),
		row(t, "2023-01-02", "11AM", "Rot", 3, 3, 30),
	}

	c, err := Correlate(data, "Ticket", "Sales")
	require.NoError(t, err)
	require.True(t, c.Defined)
	assert.InDelta(t, 1.0, c.Coefficient, 1e-12)
	assert.Len(t, c.Points, 3)

	c, err = Correlate(data, "Ticket", "Rot")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.Coefficient, 1e-12)
}

func TestCorrelate_NegativeAndWideRows(t *testing.T) {
	data := []models.Observation{
		row(t, "2023-01-02", "9AM", "Rot", 1, 4, 100),
		row(t, "2023-01-02", "9AM", "1PC", 9, 4, 100),
		row(t, "2023-01-02", "10AM", "Rot", 2, 4, 100),
		row(t, "2023-01-02", "10AM", "1PC", 6, 4, 100),
		row(t, "2023-01-02", "11AM", "Rot", 3, 4, 100),
		row(t, "2023-01-02", "11AM", "1PC", 3, 4, 100),
	}

	c, err := Correlate(data, "Rot", "1PC")
	require.NoError(t, err)
	// one point per hour, not per product
	assert.Len(t, c.Points, 3)
	assert.InDelta(t, -1.0, c.Coefficient, 1e-12)

	c, err = Correlate(data, "Quantity", "Rot")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 8, 6}, []float64{c.Points[0].X, c.Points[1].X, c.Points[2].X})
}

func TestCorrelate_Defaults(t *testing.T) {
	c, err := Correlate(sampleData(t), "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultCorrelationX, c.X)
	assert.Equal(t, DefaultCorrelationY, c.Y)
}

func TestCorrelate_NoData(t *testing.T) {
	_, err := Correlate(nil, "", "")
	assert.ErrorIs(t, err, ErrNoData)

	single := []models.Observation{row(t, "2023-01-02", "9AM", "Rot", 1, 1, 10)}
	_, err = Correlate(single, "Ticket", "Sales")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Correlate(sampleData(t), "Ticket", "Unknown Product")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCorrelate_ConstantSeriesIsUndefined(t *testing.T) {
	data := []models.Observation{
		row(t, "2023-01-02", "9AM", "Rot", 1, 5, 10),
		row(t, "2023-01-02", "10AM", "Rot", 2, 5, 20),
	}

	c, err := Correlate(data, "Ticket", "Sales")
	require.NoError(t, err)
	assert.False(t, c.Defined)
	assert.Zero(t, c.Coefficient)
}
