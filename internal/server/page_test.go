package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestFmtMoney(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "—"},
		{ptr(1.32e12), "$1.32T"},
		{ptr(4.5e9), "$4.50B"},
		{ptr(-2e6), "$-2.00M"},
		{ptr(123456.25), "$123,456.25"},
		{ptr(42), "$42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fmtMoney(tt.in))
	}
}

func TestFmtPrice(t *testing.T) {
	assert.Equal(t, "—", fmtPrice(nil))
	assert.Equal(t, "—", fmtPrice(ptr(0)))
	assert.Equal(t, "$67,000", fmtPrice(ptr(67000.4)))
	assert.Equal(t, "$1.25", fmtPrice(ptr(1.2499)))
	assert.Equal(t, "$2.5", fmtPrice(ptr(2.5)))
}

func TestFmtChange(t *testing.T) {
	assert.Equal(t, "+0.00%", fmtChange(0))
	assert.Equal(t, "+2.50%", fmtChange(2.5))
	assert.Equal(t, "-1.25%", fmtChange(-1.25))
	assert.Equal(t, "up", changeClass(0))
	assert.Equal(t, "down", changeClass(-0.1))
}

func TestFmtGenerated(t *testing.T) {
	assert.Equal(t, "—", fmtGenerated(time.Time{}))
	assert.Equal(t, "2026-10-16 01:30:00 UTC", fmtGenerated(time.Date(2026, 10, 16, 12, 30, 0, 0, time.FixedZone("AEDT", 11*3600))))
}

func TestStationAt(t *testing.T) {
	assert.Equal(t, Stations[0], stationAt(len(Stations)))
	assert.Equal(t, Stations[len(Stations)-1], stationAt(-1))
}
