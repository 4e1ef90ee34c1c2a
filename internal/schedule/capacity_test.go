package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var officeHours = Window{WorkStart: "09:00", WorkEnd: "18:00", LunchStart: "12:00", LunchEnd: "13:00"}

func TestEvaluateCapacity_Unconfigured(t *testing.T) {
	c := EvaluateCapacity(Window{}, day, at(9, 0), 120, time.UTC)
	assert.False(t, c.Configured)
	assert.Equal(t, LevelOK, c.Level)
	assert.Equal(t, 120, c.RemainingEstimateMin)
}

func TestEvaluateCapacity_LunchWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		estimate  int
		remaining int
		slack     int
		level     Level
	}{
		{"before work, plenty", at(8, 0), 400, 480, 80, LevelOK},
		{"before work, tight", at(8, 0), 450, 480, 30, LevelWarn},
		{"before work, overloaded", at(8, 0), 500, 480, -20, LevelOver},
		{"during lunch", at(12, 30), 200, 300, 100, LevelOK},
		{"afternoon", at(14, 0), 240, 240, 0, LevelWarn},
		{"after work", at(19, 0), 0, 0, 0, LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := EvaluateCapacity(officeHours, day, tt.now, tt.estimate, time.UTC)
			assert.True(t, c.Configured)
			assert.Equal(t, 480, c.CapacityMin)
			assert.Equal(t, tt.remaining, c.RemainingCapacityMin)
			assert.Equal(t, tt.slack, c.SlackMin)
			assert.Equal(t, tt.level, c.Level)
		})
	}
}

func TestEvaluateCapacity_FlatLunch(t *testing.T) {
	w := Window{WorkStart: "09:00", WorkEnd: "18:00", LunchMin: 60}

	c := EvaluateCapacity(w, day, at(8, 0), 0, time.UTC)
	assert.Equal(t, 480, c.CapacityMin)
	assert.Equal(t, 480, c.RemainingCapacityMin)

	c = EvaluateCapacity(w, day, at(17, 30), 10, time.UTC)
	assert.Equal(t, 0, c.RemainingCapacityMin, "floored at zero")
	assert.Equal(t, LevelOver, c.Level)
}

func TestEvaluateCapacity_WarnThresholdScales(t *testing.T) {
	w := Window{WorkStart: "06:00", WorkEnd: "23:00"}
	c := EvaluateCapacity(w, day, at(5, 0), 1020-50, time.UTC)
	assert.Equal(t, 1020, c.CapacityMin)
	assert.Equal(t, 50, c.SlackMin)
	assert.Equal(t, LevelWarn, c.Level, "the threshold is a tenth of 1020")
}
