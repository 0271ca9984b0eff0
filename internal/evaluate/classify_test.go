package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"argus/pkg/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name          string
		contributions []Contribution
		want          int
	}{
		{
			name: "sums only matched weights",
			contributions: []Contribution{
				{Weight: 30, Matched: true},
				{Weight: 40, Matched: false},
				{Weight: 20, Matched: true},
			},
			want: 50,
		},
		{
			name:          "no contributions",
			contributions: nil,
			want:          0,
		},
		{
			name: "clamps above 100",
			contributions: []Contribution{
				{Weight: 60, Matched: true},
				{Weight: 60, Matched: true},
			},
			want: 100,
		},
		{
			name: "exactly 100 stays 100",
			contributions: []Contribution{
				{Weight: 100, Matched: true},
			},
			want: 100,
		},
		{
			name: "nothing matched",
			contributions: []Contribution{
				{Weight: 50, Matched: false},
				{Weight: 50, Matched: false},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.contributions))
		})
	}
}

func TestClassify(t *testing.T) {
	bands := DefaultBands()

	tests := []struct {
		nameExpected  string
		score         int
		threshold     int
		wantTriggered bool
		wantLevel     models.RiskLevel
	}{
		{"below threshold never triggers", 49, 50, false, ""},
		{"at threshold triggers", 50, 50, true, models.RiskLevelMedium},
		{"high band", 75, 50, true, models.RiskLevelHigh},
		{"just below high band", 74, 50, true, models.RiskLevelMedium},
		{"critical band", 90, 50, true, models.RiskLevelCritical},
		{"max score", 100, 50, true, models.RiskLevelCritical},
		{"high score below high threshold", 80, 85, false, ""},
		{"zero threshold always triggers", 0, 0, true, models.RiskLevelMedium},
	}

	for _, tt := range tests {
		t.Run(tt.nameExpected, func(t *testing.T) {
			triggered, level := Classify(tt.score, tt.threshold, bands)
			assert.Equal(t, tt.wantTriggered, triggered)
			assert.Equal(t, tt.wantLevel, level)
		})
	}
}

func TestClassifyTriggeredBelowMediumFloor(t *testing.T) {
	// A low threshold can trigger a score under the medium floor; the
	// lowest existing level still applies.
	triggered, level := Classify(20, 10, DefaultBands())
	assert.True(t, triggered)
	assert.Equal(t, models.RiskLevelMedium, level)
}

func TestClassifyCustomBands(t *testing.T) {
	bands := Bands{MediumFloor: 20, HighFloor: 40, CriticalFloor: 60}

	triggered, level := Classify(45, 10, bands)
	assert.True(t, triggered)
	assert.Equal(t, models.RiskLevelHigh, level)

	triggered, level = Classify(60, 10, bands)
	assert.True(t, triggered)
	assert.Equal(t, models.RiskLevelCritical, level)
}

func TestDefaultBands(t *testing.T) {
	bands := DefaultBands()
	assert.Equal(t, 50, bands.MediumFloor)
	assert.Equal(t, 75, bands.HighFloor)
	assert.Equal(t, 90, bands.CriticalFloor)
}
