package coordinates

import (
	"math"
	"testing"

	"github.com/skypies/geo"
)

// TestDistanceNauticalMiles tests great-circle distances against known values.
func TestDistanceNauticalMiles(t *testing.T) {
	tests := []struct {
		name      string
		from, to  geo.Latlong
		want      float64
		tolerance float64
	}{
		{"Same point", geo.Latlong{Lat: 50, Long: 8}, geo.Latlong{Lat: 50, Long: 8}, 0, 0.001},
		{"One degree of latitude", geo.Latlong{Lat: 0, Long: 0}, geo.Latlong{Lat: 1, Long: 0}, 60, 0.5},
		{"Across the antimeridian", geo.Latlong{Lat: 0, Long: 179.5}, geo.Latlong{Lat: 0, Long: -179.5}, 60, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceNauticalMiles(tt.from, tt.to)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Expected %.2f NM, got %.2f", tt.want, got)
			}
		})
	}
}

// TestNormalizeLongitude tests longitude wrapping.
func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{0, 0},
		{180, 180},
		{-180, -180},
		{181, -179},
		{-181, 179},
		{540, 180},
	}

	for _, tt := range tests {
		got := NormalizeLongitude(tt.input)
		if math.Abs(got-tt.want) > 0.0001 && !(math.Abs(tt.want) == 180 && math.Abs(got) == 180) {
			t.Errorf("NormalizeLongitude(%.1f) = %.1f, want %.1f", tt.input, got, tt.want)
		}
	}
}

// TestSplitAtAntimeridian tests splitting of wrapping boxes.
func TestSplitAtAntimeridian(t *testing.T) {
	t.Run("Regular box is unchanged", func(t *testing.T) {
		box := NewBox(10, -10, -10, 10)
		parts := SplitAtAntimeridian(box)
		if len(parts) != 1 || parts[0] != box {
			t.Errorf("Expected box unchanged, got %v", parts)
		}
	})

	t.Run("Wrapping box is split", func(t *testing.T) {
		box := NewBox(10, 170, -10, -170)
		parts := SplitAtAntimeridian(box)
		if len(parts) != 2 {
			t.Fatalf("Expected 2 parts, got %d", len(parts))
		}
		if parts[0].SW.Long != 170 || parts[0].NE.Long != 180 {
			t.Errorf("Unexpected eastern part %v", parts[0])
		}
		if parts[1].SW.Long != -180 || parts[1].NE.Long != -170 {
			t.Errorf("Unexpected western part %v", parts[1])
		}
		if !Contains(box, geo.Latlong{Lat: 0, Long: 175}) || !Contains(box, geo.Latlong{Lat: 0, Long: -175}) {
			t.Error("Expected positions on both sides to be contained")
		}
		if Contains(box, geo.Latlong{Lat: 0, Long: 0}) {
			t.Error("Expected position at Greenwich to be outside")
		}
	})
}

// TestInflate tests growth of query boxes.
func TestInflate(t *testing.T) {
	box := NewBox(10, 0, 0, 10)
	inflated := Inflate(box, 0.2, 0.1)

	if math.Abs(inflated.NE.Lat-12.1) > 1e-9 || math.Abs(inflated.SW.Lat+2.1) > 1e-9 {
		t.Errorf("Unexpected latitudes %v", inflated)
	}
	if math.Abs(inflated.SW.Long+2.1) > 1e-9 || math.Abs(inflated.NE.Long-12.1) > 1e-9 {
		t.Errorf("Unexpected longitudes %v", inflated)
	}
	if !ContainsBox(inflated, box) {
		t.Error("Expected inflated box to cover original")
	}

	t.Run("Clamped at the poles", func(t *testing.T) {
		got := Inflate(NewBox(89, 0, 80, 10), 0.5, 0)
		if got.NE.Lat != 90 {
			t.Errorf("Expected north clamped to 90, got %f", got.NE.Lat)
		}
	})

	t.Run("Grows across the antimeridian", func(t *testing.T) {
		got := Inflate(NewBox(10, 170, 0, 179), 0.5, 0)
		if !CrossesAntimeridian(got) {
			t.Errorf("Expected wrapping box, got %v", got)
		}
	})

	t.Run("Full band when too wide", func(t *testing.T) {
		got := Inflate(NewBox(10, -170, 0, 170), 0.5, 0)
		if got.SW.Long != -180 || got.NE.Long != 180 {
			t.Errorf("Expected full band, got %v", got)
		}
	})
}

// TestContainsBox tests coverage checks used by the aircraft cache.
func TestContainsBox(t *testing.T) {
	tests := []struct {
		name         string
		outer, inner geo.LatlongBox
		want         bool
	}{
		{"Inside", NewBox(10, 0, 0, 10), NewBox(5, 2, 2, 5), true},
		{"Same", NewBox(10, 0, 0, 10), NewBox(10, 0, 0, 10), true},
		{"Sticks out north", NewBox(10, 0, 0, 10), NewBox(11, 2, 2, 5), false},
		{"Sticks out east", NewBox(10, 0, 0, 10), NewBox(5, 2, 2, 11), false},
		{"Wrapping outer covers inner east of 180", NewBox(10, 170, 0, -170), NewBox(5, -175, 2, -172), true},
		{"Wrapping outer covers wrapping inner", NewBox(10, 170, 0, -170), NewBox(5, 175, 2, -175), true},
		{"Wrapping inner not covered", NewBox(10, 0, 0, 10), NewBox(5, 175, 2, -175), false},
		{"World covers everything", World, NewBox(5, 175, 2, -175), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsBox(tt.outer, tt.inner); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
