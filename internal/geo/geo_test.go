package geo

import (
	"math"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		raw   string
		want  Mode
		valid bool
	}{
		{"walking", ModeWalking, true},
		{"  Driving ", ModeDriving, true},
		{"BICYCLE", ModeBicycle, true},
		{"teleport", "", false},
		{"", "", false},
	}

	for _, tt := range cases {
		mode, err := ParseMode(tt.raw)
		if tt.valid {
			if err != nil {
				t.Fatalf("ParseMode(%q): %v", tt.raw, err)
			}
			if mode != tt.want {
				t.Fatalf("ParseMode(%q)=%q, want %q", tt.raw, mode, tt.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParseMode(%q) should fail", tt.raw)
		}
	}
}

func TestHaversine(t *testing.T) {
	// Rome to Milan, roughly 477 km.
	rome := Point{Latitude: 41.9028, Longitude: 12.4964}
	milan := Point{Latitude: 45.4642, Longitude: 9.19}

	got := Haversine(rome, milan)
	if math.Abs(got-477) > 5 {
		t.Fatalf("Haversine=%f km, want about 477", got)
	}
	if Haversine(rome, rome) != 0 {
		t.Fatal("distance to self should be zero")
	}
	if math.Abs(Haversine(rome, milan)-Haversine(milan, rome)) > 1e-9 {
		t.Fatal("haversine should be symmetric")
	}
}

func TestTravelMinutesScalesWithMode(t *testing.T) {
	a := Point{Latitude: 41.9, Longitude: 12.49}
	b := Point{Latitude: 41.95, Longitude: 12.55}

	walk := TravelMinutes(a, b, ModeWalking)
	bike := TravelMinutes(a, b, ModeBicycle)
	drive := TravelMinutes(a, b, ModeDriving)

	if !(walk > bike && bike > drive && drive > 0) {
		t.Fatalf("expected walk > bike > drive > 0, got %f %f %f", walk, bike, drive)
	}
	if math.Abs(walk/drive-6) > 1e-9 {
		t.Fatalf("walking should cost 6x driving, got ratio %f", walk/drive)
	}
}
