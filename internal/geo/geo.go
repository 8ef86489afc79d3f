package geo

import (
	"errors"
	"math"
	"strings"
)

const earthRadiusKm = 6371.0

var ErrUnknownMode = errors.New("unknown transportation mode")

// Mode is how the citizen travels; each mode has a fixed pace used to
// convert distance into minutes.
type Mode string

const (
	ModeWalking Mode = "walking"
	ModeBicycle Mode = "bicycle"
	ModeDriving Mode = "driving"
)

var minutesPerKm = map[Mode]float64{
	ModeWalking: 12,
	ModeBicycle: 4,
	ModeDriving: 2,
}

func ParseMode(raw string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := minutesPerKm[mode]; !ok {
		return "", ErrUnknownMode
	}
	return mode, nil
}

func (m Mode) MinutesPerKm() float64 {
	return minutesPerKm[m]
}

type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(a, b Point) float64 {
	latA := radians(a.Latitude)
	latB := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(latA)*math.Cos(latB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// TravelMinutes converts the distance between two points into travel
// time for the given mode.
func TravelMinutes(from, to Point, mode Mode) float64 {
	return Haversine(from, to) * mode.MinutesPerKm()
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
