package ticketing

import (
	"context"

	"cityq/eticket-service/internal/geo"
	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/queue"
)

type AgencyScore struct {
	Agency        models.Agency `json:"agency"`
	TravelMinutes float64       `json:"travel_minutes"`
	WaitMinutes   int           `json:"wait_minutes"`
	Score         float64       `json:"score"`
}

// ClosestAgency ranks the municipality's active agencies by travel time
// plus expected wait and returns the cheapest. Ties resolve to the
// first agency encountered; a linear scan is fine at municipal fleet
// scale.
func (e *Engine) ClosestAgency(ctx context.Context, municipalityID int64, origin geo.Point, mode geo.Mode) (AgencyScore, error) {
	agencies, err := e.store.ListAgencies(ctx, municipalityID)
	if err != nil {
		return AgencyScore{}, err
	}
	if len(agencies) == 0 {
		return AgencyScore{}, ErrNoAgencies
	}

	var best AgencyScore
	found := false
	for _, agency := range agencies {
		travel := geo.TravelMinutes(origin, geo.Point{Latitude: agency.Latitude, Longitude: agency.Longitude}, mode)

		wait := 0
		services, err := e.store.ListServices(ctx, agency.AgencyID)
		if err != nil {
			return AgencyScore{}, err
		}
		for _, svc := range services {
			inactive, err := e.store.CountInactive(ctx, svc.ServiceID)
			if err != nil {
				return AgencyScore{}, err
			}
			wait += queue.PeopleWaiting(svc, inactive) * svc.AvgMinutesPerPerson
		}

		score := travel + float64(wait)
		if !found || score < best.Score {
			best = AgencyScore{
				Agency:        agency,
				TravelMinutes: travel,
				WaitMinutes:   wait,
				Score:         score,
			}
			found = true
		}
	}

	return best, nil
}
