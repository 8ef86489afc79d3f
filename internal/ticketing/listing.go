package ticketing

import (
	"context"

	"cityq/eticket-service/internal/models"
	"cityq/eticket-service/internal/queue"
)

type ServiceView struct {
	models.Service
	PeopleWaiting        int `json:"people_waiting"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}

// ListAgencyServices returns the agency's active services with their
// live backlog.
func (e *Engine) ListAgencyServices(ctx context.Context, agencyID int64) ([]ServiceView, error) {
	if _, err := e.store.GetAgency(ctx, agencyID); err != nil {
		return nil, err
	}

	services, err := e.store.ListServices(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	views := make([]ServiceView, 0, len(services))
	for _, svc := range services {
		inactive, err := e.store.CountInactive(ctx, svc.ServiceID)
		if err != nil {
			return nil, err
		}
		waiting := queue.PeopleWaiting(svc, inactive)
		views = append(views, ServiceView{
			Service:              svc,
			PeopleWaiting:        waiting,
			EstimatedWaitMinutes: queue.EstimatedWait(waiting, svc.AvgMinutesPerPerson),
		})
	}
	return views, nil
}
