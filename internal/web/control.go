package web

import (
	"context"

	"nuha.dev/gpslogger/internal/geo"
	"nuha.dev/gpslogger/internal/tracking"
)

// Control is the part of a tracking session exposed over the control API.
type Control interface {
	Start() error
	Stop()
	Snapshot() tracking.Snapshot
}

type ControlApi struct {
	session Control
}

func NewControlApi(session Control) *ControlApi {
	return &ControlApi{session: session}
}

type StartResponse struct {
	Status   int               `json:"status"`
	Error    string            `json:"error,omitempty"`
	Snapshot tracking.Snapshot `json:"snapshot"`
}

type StopResponse struct {
	Status int `json:"status"`
	// session state just before stopping
	Final tracking.Snapshot `json:"final"`
}

type StatusResponse struct {
	tracking.Snapshot
}

type DistanceRequest struct {
	Lat1 *float64 `json:"lat1" validate:"required,min=-90,max=90"`
	Lon1 *float64 `json:"lon1" validate:"required,min=-180,max=180"`
	Lat2 *float64 `json:"lat2" validate:"required,min=-90,max=90"`
	Lon2 *float64 `json:"lon2" validate:"required,min=-180,max=180"`
}

type DistanceResponse struct {
	GreatCircle float64 `json:"great_circle"`
	Planar      float64 `json:"planar"`
}

func (c *ControlApi) Start(ctx context.Context, res *StartResponse) error {
	if err := c.session.Start(); err != nil {
		res.Status = -1
		res.Error = err.Error()
	}
	res.Snapshot = c.session.Snapshot()
	return nil
}

func (c *ControlApi) Stop(ctx context.Context, res *StopResponse) error {
	res.Final = c.session.Snapshot()
	c.session.Stop()
	return nil
}

func (c *ControlApi) Status(ctx context.Context, res *StatusResponse) error {
	res.Snapshot = c.session.Snapshot()
	return nil
}

func (c *ControlApi) Distance(ctx context.Context, req *DistanceRequest, res *DistanceResponse) error {
	res.GreatCircle = geo.GreatCircleDistance(*req.Lat1, *req.Lon1, *req.Lat2, *req.Lon2)
	res.Planar = geo.PlanarApproxDistance(*req.Lat1, *req.Lon1, *req.Lat2, *req.Lon2)
	return nil
}
