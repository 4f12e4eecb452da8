package services

import (
	"context"
	"strings"
	"time"

	"fleetbudget/internal/core"
	"fleetbudget/internal/ports"

	"github.com/google/uuid"
)

// FleetService manages the vehicle directory.
type FleetService struct {
	dir ports.VehicleDirectory
	now func() time.Time
}

func NewFleetService(dir ports.VehicleDirectory) *FleetService {
	return &FleetService{dir: dir, now: time.Now}
}

// AddVehicle registers a vehicle, generating an id when none is given.
func (s *FleetService) AddVehicle(ctx context.Context, v core.Vehicle) (core.Vehicle, error) {
	v.Registration = strings.ToUpper(strings.TrimSpace(v.Registration))
	v.Name = strings.TrimSpace(v.Name)
	v.Branch = strings.TrimSpace(v.Branch)
	if strings.TrimSpace(string(v.ID)) == "" {
		v.ID = core.VehicleID(uuid.NewString())
	}
	v.CreatedAt = s.now().UTC()
	return s.dir.CreateVehicle(ctx, v)
}

func (s *FleetService) Vehicle(ctx context.Context, id core.VehicleID) (core.Vehicle, error) {
	return s.dir.GetVehicle(ctx, id)
}

func (s *FleetService) Vehicles(ctx context.Context) ([]core.Vehicle, error) {
	return s.dir.ListVehicles(ctx)
}
