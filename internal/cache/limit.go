package cache

import (
	"context"
	"time"

	"fleetbudget/internal/core"
	"fleetbudget/internal/ports"
)

const limitKey = "global"

// LimitStore caches the global budget limit. Writes go through to the
// wrapped store and drop the cached value.
type LimitStore struct {
	next  ports.BudgetConfigStore
	cache *ReadThrough[string, core.BudgetLimit]
}

func NewLimitStore(next ports.BudgetConfigStore, ttl time.Duration) *LimitStore {
	return &LimitStore{
		next:  next,
		cache: NewReadThrough[string, core.BudgetLimit](1, ttl, func(ctx context.Context, _ string) (core.BudgetLimit, error) {
			return next.BudgetLimit(ctx)
		}),
	}
}

func (s *LimitStore) BudgetLimit(ctx context.Context) (core.BudgetLimit, error) {
	return s.cache.Get(ctx, limitKey)
}

func (s *LimitStore) SetBudgetLimit(ctx context.Context, l core.BudgetLimit) error {
	defer s.cache.Invalidate(limitKey)
	return s.next.SetBudgetLimit(ctx, l)
}

// VehicleLookup caches vehicles by id. Unknown ids are not cached.
type VehicleLookup struct {
	cache *ReadThrough[core.VehicleID, core.Vehicle]
}

func NewVehicleLookup(dir ports.VehicleDirectory, size int, ttl time.Duration) *VehicleLookup {
	return &VehicleLookup{cache: NewReadThrough[core.VehicleID, core.Vehicle](size, ttl, dir.GetVehicle)}
}

func (l *VehicleLookup) GetVehicle(ctx context.Context, id core.VehicleID) (core.Vehicle, error) {
	return l.cache.Get(ctx, id)
}
