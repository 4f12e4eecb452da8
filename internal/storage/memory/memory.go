// Package memory is an in-process store used by tests, demos and the memory backend.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fleetbudget/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type alertKey struct {
	vehicle core.VehicleID
	start   string
	kind    core.AlertType
}

type Store struct {
	mu       sync.Mutex
	vehicles map[core.VehicleID]core.Vehicle
	orders   []core.Order
	limit    *core.BudgetLimit
	alerts   []core.BudgetAlert
	alertIdx map[alertKey]struct{}
}

func New(vehicles ...core.Vehicle) *Store {
	s := &Store{
		vehicles: make(map[core.VehicleID]core.Vehicle),
		alertIdx: make(map[alertKey]struct{}),
	}
	for _, v := range vehicles {
		s.vehicles[v.ID] = v
	}
	return s
}

// NewFromFiles seeds vehicles from base/seed_vehicles.txt, one
// "id;registration;name;branch" entry per line. Missing files give an empty fleet.
func NewFromFiles(base string) *Store {
	var vehicles []core.Vehicle
	for _, line := range readLines(filepath.Join(base, "seed_vehicles.txt")) {
		parts := strings.Split(line, ";")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		v := core.Vehicle{
			ID:           core.VehicleID(strings.TrimSpace(parts[0])),
			Registration: strings.TrimSpace(parts[1]),
			Name:         strings.TrimSpace(parts[2]),
			Branch:       strings.TrimSpace(parts[3]),
		}
		if v.Validate() != nil {
			continue
		}
		vehicles = append(vehicles, v)
	}
	return New(vehicles...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateVehicle(_ context.Context, v core.Vehicle) (core.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return core.Vehicle{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[v.ID]; ok {
		return core.Vehicle{}, core.ErrVehicleExists
	}
	for _, other := range s.vehicles {
		if strings.EqualFold(other.Registration, v.Registration) {
			return core.Vehicle{}, core.ErrVehicleExists
		}
	}
	s.vehicles[v.ID] = v
	return v, nil
}

func (s *Store) GetVehicle(_ context.Context, id core.VehicleID) (core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return core.Vehicle{}, core.ErrVehicleNotFound
	}
	return v, nil
}

func (s *Store) ListVehicles(context.Context) ([]core.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Registration < out[j].Registration })
	return out, nil
}

func (s *Store) CreateOrder(_ context.Context, o core.Order) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[o.VehicleID]; !ok {
		return core.Order{}, core.ErrVehicleNotFound
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	// Stored figures are cent-exact, same as the SQL backends.
	o.Invoice.Totals.TotalNet = core.RoundCents(o.Invoice.Totals.TotalNet)
	o.Invoice.Totals.TotalGross = core.RoundCents(o.Invoice.Totals.TotalGross)
	o.Invoice.Items = append([]core.ComputedLineItem(nil), o.Invoice.Items...)
	s.orders = append(s.orders, o)
	return o, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return core.Order{}, core.ErrOrderNotFound
}

func (s *Store) ListOrders(_ context.Context, vehicleID core.VehicleID, period core.Period) ([]core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Order
	for _, o := range s.orders {
		if vehicleID != "" && o.VehicleID != vehicleID {
			continue
		}
		if period.Contains(o.OrderDate) {
			out = append(out, o)
		}
	}
	return out, nil
}

// MonthlySpending sums gross order totals per vehicle for the period, ordered by vehicle.
func (s *Store) MonthlySpending(_ context.Context, period core.Period) ([]core.VehicleMonthlySpending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[core.VehicleID]decimal.Decimal{}
	for _, o := range s.orders {
		if !period.Contains(o.OrderDate) {
			continue
		}
		totals[o.VehicleID] = totals[o.VehicleID].Add(o.Invoice.Totals.TotalGross)
	}
	out := make([]core.VehicleMonthlySpending, 0, len(totals))
	for id, total := range totals {
		out = append(out, core.VehicleMonthlySpending{VehicleID: id, Month: period.Start, TotalSpent: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out, nil
}

func (s *Store) BudgetLimit(context.Context) (core.BudgetLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit == nil {
		return core.BudgetLimit{Amount: decimal.Zero}, nil
	}
	return *s.limit, nil
}

func (s *Store) SetBudgetLimit(_ context.Context, l core.BudgetLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = &l
	return nil
}

func (s *Store) AlertedVehicles(_ context.Context, periodStart core.Date, alertType core.AlertType) (core.VehicleSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := core.NewVehicleSet()
	for k := range s.alertIdx {
		if k.start == periodStart.String() && k.kind == alertType {
			set.Add(k.vehicle)
		}
	}
	return set, nil
}

// InsertAlerts skips alerts whose (vehicle, period start, type) is already stored.
// Missing IDs are assigned in place.
func (s *Store) InsertAlerts(_ context.Context, alerts []core.BudgetAlert) ([]core.BudgetAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted []core.BudgetAlert
	for i := range alerts {
		k := alertKey{vehicle: alerts[i].VehicleID, start: alerts[i].PeriodStart.String(), kind: alerts[i].AlertType}
		if _, dup := s.alertIdx[k]; dup {
			continue
		}
		if alerts[i].ID == "" {
			alerts[i].ID = uuid.NewString()
		}
		s.alertIdx[k] = struct{}{}
		s.alerts = append(s.alerts, alerts[i])
		inserted = append(inserted, alerts[i])
	}
	return inserted, nil
}

func (s *Store) ListAlerts(_ context.Context, f core.AlertFilter) ([]core.BudgetAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetAlert
	for _, a := range s.alerts {
		if f.Matches(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PeriodStart.Equal(out[j].PeriodStart.Time) {
			return out[i].PeriodStart.After(out[j].PeriodStart.Time)
		}
		return out[i].VehicleID < out[j].VehicleID
	})
	return out, nil
}

func (s *Store) GetAlert(_ context.Context, id string) (core.BudgetAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return core.BudgetAlert{}, core.ErrAlertNotFound
}

func (s *Store) AcknowledgeAlert(_ context.Context, id string, at time.Time) (core.BudgetAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID != id {
			continue
		}
		if err := s.alerts[i].Acknowledge(at); err != nil {
			return core.BudgetAlert{}, err
		}
		return s.alerts[i], nil
	}
	return core.BudgetAlert{}, core.ErrAlertNotFound
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
