package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetbudget/internal/amqp"
	"fleetbudget/internal/core"
	"fleetbudget/internal/log"
	"fleetbudget/internal/services"
)

type fakeChecker struct {
	mu      sync.Mutex
	periods []core.Period
	err     error
}

func (c *fakeChecker) CheckBudget(_ context.Context, p core.Period) (services.CheckResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.periods = append(c.periods, p)
	return services.CheckResult{Period: p}, c.err
}

func (c *fakeChecker) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.periods)
}

func newWorker(c *fakeChecker) *BudgetWorker {
	w := NewBudgetWorker(c)
	w.SetLogger(log.Discard())
	w.SetClock(func() time.Time { return time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC) })
	return w
}

func TestHandleInvoiceCreated(t *testing.T) {
	tests := []struct {
		name       string
		msg        *amqp.InvoiceCreatedMessage
		checkErr   error
		wantErr    bool
		wantChecks int
	}{
		{
			name:       "checks the invoice month",
			msg:        &amqp.InvoiceCreatedMessage{OrderID: "o-1", Period: "2025-03"},
			wantChecks: 1,
		},
		{
			name: "bad period is dropped",
			msg:  &amqp.InvoiceCreatedMessage{OrderID: "o-2", Period: "March"},
		},
		{
			name:       "check failure is returned for requeue",
			msg:        &amqp.InvoiceCreatedMessage{OrderID: "o-3", Period: "2025-03"},
			checkErr:   errors.New("lock not obtained"),
			wantErr:    true,
			wantChecks: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeChecker{err: tt.checkErr}
			err := newWorker(c).HandleInvoiceCreated(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if c.calls() != tt.wantChecks {
				t.Fatalf("checks = %d, want %d", c.calls(), tt.wantChecks)
			}
			if tt.wantChecks > 0 && c.periods[0] != core.MonthPeriod(2025, 3) {
				t.Fatalf("checked %v, want March 2025", c.periods[0])
			}
		})
	}
}

func TestCheckCurrentMonth(t *testing.T) {
	c := &fakeChecker{}
	if err := newWorker(c).CheckCurrentMonth(context.Background()); err != nil {
		t.Fatalf("CheckCurrentMonth: %v", err)
	}
	if c.periods[0] != core.MonthPeriod(2025, 1) {
		t.Fatalf("checked %v, want January 2025", c.periods[0])
	}
}

func TestRunPeriodic(t *testing.T) {
	c := &fakeChecker{err: errors.New("temporary")}
	w := newWorker(c)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.calls() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic check did not keep running after a failure")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestRunPeriodicDisabled(t *testing.T) {
	c := &fakeChecker{}
	newWorker(c).RunPeriodic(context.Background(), 0)
	if c.calls() != 0 {
		t.Fatal("zero interval must not run checks")
	}
}
