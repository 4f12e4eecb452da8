package log

import (
	"fleetbudget/internal/core"

	"github.com/shopspring/decimal"
)

// Field names shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldVehicleID  = "vehicle_id"
	FieldPeriod     = "period"
	FieldOrderID    = "order_id"
	FieldAlertID    = "alert_id"
	FieldAlertCount = "alert_count"
	FieldNotice     = "notice"
	FieldTotalGross = "total_gross"
	FieldItemCount  = "item_count"
	FieldLimit      = "limit"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentInvoice   = "invoice"
	ComponentBudget    = "budget"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentLock      = "lock"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

const (
	OpCreate      = "create"
	OpRead        = "read"
	OpList        = "list"
	OpPreview     = "preview"
	OpCheckBudget = "check_budget"
	OpAcknowledge = "acknowledge"
	OpSetLimit    = "set_limit"
	OpPublish     = "publish"
	OpConsume     = "consume"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)

// LogFields is a builder for structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithPeriod(p core.Period) LogFields {
	f[FieldPeriod] = p.Key()
	return f
}

func (f LogFields) WithVehicle(id core.VehicleID) LogFields {
	f[FieldVehicleID] = string(id)
	return f
}

// WithOrder adds the identifying fields of a stored order.
func (f LogFields) WithOrder(o core.Order) LogFields {
	f[FieldOrderID] = o.ID
	f[FieldVehicleID] = string(o.VehicleID)
	f[FieldTotalGross] = o.Invoice.Totals.TotalGross.StringFixed(core.CentPlaces)
	f[FieldItemCount] = len(o.Invoice.Items)
	return f
}

func (f LogFields) WithEvaluation(e core.Evaluation) LogFields {
	f[FieldAlertCount] = len(e.Alerts)
	if e.Notice != core.NoticeNone {
		f[FieldNotice] = string(e.Notice)
	}
	return f
}

func (f LogFields) WithLimit(amount decimal.Decimal) LogFields {
	f[FieldLimit] = amount.String()
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
