package storage

const (
	insertVehicle = `INSERT INTO vehicles (id, registration, name, branch, created_at)
VALUES (?, ?, ?, ?, ?)`

	getVehicle = `SELECT id, registration, name, branch, created_at
FROM vehicles WHERE id = ?`

	listVehicles = `SELECT id, registration, name, branch, created_at
FROM vehicles ORDER BY registration`

	insertOrder = `INSERT INTO orders (id, vehicle_id, order_date, supplier, description,
    currency_code, total_net_cents, total_gross_cents, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertOrderItem = `INSERT INTO order_items (order_id, position, name, sku, quantity,
    unit_price_net, vat_rate, unit_price_gross_cents, total_net_cents, total_gross_cents)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectOrder = `SELECT id, vehicle_id, order_date, supplier, description, currency_code,
    total_net_cents, total_gross_cents, created_at
FROM orders`

	listOrderItems = `SELECT name, sku, quantity, unit_price_net, vat_rate,
    unit_price_gross_cents, total_net_cents, total_gross_cents
FROM order_items WHERE order_id = ? ORDER BY position`

	monthlySpending = `SELECT vehicle_id, month, total_spent_cents
FROM vehicle_monthly_spending WHERE month = ? ORDER BY vehicle_id`

	getBudgetLimit = `SELECT amount, currency_code, updated_at FROM budget_limits WHERE id = 1`

	upsertBudgetLimit = `INSERT INTO budget_limits (id, amount, currency_code, updated_at)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    amount = excluded.amount,
    currency_code = excluded.currency_code,
    updated_at = excluded.updated_at`

	alertedVehicles = `SELECT vehicle_id FROM budget_alerts
WHERE period_start = ? AND alert_type = ?`

	insertAlert = `INSERT INTO budget_alerts (id, vehicle_id, alert_type, period_start, period_end,
    threshold_value, actual_value, currency_code, acknowledged, acknowledged_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (vehicle_id, period_start, alert_type) DO NOTHING`

	selectAlert = `SELECT id, vehicle_id, alert_type, period_start, period_end, threshold_value,
    actual_value, currency_code, acknowledged, acknowledged_at, created_at
FROM budget_alerts`

	acknowledgeAlert = `UPDATE budget_alerts SET acknowledged = 1, acknowledged_at = ?
WHERE id = ? AND acknowledged = 0`
)
