package database

// Migration bookkeeping
const (
	CreateMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			migration_name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`

	SelectAppliedMigrationsSQL = `SELECT migration_name FROM schema_migrations`

	InsertMigrationSQL = `INSERT INTO schema_migrations (migration_name) VALUES ($1)`
)

// Table queries
const (
	tableColumns = `id, branch_id, name, capacity, sort_order, is_active, status, updated_at`

	ListTablesSQL = `SELECT ` + tableColumns + ` FROM restaurant_tables ORDER BY sort_order, name`

	GetTableSQL = `SELECT ` + tableColumns + ` FROM restaurant_tables WHERE id = $1`

	LockTableSQL = `SELECT ` + tableColumns + ` FROM restaurant_tables WHERE id = $1 FOR UPDATE`

	UpdateTableStatusSQL = `UPDATE restaurant_tables SET status = $2, updated_at = $3 WHERE id = $1`

	InsertTableSQL = `
		INSERT INTO restaurant_tables (` + tableColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`
)

// Session queries
const (
	sessionColumns = `id, table_id, customer_name, guest_count, opened_at, closed_at, assigned_waiter_id,
		subtotal_cents, tip_cents, total_cents, payment_method, paid_at, notes`

	GetOpenSessionForTableSQL = `SELECT ` + sessionColumns + ` FROM table_sessions WHERE table_id = $1 AND closed_at IS NULL`

	GetSessionSQL = `SELECT ` + sessionColumns + ` FROM table_sessions WHERE id = $1`

	InsertSessionSQL = `
		INSERT INTO table_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	UpdateSessionSQL = `
		UPDATE table_sessions SET
			customer_name = $2, guest_count = $3, closed_at = $4, assigned_waiter_id = $5,
			subtotal_cents = $6, tip_cents = $7, total_cents = $8, payment_method = $9, paid_at = $10, notes = $11
		WHERE id = $1`
)

// Order queries
const (
	orderColumns = `id, table_session_id, branch_id, channel, customer_name, phone, take_mode, address,
		scheduled_at, note, coupon_id, subtotal_cents, discount_cents, total_cents, tip_cents,
		public_code, status, created_at, updated_at`

	InsertOrderSQL = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	InsertOrderItemSQL = `
		INSERT INTO order_items (id, order_id, product_id, combo_id, name_snapshot, qty, unit_price_cents,
			modifiers_total_cents, line_total_cents, station, modifiers_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	GetOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	GetOrderByPublicCodeSQL = `SELECT ` + orderColumns + ` FROM orders WHERE public_code = $1`

	LockOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	ListSessionOrdersSQL = `SELECT ` + orderColumns + ` FROM orders WHERE table_session_id = $1 ORDER BY created_at`

	GetOrderItemsSQL = `
		SELECT id, order_id, product_id, combo_id, name_snapshot, qty, unit_price_cents,
			modifiers_total_cents, line_total_cents, station, modifiers_snapshot
		FROM order_items WHERE order_id = $1 ORDER BY id`

	UpdateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	InsertOrderStatusHistorySQL = `
		INSERT INTO order_status_history (id, order_id, status, changed_by_user_id, changed_at)
		VALUES ($1, $2, $3, $4, $5)`

	GetOrderStatusHistorySQL = `
		SELECT id, order_id, status, changed_by_user_id, changed_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC`

	DeleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

// Kitchen ticket queries
const (
	ticketColumns = `id, order_id, station, status, ticket_day, ticket_number, created_at, started_at,
		ready_at, delivered_at, cancelled_at, assigned_to_user_id, items_snapshot, notes`

	NextTicketNumberSQL = `
		INSERT INTO ticket_counters (ticket_day, last_number) VALUES ($1, 1)
		ON CONFLICT (ticket_day) DO UPDATE SET last_number = ticket_counters.last_number + 1
		RETURNING last_number`

	InsertTicketSQL = `
		INSERT INTO kitchen_tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	GetTicketSQL = `SELECT ` + ticketColumns + ` FROM kitchen_tickets WHERE id = $1`

	UpdateTicketSQL = `
		UPDATE kitchen_tickets SET
			status = $2, started_at = $3, ready_at = $4, delivered_at = $5, cancelled_at = $6,
			assigned_to_user_id = $7, notes = $8
		WHERE id = $1`

	ListOrderTicketsSQL = `
		SELECT ` + ticketColumns + ` FROM kitchen_tickets
		WHERE order_id = $1
		ORDER BY created_at, ticket_day, ticket_number`

	ListStationTicketsSQL = `
		SELECT ` + ticketColumns + ` FROM kitchen_tickets
		WHERE station = $1 AND status = ANY($2)
		ORDER BY created_at, ticket_day, ticket_number`
)

// Coupon queries
const (
	couponColumns = `id, code, percent_off, amount_off_cents, valid_from, valid_until, max_uses, used_count, is_active`

	GetCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE upper(code) = upper($1)`

	RedeemCouponSQL = `
		UPDATE coupons SET used_count = used_count + 1
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)`

	UpsertCouponSQL = `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code, percent_off = EXCLUDED.percent_off, amount_off_cents = EXCLUDED.amount_off_cents,
			valid_from = EXCLUDED.valid_from, valid_until = EXCLUDED.valid_until, max_uses = EXCLUDED.max_uses,
			is_active = EXCLUDED.is_active`
)

// Catalog queries
const (
	GetProductSQL = `
		SELECT p.id, p.name, COALESCE(p.category_id, ''), p.base_price_cents, p.double_price_cents,
			p.is_active, COALESCE(c.station, '')
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.is_active`

	GetProductModifiersSQL = `
		SELECT id, name, price_delta_cents
		FROM product_modifiers
		WHERE product_id = $1 AND is_active
		ORDER BY name`

	GetComboSQL = `SELECT id, name, listed_price_cents, is_active FROM combos WHERE id = $1 AND is_active`

	GetComboItemsSQL = `SELECT product_id, qty FROM combo_items WHERE combo_id = $1 ORDER BY product_id`

	ListActivePromotionsSQL = `
		SELECT id, name, kind, COALESCE(percent, 0), product_ids, weekdays, start_time, end_time
		FROM promotions
		WHERE is_active
		ORDER BY id`
)
