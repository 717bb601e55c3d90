package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"

	_ "modernc.org/sqlite"
)

const timestampLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseStoredDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Bins

const binColumns = `id, user_id, name, current_amount_cents, goal_amount_cents, monthly_allocation_cents, created_at`

func scanBin(s rowScanner) (core.Bin, error) {
	var (
		b       core.Bin
		created string
	)
	err := s.Scan(&b.ID, &b.UserID, &b.Name, &b.CurrentAmount.Cents, &b.GoalAmount.Cents, &b.MonthlyAllocation.Cents, &created)
	if err != nil {
		return core.Bin{}, err
	}
	b.CreatedAt = parseTimestamp(created)
	return b, nil
}

func (r *SQLiteRepository) ListBins(ctx context.Context, userID string) ([]core.Bin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+binColumns+` FROM savings_bins WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bins: %w", err)
	}
	defer rows.Close()

	var bins []core.Bin
	for rows.Next() {
		b, err := scanBin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bin: %w", err)
		}
		bins = append(bins, b)
	}
	return bins, rows.Err()
}

func (r *SQLiteRepository) GetBin(ctx context.Context, userID, id string) (core.Bin, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+binColumns+` FROM savings_bins WHERE user_id = ? AND id = ?`, userID, id)
	b, err := scanBin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bin{}, ErrNotFound
	}
	if err != nil {
		return core.Bin{}, fmt.Errorf("get bin %s: %w", id, err)
	}
	return b, nil
}

func (r *SQLiteRepository) CreateBin(ctx context.Context, b core.Bin) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_bins (`+binColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, b.CurrentAmount.Cents, b.GoalAmount.Cents, b.MonthlyAllocation.Cents, formatTimestamp(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("create bin: %w", err)
	}
	slog.InfoContext(ctx, "Bin saved to SQLite", "id", b.ID, "user_id", b.UserID, "name", b.Name)
	return nil
}

func (r *SQLiteRepository) UpdateBin(ctx context.Context, b core.Bin) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_bins
		    SET name = ?, current_amount_cents = ?, goal_amount_cents = ?, monthly_allocation_cents = ?
		  WHERE user_id = ? AND id = ?`,
		b.Name, b.CurrentAmount.Cents, b.GoalAmount.Cents, b.MonthlyAllocation.Cents, b.UserID, b.ID)
	if err != nil {
		return fmt.Errorf("update bin %s: %w", b.ID, err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepository) SetBinAmount(ctx context.Context, userID, binID string, amount core.Money) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_bins SET current_amount_cents = ? WHERE user_id = ? AND id = ?`,
		amount.Cents, userID, binID)
	if err != nil {
		return fmt.Errorf("set bin amount %s: %w", binID, err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteBin(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE user_id = ? AND bin_id = ?`, userID, id); err != nil {
		return fmt.Errorf("delete schedules of bin %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM savings_bins WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete bin %s: %w", id, err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return err
	}
	return tx.Commit()
}

// Schedules

const scheduleColumns = `id, user_id, bin_id, name, frequency, custom_month, custom_day, anchor_date, monthly_allocation_cents, created_at`

func scanSchedule(s rowScanner) (core.Schedule, error) {
	var (
		sc                     core.Schedule
		freq, anchor, created  string
		customMonth, customDay sql.NullInt64
	)
	err := s.Scan(&sc.ID, &sc.UserID, &sc.BinID, &sc.Name, &freq, &customMonth, &customDay, &anchor, &sc.MonthlyAllocation.Cents, &created)
	if err != nil {
		return core.Schedule{}, err
	}
	anchorDate, err := parseStoredDate(anchor)
	if err != nil {
		return core.Schedule{}, err
	}
	sc.Rule = core.RecurrenceRule{
		Frequency:   core.Frequency(freq),
		AnchorDate:  anchorDate,
		CustomMonth: int(customMonth.Int64),
		CustomDay:   int(customDay.Int64),
	}
	sc.CreatedAt = parseTimestamp(created)
	return sc, nil
}

func nullableInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func (r *SQLiteRepository) ListSchedules(ctx context.Context, userID string) ([]core.Schedule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []core.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateSchedule(ctx context.Context, s core.Schedule) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schedules (`+scheduleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.BinID, s.Name, string(s.Rule.Frequency),
		nullableInt(s.Rule.CustomMonth), nullableInt(s.Rule.CustomDay),
		s.Rule.AnchorDate.String(), s.MonthlyAllocation.Cents, formatTimestamp(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	slog.InfoContext(ctx, "Schedule saved to SQLite",
		"id", s.ID,
		"bin_id", s.BinID,
		"frequency", s.Rule.Frequency)
	return nil
}

func (r *SQLiteRepository) DeleteSchedule(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteSchedulesByBin(ctx context.Context, userID, binID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE user_id = ? AND bin_id = ?`, userID, binID)
	if err != nil {
		return 0, fmt.Errorf("delete schedules of bin %s: %w", binID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) ListScheduleOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM schedules ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list schedule owners: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Subscriptions

const subscriptionColumns = `id, user_id, name, amount_cents, occurrence, start_date, next_billing_date, last_paid_date, created_at`

func scanSubscription(s rowScanner) (core.Subscription, error) {
	var (
		sub                       core.Subscription
		occ, start, next, created string
		lastPaid                  sql.NullString
	)
	err := s.Scan(&sub.ID, &sub.UserID, &sub.Name, &sub.Amount.Cents, &occ, &start, &next, &lastPaid, &created)
	if err != nil {
		return core.Subscription{}, err
	}
	sub.Occurrence = core.Occurrence(occ)
	if sub.StartDate, err = parseStoredDate(start); err != nil {
		return core.Subscription{}, err
	}
	if sub.NextBillingDate, err = parseStoredDate(next); err != nil {
		return core.Subscription{}, err
	}
	if lastPaid.Valid && lastPaid.String != "" {
		d, err := parseStoredDate(lastPaid.String)
		if err != nil {
			return core.Subscription{}, err
		}
		sub.LastPaidDate = &d
	}
	sub.CreatedAt = parseTimestamp(created)
	return sub, nil
}

func nullableDate(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY next_billing_date, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetSubscription(ctx context.Context, userID, id string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? AND id = ?`, userID, id)
	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Name, s.Amount.Cents, string(s.Occurrence),
		s.StartDate.String(), s.NextBillingDate.String(), nullableDate(s.LastPaidDate), formatTimestamp(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateBilling(ctx context.Context, userID, id string, next core.Date, lastPaid *core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET next_billing_date = ?, last_paid_date = ? WHERE user_id = ? AND id = ?`,
		next.String(), nullableDate(lastPaid), userID, id)
	if err != nil {
		return fmt.Errorf("update billing %s: %w", id, err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete subscription %s: %w", id, err)
	}
	return affectedOrNotFound(res)
}

// Expenses

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, amount_cents, created_at FROM expenses WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e       core.Expense
			created string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Amount.Cents, &created); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.CreatedAt = parseTimestamp(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, name, amount_cents, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Name, e.Amount.Cents, formatTimestamp(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET name = ?, amount_cents = ? WHERE user_id = ? AND id = ?`,
		e.Name, e.Amount.Cents, e.UserID, e.ID)
	if err != nil {
		return fmt.Errorf("update expense %s: %w", e.ID, err)
	}
	return affectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete expense %s: %w", id, err)
	}
	return affectedOrNotFound(res)
}

// Profiles

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	var (
		p    = core.Profile{UserID: userID}
		chat sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly_income_cents, telegram_chat_id FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.MonthlyIncome.Cents, &chat)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.TelegramChatID = chat.Int64
	return p, nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.Profile) error {
	chat := sql.NullInt64{Int64: p.TelegramChatID, Valid: p.TelegramChatID != 0}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, monthly_income_cents, telegram_chat_id) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		     monthly_income_cents = excluded.monthly_income_cents,
		     telegram_chat_id = excluded.telegram_chat_id`,
		p.UserID, p.MonthlyIncome.Cents, chat)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteRepository)(nil)
