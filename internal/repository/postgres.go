// Package repository implements data access on PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/soundcu/finance-copilot/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrMemberExists is returned when registering an email that is already taken.
var (
	ErrMemberExists = errors.New("member already exists")
	// ErrMemberNotFound is returned when no member matches the lookup.
	ErrMemberNotFound = errors.New("member not found")
	// ErrGoalNotFound is returned when a goal does not exist or belongs to another member.
	ErrGoalNotFound = errors.New("goal not found")
)

// PostgresRepository provides access to the PostgreSQL data store.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the repository and initializes the schema
// through embedded migrations.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Amounts are stored as cents (int64) and converted at this boundary.

func toCents(v float64) int64   { return int64(v*100 + 0.5) }
func fromCents(v int64) float64 { return float64(v) / 100 }

// CreateMember inserts a new member and returns its ID.
func (r *PostgresRepository) CreateMember(ctx context.Context, email string, passwordHash []byte, firstName, lastName string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO members (email, password_hash, first_name, last_name) VALUES ($1, $2, $3, $4) RETURNING id`,
		email, passwordHash, firstName, lastName,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrMemberExists, email)
		}
		return 0, fmt.Errorf("create member: %w", err)
	}
	return id, nil
}

const memberColumns = `id, email, password_hash, first_name, last_name, annual_income_cents, credit_score, dti_ratio, created_at`

func scanMember(row pgx.Row) (*model.Member, error) {
	var (
		m           model.Member
		incomeCents *int64
	)
	err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.FirstName, &m.LastName,
		&incomeCents, &m.Profile.CreditScore, &m.Profile.DTIRatio, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	if incomeCents != nil {
		v := fromCents(*incomeCents)
		m.Profile.AnnualIncome = &v
	}
	return &m, nil
}

// GetMemberByEmail returns the member with the given email.
func (r *PostgresRepository) GetMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE email = $1`, email))
}

// GetMemberByID returns the member with the given ID.
func (r *PostgresRepository) GetMemberByID(ctx context.Context, id int64) (*model.Member, error) {
	return scanMember(r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
}

// UpdateMember saves the member's names and financial profile.
func (r *PostgresRepository) UpdateMember(ctx context.Context, id int64, firstName, lastName string, profile model.FinancialProfile) error {
	var incomeCents *int64
	if profile.AnnualIncome != nil {
		v := toCents(*profile.AnnualIncome)
		incomeCents = &v
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE members
		 SET first_name = $2, last_name = $3, annual_income_cents = $4, credit_score = $5, dti_ratio = $6
		 WHERE id = $1`,
		id, firstName, lastName, incomeCents, profile.CreditScore, profile.DTIRatio,
	)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// CreateGoal inserts a new goal and returns it with generated fields set.
func (r *PostgresRepository) CreateGoal(ctx context.Context, goal model.Goal) (*model.Goal, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO goals (member_id, kind, name, description, target_cents, current_cents, spending_cents, deadline, status, priority)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		goal.MemberID, string(goal.Kind), goal.Name, goal.Description,
		toCents(goal.TargetAmount), toCents(goal.CurrentAmount), toCents(goal.CurrentSpending),
		goal.Deadline, string(goal.Status), goal.Priority,
	).Scan(&goal.ID, &goal.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &goal, nil
}

const goalColumns = `id, member_id, kind, name, description, target_cents, current_cents, spending_cents, deadline, status, priority, created_at, completed_at`

func scanGoal(row pgx.Row) (*model.Goal, error) {
	var (
		g                         model.Goal
		kind, status              string
		target, current, spending int64
	)
	err := row.Scan(&g.ID, &g.MemberID, &kind, &g.Name, &g.Description,
		&target, &current, &spending, &g.Deadline, &status, &g.Priority,
		&g.CreatedAt, &g.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("scan goal: %w", err)
	}
	g.Kind = model.GoalKind(kind)
	g.Status = model.GoalStatus(status)
	g.TargetAmount = fromCents(target)
	g.CurrentAmount = fromCents(current)
	g.CurrentSpending = fromCents(spending)
	return &g, nil
}

// GetGoal returns one goal owned by the member.
func (r *PostgresRepository) GetGoal(ctx context.Context, memberID, goalID int64) (*model.Goal, error) {
	return scanGoal(r.pool.QueryRow(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1 AND member_id = $2`,
		goalID, memberID))
}

// GetGoalsByMember returns the member's goals, highest priority first. An
// empty status returns all goals.
func (r *PostgresRepository) GetGoalsByMember(ctx context.Context, memberID int64, status model.GoalStatus) ([]model.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE member_id = $1`
	args := []any{memberID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY priority DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return goals, nil
}

// ActiveGoalsByMember returns the member's active goals, highest priority first.
func (r *PostgresRepository) ActiveGoalsByMember(ctx context.Context, memberID int64) ([]model.Goal, error) {
	return r.GetGoalsByMember(ctx, memberID, model.GoalStatusActive)
}

// UpdateGoal saves the goal's mutable fields.
func (r *PostgresRepository) UpdateGoal(ctx context.Context, goal model.Goal) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE goals
		 SET name = $3, description = $4, target_cents = $5, current_cents = $6, spending_cents = $7,
		     deadline = $8, status = $9, priority = $10, completed_at = $11
		 WHERE id = $1 AND member_id = $2`,
		goal.ID, goal.MemberID, goal.Name, goal.Description,
		toCents(goal.TargetAmount), toCents(goal.CurrentAmount), toCents(goal.CurrentSpending),
		goal.Deadline, string(goal.Status), goal.Priority, goal.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// DeleteGoal removes a goal owned by the member.
func (r *PostgresRepository) DeleteGoal(ctx context.Context, memberID, goalID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM goals WHERE id = $1 AND member_id = $2`,
		goalID, memberID,
	)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// ActiveProducts returns the active catalog, optionally filtered by kind.
func (r *PostgresRepository) ActiveProducts(ctx context.Context, kind model.ProductKind) ([]model.Product, error) {
	query := `SELECT id, kind, name, description, base_rate, application_url, min_credit_score, max_dti_ratio, min_income_cents, is_active
	          FROM products WHERE is_active = true`
	args := []any{}
	if kind != "" {
		query += ` AND kind = $1`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var (
			p           model.Product
			kindStr     string
			incomeCents *int64
		)
		if err := rows.Scan(&p.ID, &kindStr, &p.Name, &p.Description, &p.BaseRate,
			&p.ApplicationURL, &p.MinCreditScore, &p.MaxDTIRatio, &incomeCents, &p.IsActive); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.Kind = model.ProductKind(kindStr)
		if incomeCents != nil {
			v := fromCents(*incomeCents)
			p.MinIncome = &v
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// RecordEvent stores one analytics event. Data must be a JSON document.
func (r *PostgresRepository) RecordEvent(ctx context.Context, memberID int64, eventType string, data []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO events (member_id, event_type, event_data) VALUES ($1, $2, $3)`,
		memberID, eventType, data,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
