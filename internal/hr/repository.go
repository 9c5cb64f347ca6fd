package hr

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/maravena-dev/bloquera-backend/internal/domain"
)

var ErrWorkerNotFound = errors.New("worker not found")

type WorkerRepository struct {
	db *sql.DB
}

func NewWorkerRepository(db *sql.DB) *WorkerRepository {
	return &WorkerRepository{db: db}
}

func (r *WorkerRepository) Create(ctx context.Context, w *domain.Worker) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO workers (name, role, daily_wage, project, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, w.Name, w.Role, w.DailyWage, w.Project, w.Active).Scan(&w.ID)
}

func (r *WorkerRepository) GetByID(ctx context.Context, id int64) (*domain.Worker, error) {
	w := &domain.Worker{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, role, daily_wage, project, active
		FROM workers
		WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Role, &w.DailyWage, &w.Project, &w.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return w, nil
}

func (r *WorkerRepository) List(ctx context.Context) ([]domain.Worker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, role, daily_wage, project, active
		FROM workers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var workers []domain.Worker
	for rows.Next() {
		var w domain.Worker
		if err := rows.Scan(&w.ID, &w.Name, &w.Role, &w.DailyWage, &w.Project, &w.Active); err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workers, nil
}

func (r *WorkerRepository) Update(ctx context.Context, w *domain.Worker) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workers SET name = $2, role = $3, daily_wage = $4, project = $5, active = $6
		WHERE id = $1
	`, w.ID, w.Name, w.Role, w.DailyWage, w.Project, w.Active)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrWorkerNotFound
	}

	return nil
}

// RecordAttendance upserts the attendance mark for one worker and day, so
// correcting a mistaken mark is just recording it again.
func (r *WorkerRepository) RecordAttendance(ctx context.Context, a *domain.Attendance) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (worker_id, date, present)
		VALUES ($1, $2, $3)
		ON CONFLICT (worker_id, date) DO UPDATE SET present = EXCLUDED.present
		RETURNING id
	`, a.WorkerID, a.Date, a.Present).Scan(&a.ID)
}

func (r *WorkerRepository) ListAttendance(ctx context.Context, workerID int64, from, to time.Time) ([]domain.Attendance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, worker_id, date, present
		FROM attendance
		WHERE worker_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, workerID, from, to)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []domain.Attendance
	for rows.Next() {
		var a domain.Attendance
		if err := rows.Scan(&a.ID, &a.WorkerID, &a.Date, &a.Present); err != nil {
			return nil, err
		}
		records = append(records, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// CountPresentDays counts the days a worker was marked present in [from, to].
func (r *WorkerRepository) CountPresentDays(ctx context.Context, workerID int64, from, to time.Time) (int, error) {
	var days int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE worker_id = $1 AND present AND date BETWEEN $2 AND $3
	`, workerID, from, to).Scan(&days)
	return days, err
}
