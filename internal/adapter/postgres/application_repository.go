package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/applied/internal/domain"
)

const applicationColumns = `id, company_name, role_title, status, applied_at, job_url, job_description, created_at, updated_at`

// ApplicationRepo stores application snapshots. Mutate writes the snapshot
// and its event in one transaction while holding the row lock.
type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var (
		app       domain.Application
		status    string
		appliedAt time.Time
	)
	err := row.Scan(
		&app.ID,
		&app.CompanyName,
		&app.RoleTitle,
		&status,
		&appliedAt,
		&app.JobURL,
		&app.JobDescription,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Status = domain.Status(status)
	app.AppliedAt = domain.DateOf(appliedAt)
	return &app, nil
}

func (r *ApplicationRepo) Create(ctx context.Context, app domain.Application) (*domain.Application, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO applications (company_name, role_title, status, applied_at, job_url, job_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()), COALESCE($8, $7, now()))
		RETURNING `+applicationColumns,
		app.CompanyName,
		app.RoleTitle,
		string(app.Status),
		app.AppliedAt.Time(),
		app.JobURL,
		app.JobDescription,
		nullTime(app.CreatedAt),
		nullTime(app.UpdatedAt),
	)
	created, err := scanApplication(row)
	if err != nil {
		return nil, domain.WrapStorage("insert application", err)
	}
	return created, nil
}

func (r *ApplicationRepo) GetByID(ctx context.Context, id int64) (*domain.Application, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, domain.WrapStorage("get application", err)
	}
	return app, nil
}

// List returns every application ordered by id.
func (r *ApplicationRepo) List(ctx context.Context) ([]domain.Application, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+applicationColumns+` FROM applications ORDER BY id`)
	if err != nil {
		return nil, domain.WrapStorage("list applications", err)
	}
	defer rows.Close()

	apps := []domain.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, domain.WrapStorage("scan application", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapStorage("list applications", err)
	}
	return apps, nil
}

// Mutate locks the row with SELECT ... FOR UPDATE, so a concurrent Mutate on the
// same application waits and then sees the committed result of this one.
func (r *ApplicationRepo) Mutate(ctx context.Context, id int64, fn domain.MutateFunc) (*domain.Application, *domain.ApplicationEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, domain.WrapStorage("begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	row := tx.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id)
	current, err := scanApplication(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, nil, domain.WrapStorage("lock application", err)
	}

	next, draft, err := fn(*current)
	if err != nil {
		return nil, nil, err
	}
	if draft.OccurredAt.IsZero() {
		draft.OccurredAt = next.UpdatedAt
	}

	row = tx.QueryRow(ctx, `
		UPDATE applications
		SET company_name = $2, role_title = $3, status = $4, applied_at = $5,
		    job_url = $6, job_description = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+applicationColumns,
		id,
		next.CompanyName,
		next.RoleTitle,
		string(next.Status),
		next.AppliedAt.Time(),
		next.JobURL,
		next.JobDescription,
		next.UpdatedAt,
	)
	updated, err := scanApplication(row)
	if err != nil {
		return nil, nil, domain.WrapStorage("update application", err)
	}

	event, err := insertEvent(ctx, tx, id, draft)
	if err != nil {
		return nil, nil, domain.WrapStorage("append event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, domain.WrapStorage("commit transaction", err)
	}
	return updated, event, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
