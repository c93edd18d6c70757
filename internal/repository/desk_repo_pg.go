package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kozuki35/hot-desking/internal/domain"
)

type DeskRepository interface {
	Create(ctx context.Context, desk *domain.Desk) error
	GetByID(ctx context.Context, id string) (*domain.Desk, error)
	List(ctx context.Context, status domain.DeskStatus) ([]domain.Desk, error)
	Update(ctx context.Context, desk *domain.Desk) error
}

type PGDeskRepository struct {
	db *pgxpool.Pool
}

func NewDeskRepository(db *pgxpool.Pool) DeskRepository {
	return &PGDeskRepository{db: db}
}

const deskColumns = `id, code, name, location, status, description, created_at`

func (r *PGDeskRepository) Create(ctx context.Context, d *domain.Desk) error {
	err := r.db.QueryRow(ctx, `INSERT INTO desks (id, code, name, location, status, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`, d.ID, d.Code, d.Name, d.Location, d.Status, d.Description).
		Scan(&d.CreatedAt)
	return mapError(err)
}

func (r *PGDeskRepository) GetByID(ctx context.Context, id string) (*domain.Desk, error) {
	return scanDesk(r.db.QueryRow(ctx, `SELECT `+deskColumns+` FROM desks WHERE id=$1`, id))
}

// List returns desks with the given status ordered by code, or every desk
// when status is empty.
func (r *PGDeskRepository) List(ctx context.Context, status domain.DeskStatus) ([]domain.Desk, error) {
	rows, err := r.db.Query(ctx, `SELECT `+deskColumns+` FROM desks
		WHERE ($1 = '' OR status = $1)
		ORDER BY code`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	desks := make([]domain.Desk, 0)
	for rows.Next() {
		d, err := scanDesk(rows)
		if err != nil {
			return nil, err
		}
		desks = append(desks, *d)
	}
	return desks, rows.Err()
}

func (r *PGDeskRepository) Update(ctx context.Context, d *domain.Desk) error {
	cmd, err := r.db.Exec(ctx, `UPDATE desks SET code=$2, name=$3, location=$4, status=$5, description=$6
		WHERE id=$1`, d.ID, d.Code, d.Name, d.Location, d.Status, d.Description)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDesk(row pgx.Row) (*domain.Desk, error) {
	var d domain.Desk
	if err := row.Scan(&d.ID, &d.Code, &d.Name, &d.Location, &d.Status, &d.Description, &d.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

var _ DeskRepository = (*PGDeskRepository)(nil)
