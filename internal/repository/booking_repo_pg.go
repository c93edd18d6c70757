package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kozuki35/hot-desking/internal/domain"
)

// BookingFilter narrows a booking listing. Zero fields match everything.
type BookingFilter struct {
	UserID   string
	DeskID   string
	Date     domain.Date
	Statuses []domain.BookingStatus
}

type BookingRepository interface {
	// CreateActive inserts all bookings in one transaction. A slot that is
	// already actively held fails the whole batch with a DuplicateError on
	// ConstraintActiveSlot.
	CreateActive(ctx context.Context, bookings []*domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	ListViews(ctx context.Context, filter BookingFilter) ([]domain.BookingView, error)
	// UpdateStatusIf moves a booking to status only while it is still in from.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking) error
	ArchiveBefore(ctx context.Context, date domain.Date) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `b.id, b.user_id, b.desk_id, b.booking_date, b.time_slot, b.status, b.created_at, b.updated_at`

func (r *PGBookingRepository) CreateActive(ctx context.Context, bookings []*domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, b := range bookings {
		b.Status = domain.BookingStatusActive
		if err := tx.QueryRow(ctx, `INSERT INTO bookings (id, user_id, desk_id, booking_date, time_slot, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at`, b.ID, b.UserID, b.DeskID, b.BookingDate.Time(), b.TimeSlot, b.Status).
			Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
			return mapError(err)
		}
	}

	return mapError(tx.Commit(ctx))
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id=$1`, id))
}

func (r *PGBookingRepository) List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings b
		WHERE `+filterClause+`
		ORDER BY b.booking_date, b.time_slot DESC, b.created_at`, filterArgs(filter)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListViews(ctx context.Context, filter BookingFilter) ([]domain.BookingView, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+`, u.first_name, u.last_name, d.code, d.name, d.location
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN desks d ON d.id = b.desk_id
		WHERE `+filterClause+`
		ORDER BY b.created_at DESC`, filterArgs(filter)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]domain.BookingView, 0)
	for rows.Next() {
		var v domain.BookingView
		var date time.Time
		if err := rows.Scan(&v.ID, &v.UserID, &v.DeskID, &date, &v.TimeSlot, &v.Status, &v.CreatedAt, &v.UpdatedAt,
			&v.UserFirstName, &v.UserLastName, &v.DeskCode, &v.DeskName, &v.DeskLocation); err != nil {
			return nil, err
		}
		v.BookingDate = domain.DateOf(date)
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r *PGBookingRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.BookingStatus) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `UPDATE bookings b SET status=$3, updated_at=now()
		WHERE b.id=$1 AND b.status=$2
		RETURNING `+bookingColumns, id, from, to))
}

func (r *PGBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	err := r.db.QueryRow(ctx, `UPDATE bookings SET booking_date=$2, time_slot=$3, status=$4, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`, b.ID, b.BookingDate.Time(), b.TimeSlot, b.Status).Scan(&b.UpdatedAt)
	return mapError(err)
}

func (r *PGBookingRepository) ArchiveBefore(ctx context.Context, date domain.Date) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings b SET status=$1, updated_at=now()
		WHERE b.status=$2 AND b.booking_date < $3
		RETURNING `+bookingColumns, domain.BookingStatusArchived, domain.BookingStatusActive, date.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var archived []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		archived = append(archived, *b)
	}
	return archived, rows.Err()
}

const filterClause = `($1 = '' OR b.user_id = $1)
		AND ($2 = '' OR b.desk_id = $2)
		AND ($3::date IS NULL OR b.booking_date = $3)
		AND (cardinality($4::text[]) = 0 OR b.status = ANY($4))`

func filterArgs(f BookingFilter) []any {
	var date any
	if !f.Date.IsZero() {
		date = f.Date.Time()
	}
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	return []any{f.UserID, f.DeskID, date, statuses}
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var date time.Time
	if err := row.Scan(&b.ID, &b.UserID, &b.DeskID, &date, &b.TimeSlot, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	b.BookingDate = domain.DateOf(date)
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
