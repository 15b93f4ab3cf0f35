package postgresrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/u3m2a1/nibog-sub001/internal/domain"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, booking_ref, transaction_id, user_id, event_id, status,
	total_paise, payment_status, payment_method, provider_ref, parent, child,
	created_at, updated_at, cancelled_at, completed_at`

// NextID reserves a booking id before the parent is sent to the gateway.
// The id travels inside the transaction id and becomes the primary key
// once the payment succeeds.
func (r *BookingRepo) NextID(ctx context.Context) (int64, error) {
	const op = "postgresrepo.BookingRepo.NextID"

	var id int64
	if err := r.handle().QueryRow(ctx, `SELECT nextval('booking_id_seq')`).Scan(&id); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves a booking with its games and add-ons.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
func (r *BookingRepo) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := r.loadLines(ctx, db, b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// GetByTransactionID looks a booking up by its idempotence key.
//
// Returns:
//   - error: repository.ErrNotFound if no booking was created for the transaction.
func (r *BookingRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetByTransactionID"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE transaction_id = $1`, transactionID))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	if err := r.loadLines(ctx, db, b); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// Insert writes a booking together with its games and add-ons. Callers run
// it inside a transaction via With.
//
// Returns:
//   - error: repository.ErrConflict when a booking already exists for the
//     transaction id, booking id or booking ref.
func (r *BookingRepo) Insert(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Insert"

	db := r.handle()

	parent, err := json.Marshal(b.Parent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	child, err := json.Marshal(b.Child)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := *b
	if err := db.QueryRow(ctx,
		`INSERT INTO bookings(id, booking_ref, transaction_id, user_id, event_id, status,
			total_paise, payment_status, payment_method, provider_ref, parent, child)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		b.ID, b.Ref, b.TransactionID, b.UserID, b.EventID, string(b.Status),
		b.TotalPaise, string(b.PaymentStatus), b.PaymentMethod, b.ProviderRef, parent, child,
	).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, wrapDBErr(op, err)
	}

	batch := &pgx.Batch{}
	for _, g := range b.Games {
		batch.Queue(
			`INSERT INTO booking_games(booking_id, game_id, price_paise)
			 VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			b.ID, g.GameID, g.PricePaise,
		)
	}
	for _, a := range b.AddOns {
		batch.Queue(
			`INSERT INTO booking_addons(booking_id, addon_id, quantity)
			 VALUES ($1, $2, $3)
			 ON CONFLICT DO NOTHING`,
			b.ID, a.AddOnID, a.Quantity,
		)
	}
	if batch.Len() > 0 {
		if err := db.SendBatch(ctx, batch).Close(); err != nil {
			return nil, wrapDBErr(op, err)
		}
	}

	return &out, nil
}

// TicketSource loads the booking together with the event and the game/slot
// rows the ticket is printed from.
func (r *BookingRepo) TicketSource(ctx context.Context, bookingID int64) (*domain.TicketSource, error) {
	const op = "postgresrepo.BookingRepo.TicketSource"

	b, err := r.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	db := r.handle()

	src := domain.TicketSource{Booking: *b}

	var date *time.Time
	err = db.QueryRow(ctx,
		`SELECT id, title, venue_name, city_name, event_date FROM events WHERE id = $1`,
		b.EventID,
	).Scan(&src.Event.ID, &src.Event.Title, &src.Event.VenueName, &src.Event.CityName, &date)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapDBErr(op, err)
	}
	if date != nil {
		src.Event.Date = *date
	}

	rows, err := db.Query(ctx,
		`SELECT bg.game_id,
		        COALESCE(s.custom_title, ''), COALESCE(s.slot_title, ''), COALESCE(s.game_name, ''),
		        s.custom_price, s.slot_price, s.game_price,
		        COALESCE(s.start_time, ''), COALESCE(s.end_time, '')
		 FROM booking_games bg
		 LEFT JOIN event_game_slots s ON s.event_id = $2 AND s.game_id = bg.game_id
		 WHERE bg.booking_id = $1
		 ORDER BY bg.game_id`,
		bookingID, b.EventID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var g domain.GameSlot
		if err := rows.Scan(
			&g.GameID,
			&g.CustomTitle,
			&g.SlotTitle,
			&g.GameName,
			&g.CustomPrice,
			&g.SlotPrice,
			&g.GamePrice,
			&g.StartTime,
			&g.EndTime,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		src.Games = append(src.Games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &src, nil
}

func (r *BookingRepo) loadLines(ctx context.Context, db DB, b *domain.Booking) error {
	rows, err := db.Query(ctx,
		`SELECT game_id, price_paise FROM booking_games WHERE booking_id = $1 ORDER BY game_id`, b.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var g domain.GameSelection
		if err := rows.Scan(&g.GameID, &g.PricePaise); err != nil {
			rows.Close()
			return err
		}
		b.Games = append(b.Games, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = db.Query(ctx,
		`SELECT addon_id, quantity FROM booking_addons WHERE booking_id = $1 ORDER BY addon_id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.AddOnSelection
		if err := rows.Scan(&a.AddOnID, &a.Quantity); err != nil {
			return err
		}
		b.AddOns = append(b.AddOns, a)
	}

	return rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b             domain.Booking
		status        string
		paymentStatus string
		parent, child []byte
	)

	if err := row.Scan(
		&b.ID,
		&b.Ref,
		&b.TransactionID,
		&b.UserID,
		&b.EventID,
		&status,
		&b.TotalPaise,
		&paymentStatus,
		&b.PaymentMethod,
		&b.ProviderRef,
		&parent,
		&child,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CancelledAt,
		&b.CompletedAt,
	); err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.BookingPaymentStatus(paymentStatus)

	if err := json.Unmarshal(parent, &b.Parent); err != nil {
		return nil, fmt.Errorf("decode parent: %w", err)
	}
	if err := json.Unmarshal(child, &b.Child); err != nil {
		return nil, fmt.Errorf("decode child: %w", err)
	}

	return &b, nil
}
