package slots

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozuki35/hot-desking/internal/domain"
	"go.uber.org/zap"
)

// Directory is the booking service the controller sends intents to. It is
// the only authority on conflicts.
type Directory interface {
	ListBookings(ctx context.Context, deskID string, date domain.Date) ([]domain.Booking, error)
	CreateBooking(ctx context.Context, deskID string, date domain.Date, slots domain.SlotSet) ([]domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) error
}

// Session supplies the acting user's identity.
type Session interface {
	CurrentUserID() string
}

// StaticSession is a Session for a fixed user.
type StaticSession string

func (s StaticSession) CurrentUserID() string { return string(s) }

type State int

const (
	StateIdle State = iota
	StatePending
)

func (s State) String() string {
	if s == StatePending {
		return "pending"
	}
	return "idle"
}

var ErrToggleInFlight = errors.New("slots: a toggle is still pending for this desk")

type SlotFailure struct {
	Slot domain.TimeSlot
	Err  error
}

// Outcome reports what a toggle actually did.
type Outcome struct {
	Result
	Created   []domain.Booking
	Cancelled []CancelIntent
	Failures  []SlotFailure
	// Selection is the selection after failed slots were reverted.
	Selection domain.SlotSet
}

// Err joins the per-slot failures, or returns nil if every intent succeeded.
func (o *Outcome) Err() error {
	errs := make([]error, 0, len(o.Failures))
	for _, f := range o.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Slot, f.Err))
	}
	return errors.Join(errs...)
}

// Controller drives the slot toggles for one desk on one date. Toggles move
// it from idle to pending and back; a toggle that arrives while another is
// pending is refused so every reconciliation starts from the last applied
// selection.
type Controller struct {
	dir     Directory
	session Session
	deskID  string
	date    domain.Date
	log     *zap.Logger

	mu        sync.Mutex
	state     State
	userID    string
	existing  []domain.Booking
	created   []domain.Booking
	cancelled map[string]struct{}
	selection domain.SlotSet
	disabled  domain.SlotSet
}

type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

func NewController(dir Directory, session Session, deskID string, date domain.Date, opts ...Option) *Controller {
	c := &Controller{
		dir:       dir,
		session:   session,
		deskID:    deskID,
		date:      date,
		log:       zap.NewNop(),
		cancelled: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("desk_id", deskID), zap.String("date", date.String()))
	return c
}

// Load installs a snapshot the caller already has, such as the bookings
// embedded in a desk listing.
func (c *Controller) Load(bookings []domain.Booking) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePending {
		return ErrToggleInFlight
	}
	c.replace(bookings)
	return nil
}

// Refresh fetches the desk's bookings and replaces the snapshot wholesale.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.State() == StatePending {
		return ErrToggleInFlight
	}
	bookings, err := c.dir.ListBookings(ctx, c.deskID, c.date)
	if err != nil {
		return err
	}
	return c.Load(bookings)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Selection() domain.SlotSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncUser()
	return c.selection
}

func (c *Controller) Disabled() domain.SlotSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncUser()
	return c.disabled
}

// Toggle moves the selection to next, cancelling and creating bookings as
// needed. Per-slot failures are reverted and reported in the outcome rather
// than returned as an error.
func (c *Controller) Toggle(ctx context.Context, next domain.SlotSet) (*Outcome, error) {
	c.mu.Lock()
	if c.state == StatePending {
		c.mu.Unlock()
		return nil, ErrToggleInFlight
	}
	c.syncUser()
	prev := c.selection
	res := Reconcile(Input{
		Existing: c.live(c.existing),
		Created:  c.live(c.created),
		UserID:   c.userID,
		Previous: prev,
		Next:     next,
	})
	c.selection = next.Minus(res.Disabled).Union(prev.Intersect(res.Disabled))
	c.state = StatePending
	c.mu.Unlock()

	out := &Outcome{Result: res}
	for _, slot := range res.Unmatched {
		c.log.Warn("no active booking to cancel, treating slot as already free", zap.String("time_slot", slot.String()))
	}
	if !res.Ignored.Empty() {
		c.log.Info("ignored toggle on disabled slots", zap.String("slots", res.Ignored.String()))
	}

	for _, intent := range res.ToCancel {
		if err := c.dir.CancelBooking(ctx, intent.BookingID); err != nil {
			c.log.Error("cancel booking failed", zap.String("booking_id", intent.BookingID), zap.Error(err))
			out.Failures = append(out.Failures, SlotFailure{Slot: intent.Slot, Err: err})
			continue
		}
		out.Cancelled = append(out.Cancelled, intent)
	}

	var createErr error
	if !res.ToAdd.Empty() {
		out.Created, createErr = c.dir.CreateBooking(ctx, c.deskID, c.date, res.ToAdd)
		if createErr != nil {
			c.log.Error("create booking failed", zap.String("slots", res.ToAdd.String()), zap.Error(createErr))
			for _, slot := range res.ToAdd.Slots() {
				out.Failures = append(out.Failures, SlotFailure{Slot: slot, Err: createErr})
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range out.Failures {
		if prev.Has(f.Slot) {
			c.selection = c.selection.With(f.Slot)
		} else {
			c.selection = c.selection.Without(f.Slot)
		}
	}
	for _, intent := range out.Cancelled {
		c.cancelled[intent.BookingID] = struct{}{}
	}
	c.created = append(c.created, out.Created...)
	c.state = StateIdle
	out.Selection = c.selection
	return out, nil
}

func (c *Controller) replace(bookings []domain.Booking) {
	c.existing = append([]domain.Booking(nil), bookings...)
	c.created = nil
	c.cancelled = make(map[string]struct{})
	c.userID = c.session.CurrentUserID()
	c.recompute()
}

// syncUser recomputes derived state when the session user has changed.
func (c *Controller) syncUser() {
	if id := c.session.CurrentUserID(); id != c.userID {
		c.userID = id
		c.created = nil
		c.recompute()
	}
}

func (c *Controller) recompute() {
	c.selection = Selection(c.existing, c.userID)
	c.disabled = Disabled(c.existing, c.userID)
}

// live returns bookings minus those cancelled in this session. It never
// modifies its argument.
func (c *Controller) live(bookings []domain.Booking) []domain.Booking {
	if len(c.cancelled) == 0 {
		return bookings
	}
	out := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if _, gone := c.cancelled[b.ID]; !gone {
			out = append(out, b)
		}
	}
	return out
}
