// Package slots turns slot toggles on a desk into booking create and cancel
// intents, and works out which slots another user already holds.
package slots

import "github.com/kozuki35/hot-desking/internal/domain"

// Input is one reconciliation request for a single desk and date.
type Input struct {
	// Existing is the latest snapshot of the desk's bookings for the date.
	Existing []domain.Booking
	// Created holds bookings made earlier in this session that the snapshot
	// may not reflect yet.
	Created  []domain.Booking
	UserID   string
	Previous domain.SlotSet
	Next     domain.SlotSet
}

type CancelIntent struct {
	Slot      domain.TimeSlot
	BookingID string
}

type Result struct {
	// ToAdd is sent as a single create for every slot in the set.
	ToAdd    domain.SlotSet
	ToCancel []CancelIntent
	// Unmatched lists deselected slots with no active booking owned by the
	// user. Nothing is sent for them.
	Unmatched []domain.TimeSlot
	// Ignored lists slots whose toggle was dropped because they are disabled.
	Ignored  domain.SlotSet
	Disabled domain.SlotSet
}

// Selection returns the slots the user holds an active booking for.
func Selection(bookings []domain.Booking, userID string) domain.SlotSet {
	var s domain.SlotSet
	for _, b := range bookings {
		if b.Active() && b.UserID == userID {
			s = s.With(b.TimeSlot)
		}
	}
	return s
}

// Disabled returns the slots some other user holds an active booking for.
func Disabled(bookings []domain.Booking, userID string) domain.SlotSet {
	var s domain.SlotSet
	for _, b := range bookings {
		if b.Active() && b.UserID != userID {
			s = s.With(b.TimeSlot)
		}
	}
	return s
}

// Reconcile computes the net intents for moving from in.Previous to in.Next.
// It does not modify in.
func Reconcile(in Input) Result {
	disabled := Disabled(in.Existing, in.UserID)
	toggled := in.Previous.Minus(in.Next).Union(in.Next.Minus(in.Previous))

	res := Result{
		ToAdd:    in.Next.Minus(in.Previous).Minus(disabled),
		Ignored:  toggled.Intersect(disabled),
		Disabled: disabled,
	}

	for _, slot := range in.Previous.Minus(in.Next).Minus(disabled).Slots() {
		b, ok := findOwned(in.Existing, in.UserID, slot)
		if !ok {
			b, ok = findOwned(in.Created, in.UserID, slot)
		}
		if !ok {
			res.Unmatched = append(res.Unmatched, slot)
			continue
		}
		res.ToCancel = append(res.ToCancel, CancelIntent{Slot: slot, BookingID: b.ID})
	}
	return res
}

// CancelSet returns the slots covered by ToCancel.
func (r Result) CancelSet() domain.SlotSet {
	var s domain.SlotSet
	for _, c := range r.ToCancel {
		s = s.With(c.Slot)
	}
	return s
}

func (r Result) Empty() bool {
	return r.ToAdd.Empty() && len(r.ToCancel) == 0
}

func findOwned(bookings []domain.Booking, userID string, slot domain.TimeSlot) (domain.Booking, bool) {
	for _, b := range bookings {
		if b.TimeSlot == slot && b.UserID == userID && b.Active() {
			return b, true
		}
	}
	return domain.Booking{}, false
}
