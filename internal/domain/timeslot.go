package domain

import (
	"fmt"
	"strings"
)

// TimeSlot is one of the two fixed half-day windows a desk can be booked for.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
)

// AllSlots lists every slot in day order.
var AllSlots = []TimeSlot{SlotMorning, SlotAfternoon}

type Window struct {
	Start string
	End   string
}

var windows = map[TimeSlot]Window{
	SlotMorning:   {Start: "08:00", End: "12:00"},
	SlotAfternoon: {Start: "12:00", End: "17:00"},
}

func ParseTimeSlot(s string) (TimeSlot, error) {
	slot := TimeSlot(strings.ToLower(strings.TrimSpace(s)))
	if !slot.Valid() {
		return "", fmt.Errorf("unknown time slot %q", s)
	}
	return slot, nil
}

func (t TimeSlot) Valid() bool {
	_, ok := windows[t]
	return ok
}

func (t TimeSlot) Window() Window {
	return windows[t]
}

func (t TimeSlot) String() string {
	return string(t)
}

func (t TimeSlot) bit() SlotSet {
	switch t {
	case SlotMorning:
		return 1
	case SlotAfternoon:
		return 2
	default:
		return 0
	}
}

// SlotSet is a set of time slots. The zero value is the empty set.
type SlotSet uint8

func NewSlotSet(slots ...TimeSlot) SlotSet {
	var s SlotSet
	for _, slot := range slots {
		s = s.With(slot)
	}
	return s
}

// ParseSlotSet accepts slot names and rejects anything unknown.
func ParseSlotSet(values []string) (SlotSet, error) {
	var s SlotSet
	for _, v := range values {
		slot, err := ParseTimeSlot(v)
		if err != nil {
			return 0, err
		}
		s = s.With(slot)
	}
	return s, nil
}

func (s SlotSet) Has(slot TimeSlot) bool {
	b := slot.bit()
	return b != 0 && s&b != 0
}

func (s SlotSet) With(slot TimeSlot) SlotSet {
	return s | slot.bit()
}

func (s SlotSet) Without(slot TimeSlot) SlotSet {
	return s &^ slot.bit()
}

// Minus returns the slots in s that are not in other.
func (s SlotSet) Minus(other SlotSet) SlotSet {
	return s &^ other
}

func (s SlotSet) Union(other SlotSet) SlotSet {
	return s | other
}

func (s SlotSet) Intersect(other SlotSet) SlotSet {
	return s & other
}

func (s SlotSet) Empty() bool {
	return s == 0
}

func (s SlotSet) Len() int {
	return len(s.Slots())
}

// Slots returns the members in day order.
func (s SlotSet) Slots() []TimeSlot {
	out := make([]TimeSlot, 0, len(AllSlots))
	for _, slot := range AllSlots {
		if s.Has(slot) {
			out = append(out, slot)
		}
	}
	return out
}

func (s SlotSet) Strings() []string {
	slots := s.Slots()
	out := make([]string, len(slots))
	for i, slot := range slots {
		out[i] = string(slot)
	}
	return out
}

func (s SlotSet) String() string {
	return "{" + strings.Join(s.Strings(), ",") + "}"
}
