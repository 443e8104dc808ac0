package model

import "time"

const (
	DefaultSlotDuration       = 20
	DefaultBufferBetweenSlots = 10
)

// Availability is the provider's single working-hours configuration.
// StartTime and EndTime are "HH:mm" wall clock values in Timezone.
type Availability struct {
	StartTime          string
	EndTime            string
	Timezone           string
	SlotDuration       int
	BufferBetweenSlots int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a Availability) Duration() time.Duration {
	return time.Duration(a.SlotDuration) * time.Minute
}

// Step is the distance between consecutive slot starts.
func (a Availability) Step() time.Duration {
	return time.Duration(a.SlotDuration+a.BufferBetweenSlots) * time.Minute
}

// AvailabilityInput is a full upsert. Omitted durations fall back to the defaults.
type AvailabilityInput struct {
	StartTime          string
	EndTime            string
	Timezone           string
	SlotDuration       *int
	BufferBetweenSlots *int
}

func (in AvailabilityInput) Availability() Availability {
	a := Availability{
		StartTime:          in.StartTime,
		EndTime:            in.EndTime,
		Timezone:           in.Timezone,
		SlotDuration:       DefaultSlotDuration,
		BufferBetweenSlots: DefaultBufferBetweenSlots,
	}
	if in.SlotDuration != nil {
		a.SlotDuration = *in.SlotDuration
	}
	if in.BufferBetweenSlots != nil {
		a.BufferBetweenSlots = *in.BufferBetweenSlots
	}
	return a
}

type AvailabilityPatch struct {
	StartTime          *string
	EndTime            *string
	Timezone           *string
	SlotDuration       *int
	BufferBetweenSlots *int
}

func (p AvailabilityPatch) Empty() bool {
	return p.StartTime == nil && p.EndTime == nil && p.Timezone == nil &&
		p.SlotDuration == nil && p.BufferBetweenSlots == nil
}

// Apply returns a copy of a with the set fields replaced.
func (p AvailabilityPatch) Apply(a Availability) Availability {
	if p.StartTime != nil {
		a.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		a.EndTime = *p.EndTime
	}
	if p.Timezone != nil {
		a.Timezone = *p.Timezone
	}
	if p.SlotDuration != nil {
		a.SlotDuration = *p.SlotDuration
	}
	if p.BufferBetweenSlots != nil {
		a.BufferBetweenSlots = *p.BufferBetweenSlots
	}
	return a
}
