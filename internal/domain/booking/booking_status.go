package booking

import "fmt"

// Status represents the current state of a booking in its lifecycle.
type Status string

const (
	StatusDraft          Status = "DRAFT"
	StatusPending        Status = "PENDING"
	StatusApproved       Status = "APPROVED"
	StatusPaymentPending Status = "PAYMENT_PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCompleted      Status = "COMPLETED"
	StatusRejected       Status = "REJECTED"
	StatusCancelled      Status = "CANCELLED"
	StatusPaymentFailed  Status = "PAYMENT_FAILED"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusApproved,
	StatusPaymentPending,
	StatusConfirmed,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
	StatusPaymentFailed,
}

// ActiveStatuses are the non-terminal statuses. An identity may hold at most one
// booking in this set.
var ActiveStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusApproved,
	StatusPaymentPending,
	StatusConfirmed,
}

// CancellableStatuses are the statuses a requester may cancel from.
var CancellableStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusPaymentPending,
	StatusConfirmed,
}

// statusSet is an immutable set of statuses.
type statusSet map[Status]struct{}

func newStatusSet(statuses ...Status) statusSet {
	s := make(statusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

func (s statusSet) has(st Status) bool {
	_, ok := s[st]
	return ok
}

// transitions is the booking state graph. It only describes edges; entry conditions
// and side effects live on the aggregate.
var transitions = map[Status]statusSet{
	StatusDraft:          newStatusSet(StatusPending, StatusRejected),
	StatusPending:        newStatusSet(StatusApproved, StatusRejected, StatusCancelled),
	StatusApproved:       newStatusSet(StatusPaymentPending, StatusConfirmed, StatusCancelled),
	StatusPaymentPending: newStatusSet(StatusConfirmed, StatusPaymentFailed, StatusCancelled),
	StatusConfirmed:      newStatusSet(StatusCompleted, StatusCancelled),
	StatusCompleted:      newStatusSet(),
	StatusRejected:       newStatusSet(),
	StatusCancelled:      newStatusSet(),
	StatusPaymentFailed:  newStatusSet(),
}

var (
	activeSet      = newStatusSet(ActiveStatuses...)
	cancellableSet = newStatusSet(CancellableStatuses...)
)

func init() {
	if err := validateTransitionTable(transitions); err != nil {
		panic(err)
	}
}

// validateTransitionTable checks that every status has an entry and every successor
// is a known status.
func validateTransitionTable(table map[Status]statusSet) error {
	known := newStatusSet(AllStatuses...)
	for _, st := range AllStatuses {
		if _, ok := table[st]; !ok {
			return fmt.Errorf("booking transition table: missing entry for %s", st)
		}
	}
	for from, targets := range table {
		if !known.has(from) {
			return fmt.Errorf("booking transition table: unknown source status %s", from)
		}
		for to := range targets {
			if !known.has(to) {
				return fmt.Errorf("booking transition table: unknown target status %s (from %s)", to, from)
			}
			if to == StatusDraft {
				return fmt.Errorf("booking transition table: %s may not return to %s", from, to)
			}
		}
	}
	return nil
}

// AssertTransition fails with an InvalidTransitionError unless target is an allowed
// successor of current.
func AssertTransition(current, target Status) error {
	if !current.CanTransitionTo(target) {
		return &InvalidTransitionError{From: current, To: target}
	}
	return nil
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, exists := transitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := transitions[s]
	if !exists {
		return false
	}
	return allowed.has(target)
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := transitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// IsActive reports whether the status counts towards the one-active-booking rule.
func (s Status) IsActive() bool { return activeSet.has(s) }

// IsCancellable reports whether a requester may cancel from this status.
func (s Status) IsCancellable() bool { return cancellableSet.has(s) }

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// Mode is the way a session is held.
type Mode string

const (
	ModeOnline  Mode = "ONLINE"
	ModeOffline Mode = "OFFLINE"
)

// IsValid returns true if the mode is recognized.
func (m Mode) IsValid() bool { return m == ModeOnline || m == ModeOffline }

// PaymentMode is the way a session is paid for.
type PaymentMode string

const (
	PaymentModeOnline  PaymentMode = "ONLINE"
	PaymentModeOffline PaymentMode = "OFFLINE"
)

// IsValid returns true if the payment mode is recognized.
func (m PaymentMode) IsValid() bool { return m == PaymentModeOnline || m == PaymentModeOffline }

// Period is the coarse time-of-day preference supplied at intake.
type Period string

const (
	PeriodMorning Period = "MORNING"
	PeriodEvening Period = "EVENING"
	PeriodCustom  Period = "CUSTOM"
)

// IsValid returns true if the period is recognized.
func (p Period) IsValid() bool {
	return p == PeriodMorning || p == PeriodEvening || p == PeriodCustom
}

// Actor records who cancelled a booking.
type Actor string

const (
	ActorUser  Actor = "USER"
	ActorAdmin Actor = "ADMIN"
)
