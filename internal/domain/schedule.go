package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Business logic constants
type ScheduleStatus string

const (
	ScheduleStatusPending ScheduleStatus = "PENDING"
	ScheduleStatusPaid    ScheduleStatus = "PAID"
)

func (s ScheduleStatus) Valid() bool {
	return s == ScheduleStatusPending || s == ScheduleStatusPaid
}

// EmiScheduleEntry represents one installment of a loan's amortization schedule
type EmiScheduleEntry struct {
	ID                      uuid.UUID       `json:"id" db:"id"`
	LoanID                  uuid.UUID       `json:"loan_id" db:"loan_id"`
	InstallmentNumber       int             `json:"installment_number" db:"installment_number"`
	DueDate                 time.Time       `json:"due_date" db:"due_date"`
	EmiAmount               decimal.Decimal `json:"emi_amount" db:"emi_amount"`
	PrincipalComponent      decimal.Decimal `json:"principal_component" db:"principal_component"`
	InterestComponent       decimal.Decimal `json:"interest_component" db:"interest_component"`
	RemainingPrincipalAfter decimal.Decimal `json:"remaining_principal_after" db:"remaining_principal_after"`
	AmountPaid              decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	Status                  ScheduleStatus  `json:"status" db:"status"`
	CreatedAt               time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at" db:"updated_at"`
}

func (e *EmiScheduleEntry) IsPaid() bool {
	return e.Status == ScheduleStatusPaid
}

// AmountDue is what is still owed on the installment.
func (e *EmiScheduleEntry) AmountDue() decimal.Decimal {
	return e.PrincipalComponent.Add(e.InterestComponent)
}

// MarkPaid zeroes the outstanding components and flips the entry to PAID.
func (e *EmiScheduleEntry) MarkPaid() {
	e.PrincipalComponent = decimal.Zero
	e.InterestComponent = decimal.Zero
	e.RemainingPrincipalAfter = decimal.Zero
	e.Status = ScheduleStatusPaid
}

// Schedule is a loan's installments ordered by installment number.
type Schedule []*EmiScheduleEntry

// Clone returns a deep copy so callers can mutate entries freely.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	for i, entry := range s {
		copied := *entry
		out[i] = &copied
	}
	return out
}

// IsOrdered reports whether installment numbers are contiguous and ascending.
func (s Schedule) IsOrdered() bool {
	for i := 1; i < len(s); i++ {
		if s[i].InstallmentNumber != s[i-1].InstallmentNumber+1 {
			return false
		}
	}
	return true
}

// Unpaid returns the PENDING entries in order.
func (s Schedule) Unpaid() Schedule {
	unpaid := make(Schedule, 0, len(s))
	for _, entry := range s {
		if !entry.IsPaid() {
			unpaid = append(unpaid, entry)
		}
	}
	return unpaid
}

// FirstUnpaidInstallment returns the installment number of the earliest
// PENDING entry.
func (s Schedule) FirstUnpaidInstallment() (int, bool) {
	for _, entry := range s {
		if !entry.IsPaid() {
			return entry.InstallmentNumber, true
		}
	}
	return 0, false
}

// From returns the entries whose installment number is at least installment.
func (s Schedule) From(installment int) Schedule {
	idx := sort.Search(len(s), func(i int) bool {
		return s[i].InstallmentNumber >= installment
	})
	return s[idx:]
}

// UnpaidSuffix returns every entry from the first unpaid installment onward.
func (s Schedule) UnpaidSuffix() Schedule {
	first, ok := s.FirstUnpaidInstallment()
	if !ok {
		return Schedule{}
	}
	return s.From(first)
}

// ReplaceFrom returns a new schedule that keeps the entries before
// installment and continues with rows.
func (s Schedule) ReplaceFrom(installment int, rows Schedule) Schedule {
	head := s[:len(s)-len(s.From(installment))]
	out := make(Schedule, 0, len(head)+len(rows))
	out = append(out, head...)
	return append(out, rows...)
}

// UnpaidPrincipal sums the principal component of PENDING entries.
func (s Schedule) UnpaidPrincipal() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range s {
		if !entry.IsPaid() {
			total = total.Add(entry.PrincipalComponent)
		}
	}
	return total
}

// NextDue returns the earliest PENDING entry, or nil when everything is paid.
func (s Schedule) NextDue() *EmiScheduleEntry {
	for _, entry := range s {
		if !entry.IsPaid() {
			return entry
		}
	}
	return nil
}

type ScheduleResponse struct {
	LoanID   uuid.UUID `json:"loan_id"`
	Schedule Schedule  `json:"schedule"`
}

// UpcomingInstallment is a PENDING installment joined with its loan's
// borrower contact, used by the reminder job.
type UpcomingInstallment struct {
	LoanID            uuid.UUID       `db:"loan_id"`
	AccountID         string          `db:"account_id"`
	BorrowerEmail     string          `db:"borrower_email"`
	InstallmentNumber int             `db:"installment_number"`
	DueDate           time.Time       `db:"due_date"`
	EmiAmount         decimal.Decimal `db:"emi_amount"`
}
