package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Outcome TransactionType = "OUTCOME"
)

// SubtypeFood is the category preselected on new transactions.
const SubtypeFood = "FOOD"

type (
	TransactionType string

	// Transaction mirrors the backend's transaction resource.
	Transaction struct {
		ID              int64           `json:"id"`
		Name            string          `json:"name"`
		Type            TransactionType `json:"type"`
		Description     string          `json:"description"`
		Amount          string          `json:"amount"`
		TransactionDate string          `json:"transaction_date"`
		Subtype         string          `json:"subtype"`
		ProofURL        *string         `json:"proof_url"`
		WalletID        int64           `json:"wallet_id"`
		InsertedAt      string          `json:"inserted_at"`
		UpdatedAt       string          `json:"updated_at"`
	}

	// Wallet is a named container scoping a user's transactions.
	Wallet struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}

	// DateParts holds the calendar components of a YYYY-MM-DD date.
	DateParts struct {
		Year  int
		Month int
		Day   int
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Outcome
}

// ParseTransactionType accepts the type case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// ParseDateParts reads year, month and day straight from the leading
// YYYY-MM-DD of s. Anything after the date (a time, a zone) is ignored, so a
// UTC midnight timestamp never shifts to the previous day.
func ParseDateParts(s string) (DateParts, error) {
	s = strings.TrimSpace(s)
	if len(s) < 10 || s[4] != '-' || s[7] != '-' {
		return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	year, err1 := strconv.Atoi(s[0:4])
	month, err2 := strconv.Atoi(s[5:7])
	day, err3 := strconv.Atoi(s[8:10])
	if err1 != nil || err2 != nil || err3 != nil {
		return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	d := DateParts{Year: year, Month: month, Day: day}
	if err := d.Validate(); err != nil {
		return DateParts{}, err
	}
	return d, nil
}

func (d DateParts) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > daysIn(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d", ErrInvalidDate, d.Day)
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d DateParts) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly earlier than other.
func (d DateParts) Before(other DateParts) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// APITimestamp renders the date as the UTC midnight timestamp the backend
// expects, e.g. 2025-03-01T00:00:00.000Z.
func (d DateParts) APITimestamp() string {
	return d.String() + "T00:00:00.000Z"
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) DateParts {
	return DateParts{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
