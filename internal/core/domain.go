package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Day is a calendar day with no time component.
	Day struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          int64
		Date        Day
		Amount      Money
		Category    string
		Description string // optional
	}

	// Income is an append-only income event. Income rows carry no owner:
	// the total is shared across all accounts.
	Income struct {
		ID     int64
		Amount Money
	}

	User struct {
		ID           int64
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Session maps a browser cookie token to a user id.
	Session struct {
		Token     string
		UserID    int64
		ExpiresAt time.Time
	}
)

// Validation errors: malformed or missing caller input.
var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyUsername    = errors.New("empty username")
	ErrEmptyPassword    = errors.New("empty password")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// Auth errors: credential and session failures.
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrNoSession          = errors.New("no valid session")
)

// ErrNotFound reports an operation on a missing expense id.
var ErrNotFound = errors.New("not found")

const dayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into a Day.
// Anything time.Parse rejects (including out-of-range days) is ErrInvalidDate.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, ErrInvalidDate
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, ErrInvalidDate
	}
	return Day{Time: t}, nil
}

// NewDay creates a Day from year, month, day.
func NewDay(year, month, day int) Day {
	return Day{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// String formats the day back as YYYY-MM-DD. Dates round-trip exactly.
func (d Day) String() string {
	return d.Format(dayLayout)
}

func (d Day) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// InMonth reports whether the day falls in the given calendar month.
func (d Day) InMonth(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (i Income) Validate() error {
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// IsValidation reports whether err belongs to the validation error family.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidAmount, ErrEmptyCategory,
		ErrEmptyUsername, ErrEmptyPassword, ErrPasswordMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuth reports whether err belongs to the auth error family.
func IsAuth(err error) bool {
	for _, target := range []error{ErrUsernameTaken, ErrInvalidCredentials, ErrNoSession} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
