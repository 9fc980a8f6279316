// Package period handles the month (YYYY-MM) and bimestre (YYYY-MM_YYYY-MM)
// keys that index every purchase and sale reading.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/coopelec/backend/internal/domain/shared"
)

var (
	monthPattern    = regexp.MustCompile(`^\d{4}-\d{2}$`)
	bimestrePattern = regexp.MustCompile(`^\d{4}-\d{2}_\d{4}-\d{2}$`)
)

// Bounds is the inclusive range of years accepted when parsing period strings.
type Bounds struct {
	MinYear int
	MaxYear int
}

// DefaultBounds covers the years the cooperative has historically billed.
var DefaultBounds = Bounds{MinYear: 2020, MaxYear: 2030}

// Month is a calendar month.
type Month struct {
	Year  int
	Month int
}

// Bimestre is a two-month billing cycle. Parsing does not enforce that the
// halves are consecutive; use Adjacent for that.
type Bimestre struct {
	First  Month
	Second Month
}

// DaysInMonth returns the Gregorian day count, leap years included.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseMonth validates s against the YYYY-MM pattern and the year bounds.
func (b Bounds) ParseMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return Month{}, invalid(s)
	}
	year, _ := strconv.Atoi(s[:4])
	month, _ := strconv.Atoi(s[5:])
	if year < b.MinYear || year > b.MaxYear || month < 1 || month > 12 {
		return Month{}, invalid(s)
	}
	return Month{Year: year, Month: month}, nil
}

// ParseBimestre validates s against the YYYY-MM_YYYY-MM pattern with both
// halves valid months.
func (b Bounds) ParseBimestre(s string) (Bimestre, error) {
	if !bimestrePattern.MatchString(s) {
		return Bimestre{}, invalid(s)
	}
	first, err := b.ParseMonth(s[:7])
	if err != nil {
		return Bimestre{}, invalid(s)
	}
	second, err := b.ParseMonth(s[8:])
	if err != nil {
		return Bimestre{}, invalid(s)
	}
	return Bimestre{First: first, Second: second}, nil
}

// IsValidMonth reports whether s is a month within the bounds.
func (b Bounds) IsValidMonth(s string) bool {
	_, err := b.ParseMonth(s)
	return err == nil
}

// IsValidBimestre reports whether s is a well formed bimestre within the bounds.
func (b Bounds) IsValidBimestre(s string) bool {
	_, err := b.ParseBimestre(s)
	return err == nil
}

// ParseMonth parses s using DefaultBounds.
func ParseMonth(s string) (Month, error) {
	return DefaultBounds.ParseMonth(s)
}

// ParseBimestre parses s using DefaultBounds.
func ParseBimestre(s string) (Bimestre, error) {
	return DefaultBounds.ParseBimestre(s)
}

// IsValidMonth validates s using DefaultBounds.
func IsValidMonth(s string) bool {
	return DefaultBounds.IsValidMonth(s)
}

// IsValidBimestre validates s using DefaultBounds.
func IsValidBimestre(s string) bool {
	return DefaultBounds.IsValidBimestre(s)
}

// SplitBimestre returns both halves of s.
func SplitBimestre(s string) (Month, Month, error) {
	b, err := ParseBimestre(s)
	if err != nil {
		return Month{}, Month{}, err
	}
	return b.First, b.Second, nil
}

func invalid(s string) error {
	return shared.ErrInvalidPeriodFormat.WithMessage(fmt.Sprintf("invalid period format: %q", s))
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Days returns the number of days in m.
func (m Month) Days() int {
	return DaysInMonth(m.Year, m.Month)
}

// Hours returns the number of hours in m.
func (m Month) Hours() int {
	return m.Days() * 24
}

func (m Month) index() int {
	return m.Year*12 + m.Month - 1
}

func fromIndex(i int) Month {
	return Month{Year: i / 12, Month: i%12 + 1}
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	return fromIndex(m.index() + 1)
}

// Previous returns the preceding calendar month.
func (m Month) Previous() Month {
	return fromIndex(m.index() - 1)
}

// Before reports whether m is earlier than other.
func (m Month) Before(other Month) bool {
	return m.index() < other.index()
}

// After reports whether m is later than other.
func (m Month) After(other Month) bool {
	return m.index() > other.index()
}

// IsZero reports whether m is the zero value.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// MonthsBetween counts the months from a to b inclusive. It is 0 when b is before a.
func MonthsBetween(a, b Month) int {
	n := b.index() - a.index() + 1
	if n < 0 {
		return 0
	}
	return n
}

// MonthRange lists the months from a to b inclusive in ascending order.
func MonthRange(a, b Month) []Month {
	n := MonthsBetween(a, b)
	months := make([]Month, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, fromIndex(a.index()+i))
	}
	return months
}

// Of returns the bimestre starting at m.
func Of(m Month) Bimestre {
	return Bimestre{First: m, Second: m.Next()}
}

// String formats the bimestre as YYYY-MM_YYYY-MM.
func (b Bimestre) String() string {
	return b.First.String() + "_" + b.Second.String()
}

// MarshalText implements encoding.TextMarshaler.
func (b Bimestre) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Adjacent reports whether the second month directly follows the first.
func (b Bimestre) Adjacent() bool {
	return b.Second.index()-b.First.index() == 1
}

// Next returns the billing cycle that starts after b ends.
func (b Bimestre) Next() Bimestre {
	return Of(b.Second.Next())
}

// Months returns both halves in order.
func (b Bimestre) Months() [2]Month {
	return [2]Month{b.First, b.Second}
}

// Overlaps reports whether any month of b falls inside [from, to].
func (b Bimestre) Overlaps(from, to Month) bool {
	return !b.Second.Before(from) && !b.First.After(to)
}
