package server

import (
	"fmt"
	"math/rand"
	"time"
)

// Temperature bounds reported by SystemFacts, in degrees Celsius.
const (
	MinTemperature = -50
	MaxTemperature = 50
)

// FactProvider answers recognised commands with plaintext.
type FactProvider interface {
	Fact(cmd Command) (string, error)
}

// SystemFacts reads the local clock and makes up a temperature.
// Zero fields fall back to time.Now and math/rand.
type SystemFacts struct {
	Now  func() time.Time
	IntN func(n int) int
}

// Fact implements FactProvider.
func (f SystemFacts) Fact(cmd Command) (string, error) {
	switch cmd {
	case CommandTime:
		return FormatTime(f.now()), nil
	case CommandDate:
		return FormatDate(f.now()), nil
	case CommandTemp:
		intN := f.IntN
		if intN == nil {
			intN = rand.Intn
		}
		return FormatTemperature(MinTemperature + intN(MaxTemperature-MinTemperature+1)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (f SystemFacts) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// FormatTime renders the time of day as HH:MM:SS.ffffff. The fraction is
// left out when the microsecond is zero.
func FormatTime(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("15:04:05")
	}
	return t.Format("15:04:05.000000")
}

// FormatDate renders the date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatTemperature renders degrees Celsius, e.g. "-7°C".
func FormatTemperature(celsius int) string {
	return fmt.Sprintf("%d°C", celsius)
}
