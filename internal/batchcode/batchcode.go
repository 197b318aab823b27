package batchcode

import (
	"fmt"
	"time"
)

// Prefix starts every generated lot code.
const Prefix = "LOT"

// Timestamp holds the local wall-clock fields a lot code is built from.
type Timestamp struct {
	Year   int
	Month  int // 1-12
	Day    int
	Hour   int
	Minute int
}

func FromTime(t time.Time) Timestamp {
	return Timestamp{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// Format renders LOT + YYYY + MM + DD + hh + mm, each field zero padded.
func Format(ts Timestamp) string {
	return fmt.Sprintf("%s%04d%02d%02d%02d%02d", Prefix, ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute)
}

// Generator produces lot codes from a clock in a fixed location.
type Generator struct {
	Now      func() time.Time
	Location *time.Location
}

func NewGenerator(loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{Now: time.Now, Location: loc}
}

// Next returns the lot code for the current minute.
func (g *Generator) Next() string {
	return Format(FromTime(g.Now().In(g.Location)))
}

// Digits returns the timestamp part of a code without the prefix,
// used to number import and export orders.
func Digits(ts Timestamp) string {
	return Format(ts)[len(Prefix):]
}
