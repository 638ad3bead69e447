package storage

import (
	"errors"
	"time"
)

// StampLayout is the local-time format the graphing reader expects. It is
// a compatibility constraint, not a design choice.
const StampLayout = "01/02/2006 15:04:05"

// ChannelColumns is the stats schema's measurement columns, in table
// order. Rows may populate any subset.
var ChannelColumns = []string{
	"E-Total",
	"h-Total",
	"Pac",
	"Vac",
	"Fac",
	"Ipv",
	"Vpv",
	"Temperature",
}

var ErrPersistence = errors.New("Storage backend failure")

// StatsRow is one device's committed measurements for one poll cycle.
type StatsRow struct {
	Stamp  string             `json:"stamp"`
	Addr   int                `json:"addr"`
	Values map[string]float64 `json:"values"`
}

// Comment is a free-form operational event.
type Comment struct {
	Stamp string `json:"stamp"`
	Addr  int    `json:"addr"`
	Text  string `json:"comment"`
}

// Storage is the append-only persistence contract. Both appends are
// idempotent at the row level: each call lands exactly one row.
type Storage interface {
	AppendStats(row *StatsRow) error
	AppendComment(c *Comment) error
	QueryStats(start, end time.Time) ([]*StatsRow, error)
	QueryComments(start, end time.Time) ([]*Comment, error)
	Close()
}

func FormatStamp(t time.Time) string {
	return t.Local().Format(StampLayout)
}

func ParseStamp(s string) (time.Time, error) {
	return time.ParseInLocation(StampLayout, s, time.Local)
}
