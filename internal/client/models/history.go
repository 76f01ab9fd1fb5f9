// Package models defines the records kept in the client's local database.
package models

import "time"

type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// HistoryEntry records one send or fetch made from this machine.
type HistoryEntry struct {
	ID         int64
	TransferID string
	Direction  Direction
	// Link is the full share link, key fragment included. Only sends keep it.
	Link      string
	FileNames []string
	TotalSize int64
	// Location is the output directory of a fetch.
	Location  string
	ExpiresAt *time.Time
	CreatedAt time.Time
}
