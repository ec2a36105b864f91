package model

import "time"

// MatchRecord is the audit row written when a matched pair is finalized
// and removed from the board. It is history only; the live board is never
// reconstructed from it.
type MatchRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Player    string `gorm:"index;not null"`
	Label     string `gorm:"not null"`
	FirstRow  int
	FirstCol  int
	SecondRow int
	SecondCol int
	CreatedAt time.Time
}
