package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ServerInfo{},
	&User{},
	&Match{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ServerInfo describes the server instance. One row is created on first setup.
type ServerInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Website     string `json:"website" gorm:"size:255"`
}

func (*ServerInfo) TableName() string {
	return "server_infos"
}

////////////////////////
// GAME MODELS
////////////////////////

// User is a registered player account.
type User struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	UUID         string    `json:"uuid" gorm:"size:36;uniqueIndex"`
	Name         string    `json:"name" gorm:"size:127;uniqueIndex"`
	PasswordHash []byte    `json:"-"`
	Wins         int       `json:"wins" gorm:"default:0;index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (*User) TableName() string {
	return "users"
}

// Match is the history row of one finished match. Fleets hold the submitted
// placements as JSON arrays of ship specs; kills hold the ships each side sank
// with the perimeter cells cleared around them.
type Match struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID     string         `json:"matchId" gorm:"size:36;uniqueIndex"`
	WinnerName  string         `json:"winnerName" gorm:"size:127;index"`
	LoserName   string         `json:"loserName" gorm:"size:127;index"`
	Forfeit     bool           `json:"forfeit" gorm:"default:false"`
	ShotsFirst  int            `json:"shotsFirst"`
	ShotsSecond int            `json:"shotsSecond"`
	FleetFirst  datatypes.JSON `json:"fleetFirst" gorm:"default:'[]'"`
	FleetSecond datatypes.JSON `json:"fleetSecond" gorm:"default:'[]'"`
	KillsFirst  datatypes.JSON `json:"killsFirst" gorm:"default:'[]'"`
	KillsSecond datatypes.JSON `json:"killsSecond" gorm:"default:'[]'"`
	StartedAt   time.Time      `json:"startedAt" gorm:"NOT NULL;"`
	FinishedAt  time.Time      `json:"finishedAt" gorm:"NOT NULL;index"`
}

func (*Match) TableName() string {
	return "matches"
}
