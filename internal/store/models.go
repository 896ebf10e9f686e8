package store

import (
	"strings"
	"time"

	"github.com/DoyleJ11/avalon-companion-backend/internal/character"
	"github.com/DoyleJ11/avalon-companion-backend/internal/engine"
)

// RoomRecord is the durable mirror of one room. Reveals are not stored; they
// are derived from the players' characters when a started room is loaded.
type RoomRecord struct {
	Code               string `gorm:"primaryKey;size:6"`
	Status             string `gorm:"size:32;not null"`
	OptionalCharacters string `gorm:"not null;default:''"` // comma separated, catalog order
	Round              int    `gorm:"not null;default:0"`
	Version            int    `gorm:"not null;default:0"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Players []PlayerRecord `gorm:"foreignKey:RoomCode;references:Code;constraint:OnDelete:CASCADE"`
}

func (RoomRecord) TableName() string { return "rooms" }

type PlayerRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	RoomCode  string `gorm:"size:6;index;not null"`
	Seat      int    `gorm:"not null"` // position in the room's player list
	Name      string `gorm:"size:100;not null"`
	IsHost    bool   `gorm:"not null;default:false"`
	Character string `gorm:"size:32"`
	JoinedAt  time.Time
}

func (PlayerRecord) TableName() string { return "room_players" }

// Room is a room as loaded from the database.
type Room struct {
	State   engine.State
	Version int
}

func toRecord(s engine.State, version int) RoomRecord {
	optional := make([]string, len(s.OptionalCharacters))
	for i, name := range s.OptionalCharacters {
		optional[i] = string(name)
	}

	rec := RoomRecord{
		Code:               s.Code,
		Status:             string(s.Status),
		OptionalCharacters: strings.Join(optional, ","),
		Round:              s.Round,
		Version:            version,
		CreatedAt:          s.CreatedAt,
		Players:            make([]PlayerRecord, len(s.Players)),
	}
	for i, p := range s.Players {
		rec.Players[i] = PlayerRecord{
			ID:        p.ID,
			RoomCode:  s.Code,
			Seat:      i,
			Name:      p.Name,
			IsHost:    p.IsHost,
			Character: string(p.Character),
			JoinedAt:  p.JoinedAt,
		}
	}
	return rec
}

// fromRecord expects rec.Players ordered by seat.
func fromRecord(rec RoomRecord) Room {
	s := engine.State{
		Code:               rec.Code,
		Status:             engine.Status(rec.Status),
		OptionalCharacters: []character.Name{},
		Players:            make([]engine.Player, len(rec.Players)),
		Round:              rec.Round,
		CreatedAt:          rec.CreatedAt,
	}
	if rec.OptionalCharacters != "" {
		for _, name := range strings.Split(rec.OptionalCharacters, ",") {
			s.OptionalCharacters = append(s.OptionalCharacters, character.Name(name))
		}
	}
	for i, p := range rec.Players {
		s.Players[i] = engine.Player{
			ID:        p.ID,
			Name:      p.Name,
			IsHost:    p.IsHost,
			Character: character.Name(p.Character),
			JoinedAt:  p.JoinedAt,
		}
	}
	return Room{State: s, Version: rec.Version}
}
