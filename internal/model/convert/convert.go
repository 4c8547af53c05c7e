// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/broadside/server/internal/model"
	"github.com/broadside/server/pkg/core"
	"gorm.io/datatypes"
)

// CoreToUser converts a core.User to a GORM User.
// The core ID is the public UUID; the GORM ID is the database key.
func CoreToUser(u core.User) model.User {
	return model.User{
		UUID:         u.ID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Wins:         u.Wins,
		CreatedAt:    u.CreatedAt,
	}
}

// UserToCore converts a GORM User to a core.User.
func UserToCore(u model.User) core.User {
	return core.User{
		ID:           u.UUID,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Wins:         u.Wins,
		CreatedAt:    u.CreatedAt,
	}
}

// listJSON encodes a slice as a JSON array, never null.
func listJSON[T any](list []T) (datatypes.JSON, error) {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// listFromJSON decodes a JSON array. Empty or malformed input yields nil.
func listFromJSON[T any](data datatypes.JSON) []T {
	if len(data) == 0 {
		return nil
	}
	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	return list
}

// CoreToMatch converts a core.MatchRecord to a GORM Match.
func CoreToMatch(r core.MatchRecord) (model.Match, error) {
	first, err := listJSON(r.Fleets[0])
	if err != nil {
		return model.Match{}, fmt.Errorf("encode first fleet: %w", err)
	}
	second, err := listJSON(r.Fleets[1])
	if err != nil {
		return model.Match{}, fmt.Errorf("encode second fleet: %w", err)
	}
	killsFirst, err := listJSON(r.Kills[0])
	if err != nil {
		return model.Match{}, fmt.Errorf("encode first kills: %w", err)
	}
	killsSecond, err := listJSON(r.Kills[1])
	if err != nil {
		return model.Match{}, fmt.Errorf("encode second kills: %w", err)
	}
	return model.Match{
		ID:          r.ID,
		MatchID:     r.MatchID,
		WinnerName:  r.WinnerName,
		LoserName:   r.LoserName,
		Forfeit:     r.Forfeit,
		ShotsFirst:  r.ShotsFired[0],
		ShotsSecond: r.ShotsFired[1],
		FleetFirst:  first,
		FleetSecond: second,
		KillsFirst:  killsFirst,
		KillsSecond: killsSecond,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}, nil
}

// MatchToCore converts a GORM Match to a core.MatchRecord.
// Malformed fleet or kill JSON yields an empty list.
func MatchToCore(m model.Match) core.MatchRecord {
	return core.MatchRecord{
		ID:         m.ID,
		MatchID:    m.MatchID,
		WinnerName: m.WinnerName,
		LoserName:  m.LoserName,
		Forfeit:    m.Forfeit,
		ShotsFired: [2]int{m.ShotsFirst, m.ShotsSecond},
		Fleets: [2][]core.ShipSpec{
			listFromJSON[core.ShipSpec](m.FleetFirst),
			listFromJSON[core.ShipSpec](m.FleetSecond),
		},
		Kills: [2][]core.Kill{
			listFromJSON[core.Kill](m.KillsFirst),
			listFromJSON[core.Kill](m.KillsSecond),
		},
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
}
