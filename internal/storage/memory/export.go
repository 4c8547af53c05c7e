// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/broadside/server/pkg/core"
)

// HistoryExport is the root JSON structure of an exported history file.
type HistoryExport struct {
	ExportedAt time.Time   `json:"exportedAt"`
	Matches    []MatchJSON `json:"matches"`
}

// MatchJSON is one finished match.
type MatchJSON struct {
	ID         uint      `json:"id"`
	MatchID    string    `json:"matchId"`
	Winner     string    `json:"winner"`
	Loser      string    `json:"loser"`
	Forfeit    bool      `json:"forfeit"`
	ShotsFired [2]int    `json:"shotsFired"`
	Fleets     [2][]any  `json:"fleets"`
	Kills      [2][]any  `json:"kills"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMs int64     `json:"durationMs"`
}

// exportJSON writes the history to a (optionally gzipped) JSON file. b.mu must be held.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := export.ExportedAt.Format("20060102_150405")
	filename := fmt.Sprintf("history_%s.json", timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() HistoryExport {
	export := HistoryExport{
		ExportedAt: time.Now().UTC(),
		Matches:    make([]MatchJSON, 0, len(b.matches)),
	}
	for _, rec := range b.matches {
		m := MatchJSON{
			ID:         rec.ID,
			MatchID:    rec.MatchID,
			Winner:     rec.WinnerName,
			Loser:      rec.LoserName,
			Forfeit:    rec.Forfeit,
			ShotsFired: rec.ShotsFired,
			StartedAt:  rec.StartedAt,
			FinishedAt: rec.FinishedAt,
			DurationMs: rec.Duration().Milliseconds(),
		}
		for slot, fleet := range rec.Fleets {
			m.Fleets[slot] = make([]any, 0, len(fleet))
			for _, ship := range fleet {
				m.Fleets[slot] = append(m.Fleets[slot], shipTuple(ship))
			}
		}
		// each kill is [ship, [[x, y], ...]]
		for slot, kills := range rec.Kills {
			m.Kills[slot] = make([]any, 0, len(kills))
			for _, k := range kills {
				cleared := make([][]int, 0, len(k.Cleared))
				for _, p := range k.Cleared {
					cleared = append(cleared, []int{p.X, p.Y})
				}
				m.Kills[slot] = append(m.Kills[slot], []any{shipTuple(k.Ship), cleared})
			}
		}
		export.Matches = append(export.Matches, m)
	}
	return export
}

func shipTuple(ship core.ShipSpec) []any {
	return []any{
		[]int{ship.Position.X, ship.Position.Y},
		ship.Direction,
		ship.Length,
		ship.Type,
	}
}

// ExportedFilePath returns the path of the last export, or "" if none was written.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(v); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}
