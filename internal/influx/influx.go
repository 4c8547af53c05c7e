// Package influx writes game metrics to InfluxDB, falling back to a gzip
// line-protocol file when the server is disabled or unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/broadside/server/internal/config"
	"github.com/broadside/server/pkg/core"
)

// DefaultServerTag tags status points when no server name is configured.
const DefaultServerTag = "broadside"

// Measurement names.
const (
	MeasurementAttack        = "attack"
	MeasurementMatchFinished = "match_finished"
	MeasurementServerStatus  = "server_status"
)

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Bucket       string
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:    make(map[string]influxdb2_api.WriteAPI),
		IsValid:    false,
		Bucket:     cfg.Bucket,
		Logger:     log,
		BackupPath: backupPath,
		cfg:        cfg,
	}
}

// Connect establishes a connection to InfluxDB. When InfluxDB is disabled or does not
// answer a ping, points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if m.cfg.Enabled {
		m.Client = influxdb2.NewClientWithOptions(
			m.cfg.URL(),
			m.cfg.Token,
			influxdb2.DefaultOptions().
				SetBatchSize(500).
				SetFlushInterval(1000),
		)

		// validate client connection health
		running, err := m.Client.Ping(ctx)
		m.IsValid = err == nil && running
	}

	if !m.IsValid {
		if m.Client != nil {
			m.Client.Close()
			m.Client = nil
		}
		m.Logger.Info().Bool("enabled", m.cfg.Enabled).Str("backupPath", m.BackupPath).
			Msg("InfluxDB not available, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// ensure bucket exists with 90 day retention
	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.Bucket); err != nil {
		m.Logger.Info().Str("bucket", m.Bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", m.Bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates the write API for the configured bucket.
func (m *Manager) CreateWriters() {
	m.Logger.Trace().Str("bucket", m.Bucket).Msg("Creating InfluxDB writer")
	writer := m.Client.WriteAPI(m.cfg.Org, m.Bucket)
	m.Writers[m.Bucket] = writer

	go func(bucketName string, errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Bucket, writer.Errors())

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	// PointToLineProtocol already terminates the line
	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n") + "\n"
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Write writes to the configured bucket and logs failures.
func (m *Manager) Write(point *influxdb2_write.Point) {
	if err := m.WritePoint(context.Background(), m.Bucket, point); err != nil {
		m.Logger.Warn().Err(err).Msg("Failed to write point")
	}
}

// ObserveAttack records one resolved attack.
func (m *Manager) ObserveAttack(matchID string, status core.AttackStatus) {
	m.Write(AttackPoint(matchID, status, time.Now()))
}

// ObserveFinish records a finished match.
func (m *Manager) ObserveFinish(rec *core.MatchRecord) {
	m.Write(FinishPoint(rec))
}

// Close flushes pending writes and closes the client and the backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		if err := m.BackupWriter.Close(); err != nil {
			return fmt.Errorf("close backup writer: %w", err)
		}
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		if err := m.backupFile.Close(); err != nil {
			return fmt.Errorf("close backup file: %w", err)
		}
		m.backupFile = nil
	}
	return nil
}

// AttackPoint builds the point for one resolved attack.
func AttackPoint(matchID string, status core.AttackStatus, at time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementAttack,
		map[string]string{"match": matchID, "status": string(status)},
		map[string]any{"count": 1},
		at,
	)
}

// FinishPoint builds the point for a finished match.
func FinishPoint(rec *core.MatchRecord) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementMatchFinished,
		map[string]string{"winner": rec.WinnerName, "forfeit": fmt.Sprint(rec.Forfeit)},
		map[string]any{
			"shots_first":      rec.ShotsFired[0],
			"shots_second":     rec.ShotsFired[1],
			"duration_seconds": rec.Duration().Seconds(),
		},
		rec.FinishedAt,
	)
}

// Status is a snapshot of server load.
type Status struct {
	Clients int `json:"clients"`
	Users   int `json:"users"`
	Rooms   int `json:"rooms"`
	Matches int `json:"matches"`
}

// StatusPoint builds the server status point, tagged with the server name.
// Line protocol needs at least one tag here: the client writes a comma after the
// measurement name even when the tag set is empty.
func StatusPoint(server string, s Status, at time.Time) *influxdb2_write.Point {
	if server == "" {
		server = DefaultServerTag
	}
	return influxdb2.NewPoint(MeasurementServerStatus,
		map[string]string{"server": server},
		map[string]any{
			"clients": s.Clients,
			"users":   s.Users,
			"rooms":   s.Rooms,
			"matches": s.Matches,
		},
		at,
	)
}
