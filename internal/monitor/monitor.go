// Package monitor periodically snapshots server load to a status file and InfluxDB.
package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/broadside/server/internal/influx"
)

// Counter reports a current size.
type Counter interface {
	Len() int
}

// UserCounter reports how many connections have registered.
type UserCounter interface {
	Users() int
}

// PointWriter receives the status point.
type PointWriter interface {
	Write(point *influxdb2_write.Point)
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// PendingProvider is an optional interface for backends with a write queue.
type PendingProvider interface {
	PendingMatches() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Clients interface {
		Counter
		UserCounter
	}
	Rooms   Counter
	Matches Counter
	// Backend is the storage backend; its optional metrics are reported when present.
	Backend    any
	Influx     PointWriter
	// ServerName tags the status point.
	ServerName string
	StatusPath string
	Interval   time.Duration
	Logger     *slog.Logger
}

// Status is one snapshot.
type Status struct {
	Time time.Time `json:"time"`
	influx.Status
	LastWriteDurationMs float64 `json:"lastWriteDurationMs"`
	PendingRecords      int     `json:"pendingRecords"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot returns the current server status
func (s *Service) Snapshot() Status {
	st := Status{Time: time.Now()}
	if s.deps.Clients != nil {
		st.Clients = s.deps.Clients.Len()
		st.Users = s.deps.Clients.Users()
	}
	if s.deps.Rooms != nil {
		st.Rooms = s.deps.Rooms.Len()
	}
	if s.deps.Matches != nil {
		st.Matches = s.deps.Matches.Len()
	}
	if p, ok := s.deps.Backend.(DBWriteDurationProvider); ok {
		st.LastWriteDurationMs = float64(p.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	if p, ok := s.deps.Backend.(PendingProvider); ok {
		st.PendingRecords = p.PendingMatches()
	}
	return st
}

// writeStatus replaces the status file contents with st.
func writeStatus(f *os.File, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		var err error
		statusFile, err = os.Create(s.deps.StatusPath)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("create status file: %w", err)
		}
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				st := s.Snapshot()

				if statusFile != nil {
					if err := writeStatus(statusFile, st); err != nil {
						logger.Error("Error writing status file", "error", err)
					}
				}
				if s.deps.Influx != nil {
					s.deps.Influx.Write(influx.StatusPoint(s.deps.ServerName, st.Status, st.Time))
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
