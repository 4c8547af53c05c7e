package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broadside/server/internal/influx"
)

type fixedCount int

func (c fixedCount) Len() int { return int(c) }

type fakeClients struct{ total, users int }

func (c fakeClients) Len() int   { return c.total }
func (c fakeClients) Users() int { return c.users }

type fakeBackend struct{}

func (fakeBackend) GetLastDBWriteDuration() time.Duration { return 1500 * time.Microsecond }
func (fakeBackend) PendingMatches() int                   { return 7 }

type pointRecorder struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
}

func (r *pointRecorder) Write(p *influxdb2_write.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, p)
}

func (r *pointRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

func TestSnapshot(t *testing.T) {
	s := NewService(Dependencies{
		Clients: fakeClients{total: 4, users: 3},
		Rooms:   fixedCount(1),
		Matches: fixedCount(2),
		Backend: fakeBackend{},
	})

	st := s.Snapshot()
	assert.Equal(t, influx.Status{Clients: 4, Users: 3, Rooms: 1, Matches: 2}, st.Status)
	assert.Equal(t, 1.5, st.LastWriteDurationMs)
	assert.Equal(t, 7, st.PendingRecords)
}

func TestSnapshot_NoDependencies(t *testing.T) {
	st := NewService(Dependencies{Backend: struct{}{}}).Snapshot()
	assert.Zero(t, st.Status)
	assert.Zero(t, st.PendingRecords)
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	points := &pointRecorder{}
	s := NewService(Dependencies{
		Clients:    fakeClients{total: 2, users: 2},
		Rooms:      fixedCount(0),
		Matches:    fixedCount(1),
		Influx:     points,
		ServerName: "eu-1",
		StatusPath: path,
		Interval:   10 * time.Millisecond,
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return points.len() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, 2, st.Clients)
	assert.Equal(t, 1, st.Matches)

	assert.Equal(t, influx.MeasurementServerStatus, points.points[0].Name())
	require.Len(t, points.points[0].TagList(), 1)
	assert.Equal(t, "server", points.points[0].TagList()[0].Key)
	assert.Equal(t, "eu-1", points.points[0].TagList()[0].Value)
}

func TestStart_BadStatusPath(t *testing.T) {
	s := NewService(Dependencies{StatusPath: filepath.Join(t.TempDir(), "missing", "status.json")})
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}
