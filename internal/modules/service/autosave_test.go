package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type commitRecorder struct {
	mu      sync.Mutex
	commits []OrientationUpdates
	names   []string
}

func (c *commitRecorder) fn() AutosaveCommitFunc {
	return func(ctx context.Context, updates ProjectUpdates, data *OrientationUpdates, orientation model.Orientation) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.commits = append(c.commits, *data)
		if updates.Name != nil {
			c.names = append(c.names, *updates.Name)
		}
		return nil
	}
}

func (c *commitRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commits)
}

func snapshotWithControls(names ...string) AutosaveSnapshot {
	controls := make([]model.Control, 0, len(names))
	for _, n := range names {
		controls = append(controls, model.Control{Inputs: model.SingleInput(n)})
	}
	return AutosaveSnapshot{
		Name:        "Skin",
		Identifier:  "com.example.skin",
		Controls:    controls,
		Screens:     []model.Screen{},
		Orientation: model.OrientationPortrait,
	}
}

func TestAutosave_DebouncesToSingleCommit(t *testing.T) {
	rec := &commitRecorder{}
	a := NewAutosaveCoordinator(80*time.Millisecond, rec.fn(), zap.NewNop())
	defer a.Close()

	// Three mutations inside the delay window collapse into one commit
	// carrying the last mutation's data.
	a.Notify(snapshotWithControls("a"))
	time.Sleep(20 * time.Millisecond)
	a.Notify(snapshotWithControls("a", "b"))
	time.Sleep(20 * time.Millisecond)
	a.Notify(snapshotWithControls("a", "b", "start"))

	assert.Equal(t, 0, rec.count())

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.commits, 1)
	assert.Len(t, rec.commits[0].Controls, 3)
}

func TestAutosave_UnchangedSnapshotIsNoop(t *testing.T) {
	rec := &commitRecorder{}
	a := NewAutosaveCoordinator(30*time.Millisecond, rec.fn(), zap.NewNop())
	defer a.Close()

	a.Notify(snapshotWithControls("a"))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	// Same snapshot again: no timer armed, no second commit.
	a.Notify(snapshotWithControls("a"))
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestAutosave_FlushOnClose(t *testing.T) {
	rec := &commitRecorder{}
	a := NewAutosaveCoordinator(time.Hour, rec.fn(), zap.NewNop())

	a.Notify(snapshotWithControls("a"))
	assert.Equal(t, 0, rec.count())

	a.Close()
	assert.Equal(t, 1, rec.count())

	// Closed coordinators drop further notifications.
	a.Notify(snapshotWithControls("a", "b"))
	a.Close()
	assert.Equal(t, 1, rec.count())
}

func TestAutosave_StaleTimerDoesNotCommitSupersededSnapshot(t *testing.T) {
	rec := &commitRecorder{}
	a := NewAutosaveCoordinator(time.Hour, rec.fn(), zap.NewNop())
	defer a.Close()

	// First mutation arms generation 1; the second supersedes it with
	// generation 2. A callback from the superseded timer must not commit
	// the new pending ahead of its own delay window.
	a.Notify(snapshotWithControls("a"))
	a.Notify(snapshotWithControls("a", "b"))

	a.fire(1)
	assert.Equal(t, 0, rec.count())

	a.fire(2)
	require.Equal(t, 1, rec.count())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.commits[0].Controls, 2)
}

func TestAutosave_CloseWithoutPendingDoesNotCommit(t *testing.T) {
	rec := &commitRecorder{}
	a := NewAutosaveCoordinator(time.Hour, rec.fn(), zap.NewNop())
	a.Close()
	assert.Equal(t, 0, rec.count())
}
