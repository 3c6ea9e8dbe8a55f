package service

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/skinforge/skinforge/internal/modules/model"
	"go.uber.org/zap"
)

// AutosaveSnapshot is the set of watched editor fields. Two snapshots are
// considered equal when their serialized forms are byte-identical.
type AutosaveSnapshot struct {
	Name        string            `json:"name"`
	Identifier  string            `json:"identifier"`
	Controls    []model.Control   `json:"controls"`
	Screens     []model.Screen    `json:"screens"`
	MenuInsets  model.MenuInsets  `json:"menuInsets"`
	Orientation model.Orientation `json:"orientation,omitempty"`
}

// AutosaveCommitFunc persists a debounced snapshot. Wired to
// ProjectService.SaveProjectWithOrientation in the container.
type AutosaveCommitFunc func(ctx context.Context, updates ProjectUpdates, data *OrientationUpdates, orientation model.Orientation) error

const commitTimeout = 10 * time.Second

// AutosaveCoordinator debounces high-frequency editing mutations into
// periodic durable writes. It owns a single cancellable timer slot, so
// teardown can deterministically cancel and flush. Cancel only prevents a
// pending, not-yet-issued commit; it cannot abort an in-flight write.
type AutosaveCoordinator struct {
	mu            sync.Mutex
	delay         time.Duration
	timer         *time.Timer
	gen           uint64
	lastCommitted []byte
	pending       *pendingSave
	commit        AutosaveCommitFunc
	log           *zap.Logger
	closed        bool
}

type pendingSave struct {
	serialized  []byte
	snapshot    AutosaveSnapshot
	orientation model.Orientation
}

func NewAutosaveCoordinator(delay time.Duration, commit AutosaveCommitFunc, log *zap.Logger) *AutosaveCoordinator {
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &AutosaveCoordinator{delay: delay, commit: commit, log: log}
}

// Notify records an editor mutation. An unchanged snapshot is a no-op;
// otherwise the delay timer is (re)armed and the previous pending write, if
// any, is superseded.
func (a *AutosaveCoordinator) Notify(snap AutosaveSnapshot) {
	serialized, err := sonic.Marshal(snap)
	if err != nil {
		a.log.Sugar().Warnw("failed to serialize autosave snapshot", "err", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	if string(serialized) == string(a.lastCommitted) {
		return
	}

	a.pending = &pendingSave{
		serialized:  serialized,
		snapshot:    snap,
		orientation: snap.Orientation,
	}

	// Stop() can lose the race with an already-fired timer whose callback
	// has not yet taken the lock. The generation stamp makes such a stale
	// callback a no-op instead of an early commit of the new pending.
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(gen) })
}

func (a *AutosaveCoordinator) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen || a.closed {
		a.mu.Unlock()
		return
	}
	p := a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()

	if p != nil {
		a.commitPending(p)
	}
}

// Close cancels any armed timer and, if an uncommitted snapshot is pending,
// commits it immediately. No debounced write is lost on teardown.
func (a *AutosaveCoordinator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	p := a.pending
	a.pending = nil
	changed := p != nil && string(p.serialized) != string(a.lastCommitted)
	a.mu.Unlock()

	if changed {
		a.commitPending(p)
	}
}

func (a *AutosaveCoordinator) commitPending(p *pendingSave) {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()

	updates := ProjectUpdates{
		Name:       &p.snapshot.Name,
		Identifier: &p.snapshot.Identifier,
	}
	insets := p.snapshot.MenuInsets
	data := OrientationUpdates{
		Controls:   p.snapshot.Controls,
		Screens:    p.snapshot.Screens,
		MenuInsets: &insets,
	}

	if err := a.commit(ctx, updates, &data, p.orientation); err != nil {
		a.log.Sugar().Errorw("autosave commit failed", "err", err)
		return
	}

	a.mu.Lock()
	a.lastCommitted = p.serialized
	a.mu.Unlock()
}
