package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/logx"
)

type jobKind string

type jobStatus string

const (
	jobKindLoad   jobKind = "load"
	jobKindRender jobKind = "render"
	jobKindReply  jobKind = "reply"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusCancelled jobStatus = "cancelled"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

// jobBus runs blocking tickets off the event loop and reports their start
// and completion back to it.
type jobBus struct {
	counter int64
	ctx     context.Context
	log     pslog.Logger
}

func newJobBus(ctx context.Context, log pslog.Logger) *jobBus {
	if ctx == nil {
		ctx = context.Background()
	}
	return &jobBus{ctx: ctx, log: logx.Or(log)}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		log := logx.WithJob(b.log, string(kind), id)
		payload, err := runner(b.ctx)
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		switch {
		case err == nil:
			snapshot.Status = jobStatusSucceeded
		case document.IsCancelled(err):
			snapshot.Status = jobStatusCancelled
		default:
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		if snapshot.Status == jobStatusFailed {
			log.Warn("job finished", "status", snapshot.Status, "duration", snapshot.Duration, "err", err)
		} else {
			log.Debug("job finished", "status", snapshot.Status, "duration", snapshot.Duration)
		}
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}

	return tea.Sequence(startCmd, runCmd)
}
