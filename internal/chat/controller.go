// Package chat mediates the conversation between the user and the
// assistant responder. Replies are produced off the event loop but always
// land in the transcript in the order their prompts were sent.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/assistant"
	"github.com/csheth/pagechat/internal/logx"
	"github.com/csheth/pagechat/internal/session"
)

// DefaultReplyDelay is how long the assistant appears to think.
const DefaultReplyDelay = time.Second

// NewChatNotice is shown after the transcript is cleared.
const NewChatNotice = "Started a new chat with the current PDF"

// ErrUnknownPrompt is returned by SendPrompt for ids the summary lacks.
var ErrUnknownPrompt = errors.New("unknown suggested prompt")

// Options tunes a Controller.
type Options struct {
	// ReplyDelay overrides DefaultReplyDelay; a negative value disables it.
	ReplyDelay time.Duration
	Logger     pslog.Logger
}

// Controller owns the transcript turns of a session.
type Controller struct {
	state     *session.State
	responder assistant.Responder
	delay     time.Duration
	log       pslog.Logger

	mu      sync.Mutex
	epoch   uint64
	nextSeq uint64
	queue   []uint64
	ready   map[uint64]ReplyResult
}

// New returns a Controller appending to state and answering with responder.
func New(state *session.State, responder assistant.Responder, opts Options) *Controller {
	delay := opts.ReplyDelay
	switch {
	case delay == 0:
		delay = DefaultReplyDelay
	case delay < 0:
		delay = 0
	}
	return &Controller{
		state:     state,
		responder: responder,
		delay:     delay,
		log:       logx.Or(opts.Logger),
		epoch:     state.Epoch(),
		ready:     map[uint64]ReplyResult{},
	}
}

// ReplyTicket is an outstanding assistant reply.
type ReplyTicket struct {
	Seq    uint64
	Epoch  uint64
	Prompt string

	delay     time.Duration
	responder assistant.Responder
}

// ReplyResult is the outcome of a ReplyTicket.
type ReplyResult struct {
	Seq   uint64
	Epoch uint64
	Reply string
	Err   error
}

// Run waits out the reply delay and asks the responder.
func (t *ReplyTicket) Run(ctx context.Context) ReplyResult {
	result := ReplyResult{Seq: t.Seq, Epoch: t.Epoch}
	if t.delay > 0 {
		timer := time.NewTimer(t.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		case <-timer.C:
		}
	}
	result.Reply = t.responder.Respond(ctx, t.Prompt)
	return result
}

// Send appends the user's message and returns the reply to dispatch. Blank
// input is ignored and yields nil.
func (c *Controller) Send(text string) *ReplyTicket {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncEpochLocked()
	msg, ok := c.state.AppendIfEpoch(c.epoch, session.SenderUser, text)
	if !ok {
		// The transcript was cleared between the sync and the append.
		c.syncEpochLocked()
		msg = c.state.AppendMessage(session.SenderUser, text)
	}
	c.nextSeq++
	c.queue = append(c.queue, c.nextSeq)
	c.state.SetPendingReplies(len(c.queue))
	c.log.Debug("chat message sent", "message_id", msg.ID, "reply_seq", c.nextSeq)
	return &ReplyTicket{
		Seq:       c.nextSeq,
		Epoch:     c.epoch,
		Prompt:    text,
		delay:     c.delay,
		responder: c.responder,
	}
}

// SendPrompt sends the summary's suggested prompt with the given id.
func (c *Controller) SendPrompt(id string) (*ReplyTicket, error) {
	summary := c.state.Snapshot().Summary
	if summary == nil {
		return nil, ErrUnknownPrompt
	}
	prompt, ok := summary.Prompt(id)
	if !ok {
		return nil, ErrUnknownPrompt
	}
	return c.Send(prompt.Text), nil
}

// Complete records a reply and appends every reply that is now next in
// line. It returns the assistant messages appended by this call.
func (c *Controller) Complete(res ReplyResult) []session.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncEpochLocked()
	if res.Epoch != c.epoch {
		c.log.Debug("reply from previous chat dropped", "reply_seq", res.Seq)
		return nil
	}
	c.ready[res.Seq] = res

	var appended []session.Message
	for len(c.queue) > 0 {
		head, ok := c.ready[c.queue[0]]
		if !ok {
			break
		}
		delete(c.ready, c.queue[0])
		c.queue = c.queue[1:]
		if head.Err != nil {
			c.log.Debug("reply abandoned", "reply_seq", head.Seq, "err", head.Err)
			continue
		}
		if msg, ok := c.state.AppendIfEpoch(c.epoch, session.SenderAssistant, head.Reply); ok {
			appended = append(appended, msg)
		}
	}
	c.state.SetPendingReplies(len(c.queue))
	return appended
}

// SendAndWait sends text and blocks until its reply is in the transcript.
func (c *Controller) SendAndWait(ctx context.Context, text string) ([]session.Message, error) {
	ticket := c.Send(text)
	if ticket == nil {
		return nil, nil
	}
	res := ticket.Run(ctx)
	if res.Err != nil {
		c.Complete(res)
		return nil, res.Err
	}
	return c.Complete(res), nil
}

// StartNew clears the transcript. The open document is untouched and
// replies still in flight are dropped when they arrive.
func (c *Controller) StartNew() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ClearTranscript()
	c.syncEpochLocked()
	c.log.Info("new chat started", "epoch", c.epoch)
}

// Pending reports how many replies are outstanding.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncEpochLocked()
	return len(c.queue)
}

func (c *Controller) syncEpochLocked() {
	epoch := c.state.Epoch()
	if epoch == c.epoch {
		return
	}
	c.epoch = epoch
	c.queue = nil
	clear(c.ready)
}
