package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"wabridge/internal/domain"
)

// Poller watches one conversation and answers new messages from the external
// address with a fixed reply. It reacts at most once per distinct newest
// message: the SID of the last answered message is the cursor.
type Poller struct {
	api             domain.ConversationAPI
	store           domain.CursorStore
	conversationSID string
	externalAddress string
	replyAuthor     string
	replyBody       string
	interval        time.Duration
	logger          *slog.Logger

	cursor string

	ticks   atomic.Int64
	replies atomic.Int64
}

type PollerConfig struct {
	API             domain.ConversationAPI
	Store           domain.CursorStore
	ConversationSID string
	ExternalAddress string
	ReplyAuthor     string
	ReplyBody       string
	Interval        time.Duration
	Logger          *slog.Logger
}

func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		api:             cfg.API,
		store:           cfg.Store,
		conversationSID: cfg.ConversationSID,
		externalAddress: cfg.ExternalAddress,
		replyAuthor:     cfg.ReplyAuthor,
		replyBody:       cfg.ReplyBody,
		interval:        cfg.Interval,
		logger:          cfg.Logger.With("component", "poller"),
	}
}

// Stats is a snapshot of the poller's counters.
type Stats struct {
	Ticks   int64 `json:"ticks"`
	Replies int64 `json:"replies"`
}

func (p *Poller) Stats() Stats {
	return Stats{
		Ticks:   p.ticks.Load(),
		Replies: p.replies.Load(),
	}
}

// Run polls the conversation until ctx is cancelled. Cancellation returns
// nil; any provider error aborts the loop and is returned.
func (p *Poller) Run(ctx context.Context) error {
	cursor, err := p.store.LoadCursor(ctx, p.conversationSID)
	if err != nil {
		return fmt.Errorf("load poll cursor: %w", err)
	}
	p.cursor = cursor

	p.logger.Info("waiting for replies",
		"conversation", p.conversationSID,
		"interval", p.interval,
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// pollOnce fetches the message list and reacts to the newest message when it
// is unseen and authored by the external address.
func (p *Poller) pollOnce(ctx context.Context) error {
	p.ticks.Add(1)

	messages, err := p.api.ListMessages(ctx, p.conversationSID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	last := messages[len(messages)-1]
	if last.SID == p.cursor || last.Author != p.externalAddress {
		return nil
	}

	p.logger.Info("message received", "sid", last.SID, "body", last.Body)

	if _, err := p.api.CreateMessage(ctx, p.conversationSID, p.replyAuthor, p.replyBody); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	p.replies.Add(1)
	p.logger.Info("reply sent", "body", p.replyBody)

	p.cursor = last.SID
	if err := p.store.SaveCursor(ctx, p.conversationSID, last.SID); err != nil {
		return fmt.Errorf("save poll cursor: %w", err)
	}
	return nil
}
