package syncengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mlevan/parley/src/chatapi"
	"github.com/mlevan/parley/src/chatmsg"
	"github.com/mlevan/parley/src/convstore"
)

// IdentityProvider reports whether a sync identity (authenticated session or
// anonymous visitor id) is available. Without one the engine stays in
// local-only mode and never enqueues deliveries.
type IdentityProvider interface {
	CanSync() bool
}

// Config holds the collaborators of a sync engine.
type Config struct {
	Store    *chatmsg.Store
	DB       *convstore.DB
	Service  chatapi.Service
	Identity IdentityProvider
	Clock    Clock
	Logger   *slog.Logger
	Notifier Notifier

	// OnListRefresh is invoked after the first successful creation of a
	// conversation on the server, once per creation, so the UI can refresh
	// its conversation list. It fires at creation time, not when the
	// delivery that triggered the creation completes.
	OnListRefresh func()

	// Model is the model name stamped onto lazily created conversations
	// and sent to the server on conversation creation.
	Model string

	// Endpoint is a custom endpoint hint passed through on conversation
	// creation when the user has one established.
	Endpoint string
}

// Engine owns the pending sync queue, the local conversation cache and the
// active message store, and drains the queue against the remote conversation
// service. All queue and cache mutation flows through its methods; the
// single-flight guard around the drain loop is the only concurrency control
// the design needs beyond the internal mutexes.
type Engine struct {
	store    *chatmsg.Store
	db       *convstore.DB
	service  chatapi.Service
	identity IdentityProvider
	clock    Clock
	logger   *slog.Logger
	notifier Notifier
	queue    *Queue

	onListRefresh func()
	model         string
	endpoint      string

	mu        sync.Mutex
	activeID  string // local id of the active conversation, "" when none
	running   bool   // single-flight guard for the drain loop
	syncing   bool   // user-visible "syncing in progress" indicator
	wakeTimer Timer  // pending wake-up for an ineligible head item
	stopped   bool
}

// New creates a sync engine. Store, DB and Service are required; the rest
// default to real implementations.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewClock()
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		store:         cfg.Store,
		db:            cfg.DB,
		service:       cfg.Service,
		identity:      cfg.Identity,
		clock:         clock,
		logger:        logger.With("component", "sync_engine"),
		notifier:      notifier,
		queue:         NewQueue(),
		onListRefresh: cfg.OnListRefresh,
		model:         cfg.Model,
		endpoint:      cfg.Endpoint,
	}
}

// ActiveConversationID returns the local id of the active conversation, or
// "" when none exists yet.
func (e *Engine) ActiveConversationID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeID
}

// Syncing reports whether queue draining is in progress or pending.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// PendingCount returns the number of queued deliveries.
func (e *Engine) PendingCount() int {
	return e.queue.Len()
}

// Store returns the message store for the active conversation.
func (e *Engine) Store() *chatmsg.Store {
	return e.store
}

// Stop cancels any pending wake-up timer. In-flight deliveries complete; the
// queue is not persisted.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	if e.wakeTimer != nil {
		e.wakeTimer.Stop()
		e.wakeTimer = nil
	}
}

// ProduceMessage appends a message to the message store, mirrors it into the
// active local conversation (creating one lazily on the first message), and
// enqueues it for delivery unless the engine is in local-only mode. The call
// never blocks on the network.
func (e *Engine) ProduceMessage(ctx context.Context, msg *chatmsg.Message) error {
	e.store.Append(msg)

	conv, err := e.ensureActiveConversation(ctx)
	if err != nil {
		return err
	}

	messages, err := conv.Messages()
	if err != nil {
		return err
	}
	messages = append(messages, msg)
	if err := conv.SetMessages(messages); err != nil {
		return err
	}
	if conv.Title == "" {
		conv.Title = DeriveTitle(messages)
	}
	if err := convstore.SaveConversation(ctx, e.db.DB(), conv); err != nil {
		return err
	}

	if e.identity != nil && !e.identity.CanSync() {
		e.logger.Debug("local-only mode, skipping enqueue", "message_id", msg.ID)
		return nil
	}

	e.queue.Enqueue(msg.Clone(), conv.ID, e.clock.Now())
	e.Kick()
	return nil
}

// FinalizeLastMessage replaces the last message's parts, error flag and
// thinking duration in both the message store and the active cached
// conversation. This is the single permitted in-place message mutation,
// used to finalize a streaming response.
func (e *Engine) FinalizeLastMessage(ctx context.Context, parts []chatmsg.Part, isError bool, thinking time.Duration) error {
	if !e.store.FinalizeLast(parts, isError, thinking) {
		return errors.New("no message to finalize")
	}

	e.mu.Lock()
	activeID := e.activeID
	e.mu.Unlock()
	if activeID == "" {
		return nil
	}

	conv, err := convstore.GetConversation(ctx, e.db.DB(), activeID)
	if err != nil {
		return err
	}
	messages, err := conv.Messages()
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]
	last.Parts = parts
	last.IsError = isError
	last.ThinkingDuration = thinking
	if err := conv.SetMessages(messages); err != nil {
		return err
	}
	return convstore.SaveConversation(ctx, e.db.DB(), conv)
}

// NewConversation clears the active conversation pointer and the message
// store. The next produced message lazily creates a fresh local conversation.
func (e *Engine) NewConversation() {
	e.mu.Lock()
	e.activeID = ""
	e.mu.Unlock()
	e.store.Clear()
}

// SwitchConversation makes the given cached conversation active and loads
// its messages into the message store.
func (e *Engine) SwitchConversation(ctx context.Context, localID string) error {
	conv, err := convstore.GetConversation(ctx, e.db.DB(), localID)
	if err != nil {
		return err
	}
	messages, err := conv.Messages()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.activeID = conv.ID
	e.mu.Unlock()
	e.store.Reset(messages)

	return e.saveActivePointer(ctx, conv.ID)
}

// DeleteConversation removes a conversation from the cache, drops any queued
// deliveries that reference it, and clears the active pointer if it was
// active. When the conversation has a server id the remote record is deleted
// best-effort. Safe to call while a drain is mid-flight: an in-flight append
// may still land on the server, which is acceptable for an append-only
// record.
func (e *Engine) DeleteConversation(ctx context.Context, localID string) error {
	conv, err := convstore.GetConversation(ctx, e.db.DB(), localID)
	if err != nil {
		return err
	}

	removed := e.queue.RemoveConversation(localID)
	if removed > 0 {
		e.logger.Debug("dropped queued deliveries for deleted conversation",
			"conversation_id", localID, "count", removed)
	}

	if err := convstore.DeleteConversation(ctx, e.db.DB(), localID); err != nil {
		return err
	}

	e.mu.Lock()
	wasActive := e.activeID == localID
	if wasActive {
		e.activeID = ""
	}
	e.mu.Unlock()
	if wasActive {
		e.store.Clear()
		if err := e.saveActivePointer(ctx, ""); err != nil {
			e.logger.Warn("failed to clear active conversation pointer", "error", err)
		}
	}

	if conv.HasServerID() {
		if err := e.service.DeleteConversation(ctx, *conv.ServerID); err != nil {
			e.logger.Warn("remote conversation delete failed",
				"conversation_id", localID, "server_id", *conv.ServerID, "error", err)
		}
	}
	return nil
}

// EnqueueUnsynced scans the cache for messages the server has not yet
// acknowledged and queues them for delivery, oldest conversation first so
// per-conversation order is preserved. This backs the recovery path after a
// restart; the pending queue itself is not persisted. Returns the number of
// newly queued messages.
func (e *Engine) EnqueueUnsynced(ctx context.Context) (int, error) {
	if e.identity != nil && !e.identity.CanSync() {
		return 0, nil
	}

	metas, err := convstore.ListConversations(ctx, e.db.DB())
	if err != nil {
		return 0, err
	}

	total := 0
	for i := len(metas) - 1; i >= 0; i-- {
		conv, err := convstore.GetConversation(ctx, e.db.DB(), metas[i].ID)
		if err != nil {
			if errors.Is(err, convstore.ErrNotFound) {
				continue
			}
			return total, err
		}
		if conv.SyncedCount >= conv.MessageCount {
			continue
		}
		messages, err := conv.Messages()
		if err != nil {
			e.logger.Warn("skipping conversation with undecodable messages",
				"conversation_id", conv.ID, "error", err)
			continue
		}
		if conv.SyncedCount > len(messages) {
			continue
		}
		now := e.clock.Now()
		for _, msg := range messages[conv.SyncedCount:] {
			before := e.queue.Len()
			e.queue.Enqueue(msg.Clone(), conv.ID, now)
			if e.queue.Len() > before {
				total++
			}
		}
	}
	return total, nil
}

// Kick starts a drain pass unless one is already running. Re-entrant calls
// while a drain is in progress are no-ops.
func (e *Engine) Kick() {
	e.mu.Lock()
	if e.running || e.stopped {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.syncing = true
	if e.wakeTimer != nil {
		e.wakeTimer.Stop()
		e.wakeTimer = nil
	}
	e.mu.Unlock()

	go e.drain()
}

// Flush synchronously drains the queue to empty, sleeping through backoff
// delays. CLI commands use it to deliver everything before exiting. Items
// that exhaust their retries are dropped as usual, so Flush always
// terminates.
func (e *Engine) Flush(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.stopped {
			e.mu.Unlock()
			return nil
		}
		if e.running {
			// A kicked drain pass is active; yield until it settles.
			e.mu.Unlock()
			if err := e.sleep(ctx, 10*time.Millisecond); err != nil {
				return err
			}
			continue
		}
		e.running = true
		e.syncing = true
		if e.wakeTimer != nil {
			e.wakeTimer.Stop()
			e.wakeTimer = nil
		}
		e.mu.Unlock()

		item, wait, ok := e.queue.EligibleHead(e.clock.Now())
		switch {
		case ok:
			e.deliver(ctx, item)
			e.settle(true)
		case wait > 0:
			e.settle(true)
			if err := e.sleep(ctx, wait); err != nil {
				e.settle(false)
				return err
			}
		default:
			e.settle(false)
			return nil
		}
	}
}

// settle releases the single-flight guard, optionally keeping the syncing
// indicator lit for a caller that will resume immediately.
func (e *Engine) settle(stillSyncing bool) {
	e.mu.Lock()
	e.running = false
	e.syncing = stillSyncing
	e.mu.Unlock()
}

// sleep blocks for d on the engine clock, honoring ctx cancellation.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	done := make(chan struct{})
	t := e.clock.AfterFunc(d, func() { close(done) })
	select {
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	case <-done:
		return nil
	}
}

// drain processes queued items strictly in order until the queue is empty or
// the head item is not yet eligible. Failures never propagate to the caller;
// they resolve into a reschedule or a terminal notification.
func (e *Engine) drain() {
	ctx := context.Background()
	for {
		item, wait, ok := e.queue.EligibleHead(e.clock.Now())
		switch {
		case ok:
			e.deliver(ctx, item)
		case wait > 0:
			// Head not yet eligible: suspend until exactly the remaining
			// wait has elapsed. The syncing indicator stays on; items are
			// still pending.
			e.mu.Lock()
			e.running = false
			if !e.stopped {
				e.wakeTimer = e.clock.AfterFunc(wait, e.Kick)
			}
			e.mu.Unlock()
			return
		default:
			// Queue empty: stop and clear the syncing indicator.
			e.mu.Lock()
			e.running = false
			e.syncing = false
			e.mu.Unlock()
			return
		}
	}
}

// deliver attempts one queued item: resolves the target conversation
// (creating it on the server on first contact), submits the message, and on
// failure applies retry accounting.
func (e *Engine) deliver(ctx context.Context, item *PendingItem) {
	logger := e.logger.With("message_id", item.Message.ID, "conversation_id", item.ConversationID)

	conv, err := convstore.GetConversation(ctx, e.db.DB(), item.ConversationID)
	if err != nil {
		// Conversation deleted while queued; drop the item silently.
		logger.Debug("conversation gone, dropping queued item", "error", err)
		e.queue.Remove(item.Message.ID)
		return
	}

	if !conv.HasServerID() {
		serverID, err := e.createRemote(ctx, conv)
		if err != nil {
			e.handleFailure(item, "conversation creation failed", err, logger)
			return
		}
		conv.ServerID = &serverID
		// The conversation now exists on the server; refresh the list once,
		// regardless of how this delivery ends.
		if e.onListRefresh != nil {
			e.onListRefresh()
		}
	}

	req := &chatapi.AppendMessageRequest{
		Role:               string(item.Message.Role),
		Content:            item.Message.Text(),
		IsThought:          item.Message.IsThought(),
		ThinkingDurationMS: item.Message.ThinkingDuration.Milliseconds(),
	}
	if req.IsThought {
		req.Content = item.Message.ThoughtText()
	}
	for _, img := range item.Message.Images() {
		data := img.Data
		if data == "" && img.AttachmentID != "" {
			att, err := convstore.GetAttachment(ctx, e.db.DB(), img.AttachmentID)
			if err != nil {
				logger.Warn("attachment payload missing, sending without it",
					"attachment_id", img.AttachmentID, "error", err)
				continue
			}
			data = string(att.Data)
		}
		req.Images = append(req.Images, chatapi.ImagePayload{Data: data, MimeType: img.MimeType})
	}

	if _, err := e.service.AppendMessage(ctx, *conv.ServerID, req); err != nil {
		e.handleFailure(item, "message delivery failed", err, logger)
		return
	}

	e.queue.Remove(item.Message.ID)
	if err := convstore.SetSyncedCount(ctx, e.db.DB(), conv.ID, conv.SyncedCount+1); err != nil {
		logger.Warn("failed to update synced count", "error", err)
	}
	logger.Debug("message delivered", "server_id", *conv.ServerID, "attempts", item.Attempts)
}

// createRemote performs the at-most-once conversation creation and stamps
// the returned server identifier onto the local record.
func (e *Engine) createRemote(ctx context.Context, conv *convstore.Conversation) (string, error) {
	resp, err := e.service.CreateConversation(ctx, &chatapi.CreateConversationRequest{
		Title:    conv.Title,
		Model:    conv.Model,
		Endpoint: e.endpoint,
	})
	if err != nil {
		return "", err
	}

	if err := convstore.SetServerID(ctx, e.db.DB(), conv.ID, resp.ID); err != nil {
		if errors.Is(err, convstore.ErrServerIDAlreadySet) {
			// Another path reconciled first; keep the stored id.
			stored, getErr := convstore.GetConversation(ctx, e.db.DB(), conv.ID)
			if getErr == nil && stored.HasServerID() {
				return *stored.ServerID, nil
			}
		}
		return "", err
	}

	e.logger.Info("conversation reconciled",
		"conversation_id", conv.ID, "server_id", resp.ID)
	return resp.ID, nil
}

// handleFailure applies retry accounting for a failed attempt. Every failure
// is treated as transient; the only terminal condition is attempt
// exhaustion, at which point the item is dropped and the user notified once.
// An item no longer in the queue (its conversation was deleted mid-flight)
// gets neither a retry nor a notification.
func (e *Engine) handleFailure(item *PendingItem, what string, err error, logger *slog.Logger) {
	transient := chatapi.IsTransient(err)
	dropped, queued := e.queue.Reschedule(item, e.clock.Now())
	if !queued {
		logger.Debug(what+" for an item no longer queued, ignoring", "error", err)
		return
	}
	if dropped {
		logger.Error(what+", retries exhausted, dropping message",
			"attempts", item.Attempts, "error", err)
		e.notifier.Notify("Message sync failed, check your connection.")
		return
	}
	logger.Warn(what+", will retry",
		"attempts", item.Attempts,
		"next_retry_at", item.NextRetryAt,
		"transient", transient,
		"error", err)
}

// ensureActiveConversation returns the active cached conversation, creating
// one lazily when no active conversation exists.
func (e *Engine) ensureActiveConversation(ctx context.Context) (*convstore.Conversation, error) {
	e.mu.Lock()
	activeID := e.activeID
	e.mu.Unlock()

	if activeID != "" {
		conv, err := convstore.GetConversation(ctx, e.db.DB(), activeID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, convstore.ErrNotFound) {
			return nil, err
		}
		// Active pointer is stale; fall through and create a new one.
	}

	conv := &convstore.Conversation{Model: e.model}
	if err := convstore.CreateConversation(ctx, e.db.DB(), conv); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.activeID = conv.ID
	e.mu.Unlock()

	if err := e.saveActivePointer(ctx, conv.ID); err != nil {
		e.logger.Warn("failed to persist active conversation pointer", "error", err)
	}
	e.logger.Debug("created local conversation", "conversation_id", conv.ID)
	return conv, nil
}

// saveActivePointer persists the active conversation id into client state.
func (e *Engine) saveActivePointer(ctx context.Context, id string) error {
	state, err := convstore.GetClientState(ctx, e.db.DB())
	if err != nil {
		return err
	}
	state.ActiveConversationID = id
	return convstore.SaveClientState(ctx, e.db.DB(), state)
}
