package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Chenghao-Wen/NoteTree/internal/metrics"
	"github.com/Chenghao-Wen/NoteTree/internal/models"
	"github.com/Chenghao-Wen/NoteTree/internal/store"
)

// Dispatcher routes a decoded notification to a user's live connections.
type Dispatcher interface {
	Dispatch(userID string, event models.EventKind, data json.RawMessage)
}

// NoteStatusStore mirrors worker-reported status onto the note row so REST
// reads agree with what was pushed. Optional; nil disables mirroring.
type NoteStatusStore interface {
	UpdateNoteStatus(ctx context.Context, id string, status models.NoteStatus, errorMessage string) error
}

// Relay subscribes to the AI results channel and fans each message out to
// the originating user's connections. One malformed message never stops the
// relay: it is logged with the raw payload and dropped.
type Relay struct {
	rdb        *redis.Client
	dispatcher Dispatcher
	notes      NoteStatusStore
	logger     zerolog.Logger

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRelay creates a relay. Start must be called to begin receiving.
func NewRelay(rdb *redis.Client, dispatcher Dispatcher, notes NoteStatusStore, logger zerolog.Logger) *Relay {
	return &Relay{
		rdb:        rdb,
		dispatcher: dispatcher,
		notes:      notes,
		logger:     logger.With().Str("component", "relay").Logger(),
	}
}

// Start subscribes to the results channel and launches the receive loop.
// Subscription failure is logged and leaves the relay inert; it must not
// take the host process down with it.
func (r *Relay) Start(ctx context.Context) {
	r.pubsub = r.rdb.Subscribe(ctx, store.ChannelAIResults)

	if _, err := r.pubsub.Receive(ctx); err != nil {
		r.logger.Error().
			Err(err).
			Str("channel", store.ChannelAIResults).
			Msg("broadcast subscription failed; result notifications are disabled")
		_ = r.pubsub.Close()
		r.pubsub = nil
		return
	}

	r.logger.Info().Str("channel", store.ChannelAIResults).Msg("subscribed to results channel")

	r.done = make(chan struct{})
	go r.loop(ctx)
}

// Stop releases the subscription and waits for the receive loop to drain.
func (r *Relay) Stop() {
	if r.pubsub == nil {
		return
	}
	_ = r.pubsub.Close()
	<-r.done
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.done)
	// Messages are handled synchronously, in delivery order.
	for msg := range r.pubsub.Channel() {
		r.handleMessage(ctx, []byte(msg.Payload))
	}
}

func (r *Relay) handleMessage(ctx context.Context, raw []byte) {
	var n models.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		metrics.NotificationsDropped.WithLabelValues("malformed").Inc()
		r.logger.Warn().Err(err).Bytes("payload", raw).Msg("discarding unparseable broadcast message")
		return
	}

	if n.UserID == "" || n.Event == "" {
		metrics.NotificationsDropped.WithLabelValues("missing_fields").Inc()
		r.logger.Warn().Bytes("payload", raw).Msg("discarding broadcast message without userId or event")
		return
	}

	payload, err := n.DecodePayload()
	if err != nil {
		metrics.NotificationsDropped.WithLabelValues("unrecognized_event").Inc()
		r.logger.Warn().Err(err).Bytes("payload", raw).Msg("discarding broadcast message")
		return
	}

	// Keep the note row in step with what we are about to push.
	if sc, ok := payload.(*models.NoteStatusChanged); ok && r.notes != nil {
		if err := r.notes.UpdateNoteStatus(ctx, sc.NoteID, models.NoteStatus(sc.Status), ""); err != nil {
			r.logger.Warn().Err(err).Str("noteId", sc.NoteID).Msg("failed to mirror note status")
		}
	}

	r.dispatcher.Dispatch(n.UserID, n.Event, n.Data)
	metrics.NotificationsDispatched.WithLabelValues(string(n.Event)).Inc()
}
