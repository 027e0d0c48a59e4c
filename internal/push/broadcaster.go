package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/prometna/internal/model"
	"github.com/dukerupert/prometna/internal/store"
	"github.com/dukerupert/prometna/internal/websocket"
)

// Sender delivers one payload to one subscription. *Service satisfies it.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// BroadcastResult counts the outcome of an announcement.
type BroadcastResult struct {
	Sent    int `json:"sent"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// Broadcaster sends school announcements to every stored subscription and
// echoes them to open pages.
type Broadcaster struct {
	sender Sender
	store  *store.PushStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewBroadcaster(sender Sender, pushStore *store.PushStore, hub *websocket.Hub, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		sender: sender,
		store:  pushStore,
		hub:    hub,
		logger: logger,
	}
}

// Announce delivers payload to all subscriptions. Expired endpoints are removed.
// Individual delivery failures are counted, not returned.
func (b *Broadcaster) Announce(ctx context.Context, payload Payload) (BroadcastResult, error) {
	var res BroadcastResult

	subs, err := b.store.ListAll()
	if err != nil {
		return res, fmt.Errorf("list subscriptions: %w", err)
	}

	for i := range subs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		sub := &subs[i]
		err := b.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			res.Sent++
		case errors.Is(err, ErrExpired):
			res.Expired++
			b.logger.Info("removing expired subscription", "device", sub.DeviceID)
			if err := b.store.DeleteByEndpoint(sub.Endpoint); err != nil {
				b.logger.Error("delete expired subscription", "device", sub.DeviceID, "error", err)
			}
		default:
			res.Failed++
			b.logger.Warn("push send failed", "device", sub.DeviceID, "error", err)
		}
	}

	if b.hub != nil {
		b.hub.Broadcast(websocket.NewAnnouncement(payload.Title, payload.Body))
	}

	b.logger.Info("announcement sent", "sent", res.Sent, "expired", res.Expired, "failed", res.Failed)
	return res, nil
}
