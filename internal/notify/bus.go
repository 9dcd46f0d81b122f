package notify

import (
	"context"
)

// Topics pushed to clients. User-addressed sends and broadcast sends are
// scoped separately on the wire.
const (
	TopicRoomUpdate  = "room.update"
	TopicGameUpdate  = "game.update"
	TopicRoundStart  = "round.start"
	TopicRoundResult = "round.result"
	TopicGameOver    = "game.over"
	TopicInvite      = "invite"
)

// Bus is the push-notification capability used by the session core. Sends
// are fire-and-forget and best-effort: implementations log and swallow
// failures, and the core never retries.
type Bus interface {
	// SendToUser pushes a payload to one user's addressed destination.
	SendToUser(ctx context.Context, username, topic string, payload any)
	// Broadcast pushes a payload to a broker-wide topic destination.
	Broadcast(ctx context.Context, topic string, payload any)
}

// NopBus discards every send. Used in tests.
type NopBus struct{}

func (NopBus) SendToUser(ctx context.Context, username, topic string, payload any) {}

func (NopBus) Broadcast(ctx context.Context, topic string, payload any) {}
