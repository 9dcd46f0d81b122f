package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// PublisherConfig holds the NATS settings for the push publisher.
type PublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultPublisherConfig returns the default publisher configuration.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "TRIVIA_EVENTS",
		SubjectPrefix: "trivia.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Envelope is the wire format for both user-addressed and broadcast pushes.
type Envelope struct {
	EventID   string          `json:"eventId"`
	Topic     string          `json:"topic"`
	User      string          `json:"user,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Publisher pushes notification envelopes onto a JetStream stream. It
// implements Bus: every failure is logged and swallowed, never surfaced to
// the session core.
type Publisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg PublisherConfig
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js, cfg: cfg}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

// ensureStream creates the event stream if it does not exist yet.
func (p *Publisher) ensureStream(ctx context.Context) error {
	_, err := p.js.Stream(ctx, p.cfg.StreamName)
	if err == nil {
		return nil
	}
	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     p.cfg.StreamName,
		Subjects: []string{p.cfg.SubjectPrefix + ".>"},
		MaxAge:   time.Hour,
	})
	if err != nil {
		return err
	}
	log.Info().Str("stream", p.cfg.StreamName).Msg("created JetStream event stream")
	return nil
}

// SendToUser publishes to the user-addressed subject. Best-effort.
func (p *Publisher) SendToUser(ctx context.Context, username, topic string, payload any) {
	subject := fmt.Sprintf("%s.user.%s", p.cfg.SubjectPrefix, sanitizeToken(username))
	p.publish(ctx, subject, Envelope{
		EventID:   uuid.New().String(),
		Topic:     topic,
		User:      username,
		Timestamp: time.Now(),
	}, payload)
}

// Broadcast publishes to the broker-wide topic subject. Best-effort.
func (p *Publisher) Broadcast(ctx context.Context, topic string, payload any) {
	subject := fmt.Sprintf("%s.topic.%s", p.cfg.SubjectPrefix, sanitizeToken(topic))
	p.publish(ctx, subject, Envelope{
		EventID:   uuid.New().String(),
		Topic:     topic,
		Timestamp: time.Now(),
	}, payload)
}

func (p *Publisher) publish(ctx context.Context, subject string, env Envelope, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to marshal push payload")
		return
	}
	env.Payload = body

	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to marshal push envelope")
		return
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		log.Error().
			Err(err).
			Str("subject", subject).
			Str("topic", env.Topic).
			Msg("failed to publish push notification")
		return
	}

	log.Debug().
		Str("subject", subject).
		Str("topic", env.Topic).
		Str("user", env.User).
		Msg("push notification published")
}

// Close tears down the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// sanitizeToken keeps subjects valid: NATS token separators in user-supplied
// names are replaced.
func sanitizeToken(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch c {
		case '.', '*', '>', ' ':
			out[i] = '_'
		}
	}
	return string(out)
}
