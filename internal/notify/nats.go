package notify

import (
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATS is a Notifier backed by a NATS connection, for deployments where
// observers live in separate processes. Scopes map to subjects under a shared
// prefix; payloads are empty since subscribers re-read the store.
type NATS struct {
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
}

func NewNATS(url, prefix string, log zerolog.Logger) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("promptbingo"))
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "promptbingo"
	}
	return &NATS{nc: nc, prefix: prefix, log: log}, nil
}

func (n *NATS) subject(scope string) string {
	// NATS subjects use dots as separators; scopes use colons
	return n.prefix + "." + strings.ReplaceAll(scope, ":", ".")
}

func (n *NATS) Publish(scope string) {
	if err := n.nc.Publish(n.subject(scope), nil); err != nil {
		n.log.Error().Err(err).Str("scope", scope).Msg("notify publish failed")
	}
}

func (n *NATS) Subscribe(scope string, handler func()) func() {
	sub, err := n.nc.Subscribe(n.subject(scope), func(*nats.Msg) {
		handler()
	})
	if err != nil {
		n.log.Error().Err(err).Str("scope", scope).Msg("notify subscribe failed")
		return func() {}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Drain(); err != nil {
				n.log.Error().Err(err).Str("scope", scope).Msg("notify unsubscribe failed")
			}
		})
	}
}

func (n *NATS) Close() {
	n.nc.Close()
}
