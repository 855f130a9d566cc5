package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"backend-avltrack/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "avl:"
	channelSuffix = ":broadcast"
)

// Hub fans live path points out to websocket clients watching a device.
// With Redis configured, broadcasts are shared between replicas; each
// message carries the publishing hub's id so it is not delivered twice.
type Hub struct {
	id      string
	redis   *redis.Client
	pubsub  *redis.PubSub
	log     *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	DeviceID string
	Send     chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		log:     observability.LoggerOr(logger),
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		h.pubsub = redisClient.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
		if _, err := h.pubsub.Receive(ctx); err != nil {
			h.log.Warn("redis subscribe failed", "error", err)
		}
		go h.forwardRedis(h.pubsub)
	}
	return h
}

func (h *Hub) Register(deviceID string) *Client {
	client := &Client{
		DeviceID: deviceID,
		Send:     make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[deviceID] == nil {
		h.clients[deviceID] = map[*Client]struct{}{}
	}
	h.clients[deviceID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if deviceClients, ok := h.clients[client.DeviceID]; ok {
		delete(deviceClients, client)
		if len(deviceClients) == 0 {
			delete(h.clients, client.DeviceID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(deviceID string, payload []byte) {
	h.deliver(deviceID, payload)

	if h.redis != nil {
		msg := h.id + "\n" + string(payload)
		if err := h.redis.Publish(context.Background(), redisChannel(deviceID), msg).Err(); err != nil {
			h.log.Warn("redis publish failed", "device_id", deviceID, "error", err)
		}
	}
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) deliver(deviceID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[deviceID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forwardRedis(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		origin, payload, ok := strings.Cut(msg.Payload, "\n")
		if !ok || origin == h.id {
			continue
		}
		h.deliver(deviceIDFromChannel(msg.Channel), []byte(payload))
	}
}

func redisChannel(deviceID string) string {
	return channelPrefix + deviceID + channelSuffix
}

func deviceIDFromChannel(ch string) string {
	// avl:{device}:broadcast
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
