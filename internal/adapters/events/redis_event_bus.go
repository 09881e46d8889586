package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	redisclient "github.com/bedfinder/backend/internal/infrastructure/clients/redis"
)

const subscriberBuffer = 100

type subscriber struct {
	filter  entities.ChangeFilter
	events  chan *entities.ChangeEvent
	handler providers.ChangeHandler
	once    sync.Once
}

// RedisEventBus implements the ChangeNotifier interface using Redis Pub/Sub.
// One Redis subscription is shared by every local subscriber of a channel.
type RedisEventBus struct {
	client        *redisclient.Client
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[*subscriber]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based change notifier
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[*subscriber]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event on its table's channel
func (b *RedisEventBus) Publish(ctx context.Context, event *entities.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := providers.ChangeChannel(event.Table)
	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Str("operation", string(event.Operation)).Msg("published change event")
	return nil
}

// Subscribe registers handler for events matching filter. An empty table
// subscribes to every table. The Redis subscription is confirmed before
// Subscribe returns.
func (b *RedisEventBus) Subscribe(ctx context.Context, filter entities.ChangeFilter, handler providers.ChangeHandler) (providers.Unsubscribe, error) {
	channel := providers.ChangeChannel(filter.Table)
	if filter.Table == "" {
		channel = providers.ChangeChannel("*")
	}

	b.mu.Lock()
	if _, exists := b.subscriptions[channel]; !exists {
		pubsub, err := b.open(ctx, channel)
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		b.subscriptions[channel] = pubsub
		go b.receiveMessages(channel, pubsub)
	}

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[*subscriber]struct{})
	}

	sub := &subscriber{
		filter:  filter,
		events:  make(chan *entities.ChangeEvent, subscriberBuffer),
		handler: handler,
	}
	b.subscribers[channel][sub] = struct{}{}
	subscriberCount := len(b.subscribers[channel])
	b.mu.Unlock()

	go func() {
		for event := range sub.events {
			sub.handler(event)
		}
	}()

	log.Debug().Str("channel", channel).Int("subscribers", subscriberCount).Msg("subscribed to changes")

	return func() { b.removeSubscriber(channel, sub) }, nil
}

func (b *RedisEventBus) open(ctx context.Context, channel string) (*redis.PubSub, error) {
	var pubsub *redis.PubSub
	if strings.HasSuffix(channel, "*") {
		pubsub = b.client.Client().PSubscribe(b.ctx, channel)
	} else {
		pubsub = b.client.Client().Subscribe(b.ctx, channel)
	}

	// wait for the subscription confirmation so no event published after
	// Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	return pubsub, nil
}

// receiveMessages receives messages from Redis and fans them out to local subscribers
func (b *RedisEventBus) receiveMessages(channel string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("failed to unmarshal change event")
				continue
			}

			b.mu.RLock()
			for sub := range b.subscribers[channel] {
				if !sub.filter.Matches(&event) {
					continue
				}
				select {
				case sub.events <- &event:
				default:
					log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber buffer full, dropping event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeSubscriber(channel string, sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[channel]
	if !exists {
		return
	}
	if _, ok := subscribers[sub]; !ok {
		return
	}

	delete(subscribers, sub)
	sub.once.Do(func() { close(sub.events) })

	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
		if pubsub, ok := b.subscriptions[channel]; ok {
			_ = pubsub.Close()
			delete(b.subscriptions, channel)
			log.Debug().Str("channel", channel).Msg("closed subscription")
		}
	}
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for channel, subscribers := range b.subscribers {
		for sub := range subscribers {
			sub.once.Do(func() { close(sub.events) })
		}
		delete(b.subscribers, channel)
	}
	for channel, pubsub := range b.subscriptions {
		if err := pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close subscription %s: %w", channel, err))
		}
		delete(b.subscriptions, channel)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %v", errs)
	}

	log.Info().Msg("change notifier closed")
	return nil
}

var _ providers.ChangeNotifier = (*RedisEventBus)(nil)
