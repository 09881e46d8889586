package providers

import (
	"context"

	"github.com/bedfinder/backend/internal/domain/entities"
)

// ChangeHandler observes change notifications. It must not block for long;
// events are delivered sequentially per subscription.
type ChangeHandler func(event *entities.ChangeEvent)

// Unsubscribe removes a registration. Calling it more than once is a no-op.
type Unsubscribe func()

// ChangeNotifier publishes and delivers row change notifications
type ChangeNotifier interface {
	// Publish fans an event out to every matching subscriber
	Publish(ctx context.Context, event *entities.ChangeEvent) error

	// Subscribe registers handler for events matching filter
	Subscribe(ctx context.Context, filter entities.ChangeFilter, handler ChangeHandler) (Unsubscribe, error)

	// Close closes the notifier and all subscriptions
	Close() error
}

// ChangeChannel returns the pub/sub channel events of a table travel on.
func ChangeChannel(table string) string {
	return "changes:" + table
}
