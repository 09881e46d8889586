package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedfinder/backend/internal/domain/entities"
	redisclient "github.com/bedfinder/backend/internal/infrastructure/clients/redis"
)

type collector struct {
	mu     sync.Mutex
	events []*entities.ChangeEvent
}

func (c *collector) handle(e *entities.ChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func newTestBus(t *testing.T) *RedisEventBus {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClientWithOptions(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	bus := NewRedisEventBus(client)
	t.Cleanup(func() {
		bus.Close()
		client.Close()
	})
	return bus
}

func TestRedisEventBus_DeliversMatchingEvents(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	mine := &collector{}
	unsubscribe, err := bus.Subscribe(ctx, entities.ChangeFilter{Table: entities.TableBookings, OwnerID: "u-1"}, mine.handle)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, bus.Publish(ctx, entities.NewChangeEvent(entities.TableBookings, entities.ChangeUpdate, "b-1", "u-2", nil)))
	require.NoError(t, bus.Publish(ctx, entities.NewChangeEvent(entities.TableBookings, entities.ChangeUpdate, "b-2", "u-1", nil)))

	assert.Eventually(t, func() bool { return mine.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	mine.mu.Lock()
	assert.Equal(t, "b-2", mine.events[0].RowID)
	mine.mu.Unlock()
}

func TestRedisEventBus_AllTables(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	all := &collector{}
	unsubscribe, err := bus.Subscribe(ctx, entities.ChangeFilter{}, all.handle)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, bus.Publish(ctx, entities.NewChangeEvent(entities.TableHospitals, entities.ChangeInsert, "h-1", "", nil)))
	require.NoError(t, bus.Publish(ctx, entities.NewChangeEvent(entities.TableEmergencyRequests, entities.ChangeInsert, "e-1", "", nil)))

	assert.Eventually(t, func() bool { return all.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRedisEventBus_UnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	c := &collector{}
	unsubscribe, err := bus.Subscribe(ctx, entities.ChangeFilter{Table: entities.TableHospitals}, c.handle)
	require.NoError(t, err)

	unsubscribe()
	unsubscribe()

	require.NoError(t, bus.Publish(ctx, entities.NewChangeEvent(entities.TableHospitals, entities.ChangeUpdate, "h-1", "", nil)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, c.count())

	bus.mu.RLock()
	assert.Empty(t, bus.subscriptions)
	bus.mu.RUnlock()
}
