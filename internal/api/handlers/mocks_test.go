package handlers_test

import (
	"context"
	"net/http"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/application/services"
	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/domain/repositories"
)

type MockFacilityService struct {
	mock.Mock
}

func (m *MockFacilityService) Create(ctx context.Context, actor *entities.Identity, facility *entities.Facility) error {
	args := m.Called(ctx, actor, facility)
	return args.Error(0)
}

func (m *MockFacilityService) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) GetByIDs(ctx context.Context, ids []string) ([]*entities.Facility, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityService) UpdateBeds(ctx context.Context, actor *entities.Identity, id string, beds entities.BedInventory) error {
	args := m.Called(ctx, actor, id, beds)
	return args.Error(0)
}

type MockNearbyFinder struct {
	mock.Mock
}

func (m *MockNearbyFinder) FindNearby(ctx context.Context, actor *entities.Identity, q services.NearbyQuery) ([]*entities.Facility, error) {
	args := m.Called(ctx, actor, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, actor *entities.Identity, booking *entities.Booking) error {
	args := m.Called(ctx, actor, booking)
	return args.Error(0)
}

func (m *MockBookingService) ListMine(ctx context.Context, actor *entities.Identity) ([]*entities.Booking, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

func (m *MockBookingService) ListPending(ctx context.Context, actor *entities.Identity) ([]*entities.Booking, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

func (m *MockBookingService) Confirm(ctx context.Context, actor *entities.Identity, id string) (*entities.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingService) Reject(ctx context.Context, actor *entities.Identity, id string) (*entities.Booking, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

type MockFavoriteService struct {
	mock.Mock
}

func (m *MockFavoriteService) List(ctx context.Context, actor *entities.Identity) ([]*entities.Facility, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFavoriteService) Toggle(ctx context.Context, actor *entities.Identity, hospitalID string) ([]string, error) {
	args := m.Called(ctx, actor, hospitalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockEmergencyService struct {
	mock.Mock
}

func (m *MockEmergencyService) Broadcast(ctx context.Context, actor *entities.Identity, request *entities.EmergencyRequest) error {
	args := m.Called(ctx, actor, request)
	return args.Error(0)
}

func (m *MockEmergencyService) ListOpen(ctx context.Context, actor *entities.Identity) ([]*entities.EmergencyRequest, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyRequest), args.Error(1)
}

func (m *MockEmergencyService) ListMine(ctx context.Context, actor *entities.Identity) ([]*entities.EmergencyRequest, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.EmergencyRequest), args.Error(1)
}

func (m *MockEmergencyService) Resolve(ctx context.Context, actor *entities.Identity, id string) (*entities.EmergencyRequest, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmergencyRequest), args.Error(1)
}

func (m *MockEmergencyService) RequestFuture(ctx context.Context, actor *entities.Identity, request *entities.FutureRequest) error {
	args := m.Called(ctx, actor, request)
	return args.Error(0)
}

// fakeNotifier hands the registered handler back to the test.
type fakeNotifier struct {
	mu           sync.Mutex
	filters      []entities.ChangeFilter
	handlers     []providers.ChangeHandler
	unsubscribed int
	subscribed   chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{subscribed: make(chan struct{}, 8)}
}

func (n *fakeNotifier) Publish(ctx context.Context, event *entities.ChangeEvent) error {
	n.mu.Lock()
	handlers := append([]providers.ChangeHandler(nil), n.handlers...)
	n.mu.Unlock()
	for _, h := range handlers {
		h(event)
	}
	return nil
}

func (n *fakeNotifier) Subscribe(ctx context.Context, filter entities.ChangeFilter, handler providers.ChangeHandler) (providers.Unsubscribe, error) {
	n.mu.Lock()
	n.filters = append(n.filters, filter)
	n.handlers = append(n.handlers, handler)
	n.mu.Unlock()
	n.subscribed <- struct{}{}
	return func() {
		n.mu.Lock()
		n.unsubscribed++
		n.mu.Unlock()
	}, nil
}

func (n *fakeNotifier) Close() error {
	return nil
}

func (n *fakeNotifier) lastFilter() entities.ChangeFilter {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.filters[len(n.filters)-1]
}

func (n *fakeNotifier) unsubscribeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unsubscribed
}

// as serves h on behalf of identity.
func as(identity *entities.Identity, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(middleware.WithIdentity(r.Context(), identity)))
	})
}

var (
	staff   = &entities.Identity{UserID: "staff-1", Role: entities.RoleStaff}
	patient = &entities.Identity{UserID: "patient-1", Role: entities.RolePatient}
)
