package services_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/bedfinder/backend/internal/application/tasks"
	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	"github.com/bedfinder/backend/internal/domain/repositories"
)

// Mocks

type MockFacilityRepository struct {
	mock.Mock
}

func (m *MockFacilityRepository) Create(ctx context.Context, facility *entities.Facility) error {
	args := m.Called(ctx, facility)
	return args.Error(0)
}

func (m *MockFacilityRepository) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Facility, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) List(ctx context.Context, filter repositories.FacilityFilter) ([]*entities.Facility, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) UpdateBeds(ctx context.Context, id string, beds entities.BedInventory) error {
	args := m.Called(ctx, id, beds)
	return args.Error(0)
}

func (m *MockFacilityRepository) Nearby(ctx context.Context, params repositories.NearbyParams) ([]*entities.Facility, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

func (m *MockFacilityRepository) ExistsNear(ctx context.Context, name string, latitude, tolerance float64) (bool, error) {
	args := m.Called(ctx, name, latitude, tolerance)
	return args.Bool(0), args.Error(1)
}

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Nearby(ctx context.Context, center entities.Location, radiusKm float64) ([]*entities.Facility, error) {
	args := m.Called(ctx, center, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Facility), args.Error(1)
}

// MockNotifier records published events.
type MockNotifier struct {
	mu     sync.Mutex
	events []*entities.ChangeEvent
	err    error
}

func (m *MockNotifier) Publish(ctx context.Context, event *entities.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *MockNotifier) Subscribe(ctx context.Context, filter entities.ChangeFilter, handler providers.ChangeHandler) (providers.Unsubscribe, error) {
	return func() {}, nil
}

func (m *MockNotifier) Close() error {
	return nil
}

func (m *MockNotifier) Published() []*entities.ChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.ChangeEvent(nil), m.events...)
}

// recordingSubmitter keeps submitted tasks so tests can run them on demand.
type recordingSubmitter struct {
	mu    sync.Mutex
	tasks []tasks.Task
	err   error
}

func (s *recordingSubmitter) Submit(task tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

func (s *recordingSubmitter) Submitted() []tasks.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tasks.Task(nil), s.tasks...)
}

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *entities.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListByUser(ctx context.Context, userID string) ([]*entities.Booking, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListPending(ctx context.Context) ([]*entities.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

func (m *MockBookingRepository) Confirm(ctx context.Context, bookingID, hospitalID string, bedType entities.BedCategory) error {
	args := m.Called(ctx, bookingID, hospitalID, bedType)
	return args.Error(0)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockEmergencyRepository struct {
	mock.Mock
}

func (m *MockEmergencyRepository) Create(ctx context.Context, request *entities.EmergencyRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockEmergencyRepository) ListOpen(ctx context.Context) ([]*entities.EmergencyRequest, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*entities.EmergencyRequest), args.Error(1)
}

func (m *MockEmergencyRepository) ListByUser(ctx context.Context, userID string) ([]*entities.EmergencyRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*entities.EmergencyRequest), args.Error(1)
}

func (m *MockEmergencyRepository) Resolve(ctx context.Context, id string) (*entities.EmergencyRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EmergencyRequest), args.Error(1)
}

type MockFutureRequestRepository struct {
	mock.Mock
}

func (m *MockFutureRequestRepository) Create(ctx context.Context, request *entities.FutureRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

type MockFavoriteRepository struct {
	mock.Mock
}

func (m *MockFavoriteRepository) ListHospitalIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFavoriteRepository) Add(ctx context.Context, userID, hospitalID string) error {
	args := m.Called(ctx, userID, hospitalID)
	return args.Error(0)
}

func (m *MockFavoriteRepository) Remove(ctx context.Context, userID, hospitalID string) (bool, error) {
	args := m.Called(ctx, userID, hospitalID)
	return args.Bool(0), args.Error(1)
}

func facilityAt(name string, lat, lng float64, distanceKm *float64) *entities.Facility {
	return &entities.Facility{
		ID:         name,
		Name:       name,
		Address:    name + " Road",
		Location:   entities.Location{Latitude: lat, Longitude: lng},
		Type:       entities.FacilityTypePrivate,
		DistanceKm: distanceKm,
	}
}
