package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bedfinder/backend/internal/api/handlers"
	"github.com/bedfinder/backend/internal/application/services"
	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/repositories"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

type facilitiesResponse struct {
	Facilities []*entities.Facility `json:"facilities"`
	Count      int                  `json:"count"`
}

func TestFacilityHandler_Nearby(t *testing.T) {
	t.Run("passes the parsed query through", func(t *testing.T) {
		finder := new(MockNearbyFinder)
		handler := handlers.NewFacilityHandler(new(MockFacilityService), finder)

		apex := &entities.Facility{ID: "h-1", Name: "Apex", DistanceKm: entities.Float64Ptr(1.2)}
		apex.MarkAuthoritative()
		finder.On("FindNearby", mock.Anything, patient, mock.MatchedBy(func(q services.NearbyQuery) bool {
			return q.Center != nil &&
				q.Center.Latitude == 19.076 && q.Center.Longitude == 72.8777 &&
				q.RadiusKm == 5 && q.Query == "apex" && q.Type == entities.FacilityTypePrivate
		})).Return([]*entities.Facility{apex}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/facilities/nearby?lat=19.076&lng=72.8777&radius=5&q=apex&type=Pvt", nil)
		rec := httptest.NewRecorder()
		as(patient, handler.Nearby).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body facilitiesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, entities.ProvenanceAuthoritative, body.Facilities[0].Provenance)
		assert.True(t, body.Facilities[0].InDB)
		finder.AssertExpectations(t)
	})

	t.Run("no position means no center", func(t *testing.T) {
		finder := new(MockNearbyFinder)
		handler := handlers.NewFacilityHandler(new(MockFacilityService), finder)
		finder.On("FindNearby", mock.Anything, (*entities.Identity)(nil), services.NearbyQuery{}).
			Return([]*entities.Facility{}, nil).Once()

		rec := httptest.NewRecorder()
		handler.Nearby(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/nearby", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"facilities":[],"count":0}`, rec.Body.String())
	})

	t.Run("one coordinate means no center", func(t *testing.T) {
		for _, target := range []string{
			"/api/facilities/nearby?lat=19.076",
			"/api/facilities/nearby?lng=72.8777",
			"/api/facilities/nearby?lat=19.076&lng=",
		} {
			finder := new(MockNearbyFinder)
			handler := handlers.NewFacilityHandler(new(MockFacilityService), finder)
			finder.On("FindNearby", mock.Anything, (*entities.Identity)(nil), services.NearbyQuery{}).
				Return([]*entities.Facility{}, nil).Once()

			rec := httptest.NewRecorder()
			handler.Nearby(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusOK, rec.Code, target)
			assert.JSONEq(t, `{"facilities":[],"count":0}`, rec.Body.String(), target)
			finder.AssertExpectations(t)
		}
	})

	t.Run("bad input", func(t *testing.T) {
		handler := handlers.NewFacilityHandler(new(MockFacilityService), new(MockNearbyFinder))

		for _, target := range []string{
			"/api/facilities/nearby?lat=abc&lng=72.8",
			"/api/facilities/nearby?lat=95&lng=72.8",
			"/api/facilities/nearby?lat=19&lng=72.8&radius=-1",
			"/api/facilities/nearby?lat=19&lng=72.8&type=Clinic",
		} {
			rec := httptest.NewRecorder()
			handler.Nearby(rec, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})

	t.Run("store failure is a retryable bad gateway", func(t *testing.T) {
		finder := new(MockNearbyFinder)
		handler := handlers.NewFacilityHandler(new(MockFacilityService), finder)
		finder.On("FindNearby", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.NewExternalError("nearby hospitals query failed", errors.New("conn reset")))

		rec := httptest.NewRecorder()
		handler.Nearby(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/nearby?lat=19&lng=72", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.JSONEq(t, `{"error":"nearby hospitals query failed","retryable":true}`, rec.Body.String())
	})
}

func TestFacilityHandler_ListFacilities(t *testing.T) {
	t.Run("by ids", func(t *testing.T) {
		svc := new(MockFacilityService)
		handler := handlers.NewFacilityHandler(svc, new(MockNearbyFinder))
		svc.On("GetByIDs", mock.Anything, []string{"h-1", "h-2"}).
			Return([]*entities.Facility{{ID: "h-1"}, {ID: "h-2"}}, nil).Once()

		rec := httptest.NewRecorder()
		handler.ListFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities?ids=h-1,%20h-2,", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("page by type", func(t *testing.T) {
		svc := new(MockFacilityService)
		handler := handlers.NewFacilityHandler(svc, new(MockNearbyFinder))
		svc.On("List", mock.Anything, repositories.FacilityFilter{Type: entities.FacilityTypeGovernment, Limit: 20, Offset: 40}).
			Return([]*entities.Facility{}, nil).Once()

		rec := httptest.NewRecorder()
		handler.ListFacilities(rec, httptest.NewRequest(http.MethodGet, "/api/facilities?type=Gov&limit=20&offset=40", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}

func TestFacilityHandler_GetFacility(t *testing.T) {
	svc := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(svc, new(MockNearbyFinder))
	svc.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("hospital not found"))

	req := httptest.NewRequest(http.MethodGet, "/api/facilities/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	handler.GetFacility(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"hospital not found"}`, rec.Body.String())
}

func TestFacilityHandler_CreateFacility(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockFacilityService)
		handler := handlers.NewFacilityHandler(svc, new(MockNearbyFinder))
		svc.On("Create", mock.Anything, staff, mock.MatchedBy(func(f *entities.Facility) bool {
			return f.Name == "Apex" && f.Location.Latitude == 19.2 && f.Beds.ICU.Total == 4 && f.Phone != nil
		})).Return(nil).Once()

		body := `{"name":"Apex","address":"Borivali","lat":19.2,"lng":72.85,"type":"Pvt","phone":"022-1","beds":{"icu":{"total":4,"available":1}}}`
		rec := httptest.NewRecorder()
		as(staff, handler.CreateFacility).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/facilities", strings.NewReader(body)))

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		handler := handlers.NewFacilityHandler(new(MockFacilityService), new(MockNearbyFinder))

		rec := httptest.NewRecorder()
		as(staff, handler.CreateFacility).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/facilities", strings.NewReader(`{"nam":"typo"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFacilityHandler_UpdateBeds(t *testing.T) {
	svc := new(MockFacilityService)
	handler := handlers.NewFacilityHandler(svc, new(MockNearbyFinder))
	beds := entities.BedInventory{General: entities.BedCount{Total: 10, Available: 3}}
	svc.On("UpdateBeds", mock.Anything, patient, "h-1", beds).Return(apperrors.NewForbiddenError("only staff can update bed availability"))

	req := httptest.NewRequest(http.MethodPatch, "/api/facilities/h-1/beds", strings.NewReader(`{"general":{"total":10,"available":3}}`))
	req.SetPathValue("id", "h-1")
	rec := httptest.NewRecorder()
	as(patient, handler.UpdateBeds).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
