package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bedfinder/backend/internal/api/handlers"
	"github.com/bedfinder/backend/internal/domain/entities"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

func TestEmergencyHandler_Broadcast(t *testing.T) {
	svc := new(MockEmergencyService)
	handler := handlers.NewEmergencyHandler(svc)
	svc.On("Broadcast", mock.Anything, patient, mock.MatchedBy(func(e *entities.EmergencyRequest) bool {
		return e.Severity == entities.SeverityCritical && e.LocationText == "Andheri"
	})).Return(nil).Once()

	body := `{"patient_name":"Ravi","patient_age":"61","severity":"Critical","nature_of_emergency":"Stroke","location_text":"Andheri","contact_number":"90"}`
	rec := httptest.NewRecorder()
	as(patient, handler.Broadcast).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/emergencies", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestEmergencyHandler_Resolve(t *testing.T) {
	svc := new(MockEmergencyService)
	handler := handlers.NewEmergencyHandler(svc)
	svc.On("Resolve", mock.Anything, staff, "e-9").Return(nil, apperrors.NewNotFoundError("emergency request not found"))

	req := httptest.NewRequest(http.MethodPost, "/api/emergencies/e-9/resolve", nil)
	req.SetPathValue("id", "e-9")
	rec := httptest.NewRecorder()
	as(staff, handler.Resolve).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmergencyHandler_RequestFuture(t *testing.T) {
	svc := new(MockEmergencyService)
	handler := handlers.NewEmergencyHandler(svc)
	svc.On("RequestFuture", mock.Anything, (*entities.Identity)(nil), mock.MatchedBy(func(f *entities.FutureRequest) bool {
		return f.HospitalID != nil && *f.HospitalID == "h-1" && f.AgreeTerms
	})).Return(nil).Once()

	body := `{"requirement":"ICU bed","location_text":"Pune","hospital_id":"h-1","desired_date":"2026-11-02","agree_terms":true}`
	rec := httptest.NewRecorder()
	handler.RequestFuture(rec, httptest.NewRequest(http.MethodPost, "/api/future-requests", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}
