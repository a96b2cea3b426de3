package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/botmetrics/botmetrics/internal/cohort"
	"github.com/botmetrics/botmetrics/internal/domain"
	"github.com/botmetrics/botmetrics/internal/dto"
	"github.com/botmetrics/botmetrics/internal/repository"
)

// MockUserService is a mock implementation of service.UserServicer
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) UpdateAttributes(ctx context.Context, botID int64, uid string, attrs dto.UserAttributesPayload) (*domain.BotUser, error) {
	args := m.Called(ctx, botID, uid, attrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BotUser), args.Error(1)
}

func (m *MockUserService) Search(ctx context.Context, botID int64, req *dto.SearchUsersRequest) ([]repository.UserRow, error) {
	args := m.Called(ctx, botID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.UserRow), args.Error(1)
}

// MockReportService is a mock implementation of service.ReportServicer
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Cohort(ctx context.Context, botID int64, start time.Time, groupBy string) (*dto.CohortResponse, error) {
	args := m.Called(ctx, botID, start, groupBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CohortResponse), args.Error(1)
}

// MockWebhookService is a mock implementation of service.WebhookServicer
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) Enqueue(ctx context.Context, provider string, botInstanceID int64, payload []byte) error {
	args := m.Called(ctx, provider, botInstanceID, payload)
	return args.Error(0)
}

// MockConfigStore is a mock implementation of service.ConfigStore
type MockConfigStore struct {
	mock.Mock
}

func (m *MockConfigStore) GetBot(ctx context.Context, id int64) (*domain.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *MockConfigStore) CreateBot(ctx context.Context, bot *domain.Bot) error {
	args := m.Called(ctx, bot)
	return args.Error(0)
}

func (m *MockConfigStore) CreateInstance(ctx context.Context, instance *domain.BotInstance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockConfigStore) GetInstance(ctx context.Context, id int64) (*domain.BotInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BotInstance), args.Error(1)
}

func (m *MockConfigStore) InstanceIDs(ctx context.Context, botID int64) ([]int64, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockConfigStore) CreateDashboard(ctx context.Context, dashboard *domain.Dashboard) error {
	args := m.Called(ctx, dashboard)
	return args.Error(0)
}

func (m *MockConfigStore) GetDashboard(ctx context.Context, botID int64, uid string) (*domain.Dashboard, error) {
	args := m.Called(ctx, botID, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockConfigStore) ListDashboards(ctx context.Context, botID int64) ([]*domain.Dashboard, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Dashboard), args.Error(1)
}

type handlerMocks struct {
	users    *MockUserService
	reports  *MockReportService
	webhooks *MockWebhookService
	store    *MockConfigStore
}

func newTestHandler() (*Handler, *handlerMocks) {
	mocks := &handlerMocks{
		users:    new(MockUserService),
		reports:  new(MockReportService),
		webhooks: new(MockWebhookService),
		store:    new(MockConfigStore),
	}
	h := NewHandler(mocks.users, mocks.reports, mocks.webhooks, mocks.store, zap.NewNop())
	return h, mocks
}

func TestHandler_HealthCheck(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

func TestHandler_ReceiveWebhook_Success(t *testing.T) {
	handler, mocks := newTestHandler()

	payload := []byte(`{"object":"page","entry":[]}`)
	mocks.webhooks.On("Enqueue", mock.Anything, "facebook", int64(7), payload).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/facebook/7", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	mocks.webhooks.AssertExpectations(t)
}

func TestHandler_ReceiveWebhook_UnknownInstance(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.webhooks.On("Enqueue", mock.Anything, "slack", int64(404), mock.Anything).Return(domain.ErrNotFound)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/slack/404", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ReceiveWebhook_BadInstanceID(t *testing.T) {
	handler, mocks := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/slack/abc", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mocks.webhooks.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_UpdateUser_Success(t *testing.T) {
	handler, mocks := newTestHandler()

	user := &domain.BotUser{
		UID:            "U1234",
		BotInstanceID:  7,
		MembershipType: "user",
		Provider:       domain.ProviderSlack,
		UserAttributes: domain.UserAttributes{Nickname: "john", Email: "john@example.com"},
	}

	mocks.users.On("UpdateAttributes", mock.Anything, int64(1), "U1234",
		dto.UserAttributesPayload{Email: "john@example.com"}).Return(user, nil)

	body, _ := json.Marshal(dto.UpdateUserRequest{
		User: dto.UserAttributesPayload{Email: "john@example.com"},
	})
	req := httptest.NewRequest(http.MethodPatch, "/bots/1/users/U1234", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "john@example.com", response["user"]["email"])
	mocks.users.AssertExpectations(t)
}

func TestHandler_UpdateUser_InvalidTimezone(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.users.On("UpdateAttributes", mock.Anything, int64(1), "U1234", mock.Anything).
		Return(nil, domain.ErrInvalidTimezone)

	body := []byte(`{"user":{"timezone":"Not/AZone"}}`)
	req := httptest.NewRequest(http.MethodPatch, "/bots/1/users/U1234", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "validation_error", response.Error)
}

func TestHandler_UpdateUser_NotFound(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.users.On("UpdateAttributes", mock.Anything, int64(1), "ghost", mock.Anything).
		Return(nil, domain.ErrNotFound)

	body := []byte(`{"user":{"email":"x@y.z"}}`)
	req := httptest.NewRequest(http.MethodPatch, "/bots/1/users/ghost", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_SearchUsers_Success(t *testing.T) {
	handler, mocks := newTestHandler()

	rows := []repository.UserRow{
		{User: domain.BotUser{
			ID:             "u-1",
			UID:            "U1234",
			BotInstanceID:  7,
			MembershipType: "user",
			Provider:       domain.ProviderSlack,
			UserAttributes: domain.UserAttributes{Nickname: "john"},
		}},
	}

	mocks.users.On("Search", mock.Anything, int64(1), mock.MatchedBy(func(r *dto.SearchUsersRequest) bool {
		return len(r.Queries) == 1 && r.Queries[0].Field == "nickname"
	})).Return(rows, nil)

	body := []byte(`{"queries":[{"field":"nickname","method":"equals_to","value":"john"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/bots/1/users/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response dto.SearchUsersResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "U1234", response.Users[0].UID)
	assert.Equal(t, "john", response.Users[0].Attributes["nickname"])
	mocks.users.AssertExpectations(t)
}

func TestHandler_SearchUsers_InvalidJSON(t *testing.T) {
	handler, mocks := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/bots/1/users/search", bytes.NewReader([]byte(`{invalid`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mocks.users.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Cohort_Success(t *testing.T) {
	handler, mocks := newTestHandler()

	report := &dto.CohortResponse{
		GroupBy: "week",
		Start:   "2016-04-18T00:00:00Z",
		Counts:  []int{10, 9, 8},
	}

	mocks.reports.On("Cohort", mock.Anything, int64(1),
		time.Date(2016, 4, 18, 0, 0, 0, 0, time.UTC), "week").Return(report, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/bots/1/reports/cohort?start=2016-04-18T00:00:00Z&group_by=week", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response dto.CohortResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, []int{10, 9, 8}, response.Counts)
	mocks.reports.AssertExpectations(t)
}

func TestHandler_Cohort_UnsupportedGranularity(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.reports.On("Cohort", mock.Anything, int64(1), mock.Anything, "day").
		Return(nil, fmt.Errorf("%w %q", cohort.ErrUnsupportedGranularity, "day"))

	req := httptest.NewRequest(http.MethodGet, "/bots/1/reports/cohort?start=1460937600&group_by=day", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Cohort_StoreErrorIsInternal(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.reports.On("Cohort", mock.Anything, int64(1), mock.Anything, "week").
		Return(nil, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/bots/1/reports/cohort?start=1460937600&group_by=week", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_Cohort_DefaultStartIsEightWeeksBack(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.reports.On("Cohort", mock.Anything, int64(1), mock.MatchedBy(func(start time.Time) bool {
		want := time.Now().UTC().AddDate(0, 0, -8*7)
		return start.Sub(want).Abs() < time.Minute
	}), "").Return(&dto.CohortResponse{GroupBy: "week", Counts: []int{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/bots/1/reports/cohort", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.reports.AssertExpectations(t)
}

func TestHandler_CreateBot_Success(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.store.On("CreateBot", mock.Anything, mock.MatchedBy(func(b *domain.Bot) bool {
		return b.Name == "Support bot" && b.Provider == domain.ProviderFacebook
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Bot).ID = 42
	}).Return(nil)

	body := []byte(`{"name":"Support bot","provider":"facebook"}`)
	req := httptest.NewRequest(http.MethodPost, "/bots", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response dto.BotResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), response.ID)
	mocks.store.AssertExpectations(t)
}

func TestHandler_CreateInstance_InheritsBotProvider(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.store.On("GetBot", mock.Anything, int64(1)).
		Return(&domain.Bot{ID: 1, Name: "Support bot", Provider: domain.ProviderSlack}, nil)
	mocks.store.On("CreateInstance", mock.Anything, mock.MatchedBy(func(i *domain.BotInstance) bool {
		return i.BotID == 1 && i.Provider == domain.ProviderSlack && i.Token == "tok-1"
	})).Return(nil)

	body := []byte(`{"uid":"T024BE7LD","token":"tok-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/bots/1/instances", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mocks.store.AssertExpectations(t)
}

func TestHandler_CreateDashboard_DefaultsEnabled(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.store.On("CreateDashboard", mock.Anything, mock.MatchedBy(func(d *domain.Dashboard) bool {
		return d.BotID == 1 && d.Enabled && d.EventType == "message"
	})).Return(nil)

	body := []byte(`{"name":"Image messages","dashboard_type":"custom","provider":"facebook","event_type":"message"}`)
	req := httptest.NewRequest(http.MethodPost, "/bots/1/dashboards", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mocks.store.AssertExpectations(t)
}

func TestHandler_GetDashboard_NotFound(t *testing.T) {
	handler, mocks := newTestHandler()

	mocks.store.On("GetDashboard", mock.Anything, int64(1), "nope").Return(nil, domain.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/bots/1/dashboards/nope", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
