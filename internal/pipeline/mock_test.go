package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Vini334/ReclamaAI/internal/events"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/store"
)

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(ctx context.Context, req ClassifyRequest) (RawAnalysis, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(RawAnalysis), args.Error(1)
}

// --- Ticketer Mock ---

type mockTicketer struct {
	mock.Mock
}

func (m *mockTicketer) CreateTicket(ctx context.Context, complaintID string, analysis model.Analysis, routing model.RoutingDecision) (*model.TicketInfo, error) {
	args := m.Called(ctx, complaintID, analysis, routing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketInfo), args.Error(1)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyTeam(ctx context.Context, complaintID string, record model.ComplaintRecord, routing model.RoutingDecision, ticket model.TicketInfo) (*model.NotificationInfo, error) {
	args := m.Called(ctx, complaintID, record, routing, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationInfo), args.Error(1)
}

func (m *mockNotifier) NotifyCustomer(ctx context.Context, record model.ComplaintRecord, ticket model.TicketInfo) (*model.NotificationInfo, error) {
	args := m.Called(ctx, record, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationInfo), args.Error(1)
}

// --- TeamSearcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchTeams(ctx context.Context, query, category string, topK int) ([]model.Team, error) {
	args := m.Called(ctx, query, category, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Team), args.Error(1)
}

// mockIndexedSearcher also keeps its own copy of the teams.
type mockIndexedSearcher struct {
	mockSearcher
}

func (m *mockIndexedSearcher) IndexTeams(ctx context.Context, teams []model.Team) (int64, error) {
	args := m.Called(ctx, teams)
	return int64(args.Int(0)), args.Error(1)
}

// --- Loader Mock ---

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context, source model.ComplaintSource, limit int) ([]model.ComplaintRecord, error) {
	args := m.Called(ctx, source, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ComplaintRecord), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveComplaint(ctx context.Context, state *model.WorkflowState) (string, error) {
	args := m.Called(ctx, state)
	return args.String(0), args.Error(1)
}

func (m *mockStore) GetComplaint(ctx context.Context, id string) (*model.WorkflowState, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkflowState), args.Error(1)
}

func (m *mockStore) ListComplaints(ctx context.Context, filter store.ComplaintFilter) ([]*model.WorkflowState, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WorkflowState), args.Error(1)
}

func (m *mockStore) LogEvent(ctx context.Context, complaintID, eventType string, details map[string]any) error {
	args := m.Called(ctx, complaintID, eventType, details)
	return args.Error(0)
}

func (m *mockStore) GetAuditLog(ctx context.Context, filter store.AuditFilter) ([]store.AuditEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.AuditEvent), args.Error(1)
}

func (m *mockStore) Stats(ctx context.Context) (*store.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Stats), args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Event Sink Mock ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Record(ctx context.Context, ev events.Event) error {
	return m.Called(ctx, ev).Error(0)
}

// --- Stage Fake ---

// fakeStage is a Stage whose hooks are plain functions, for Runner tests.
type fakeStage struct {
	name      string
	success   model.WorkflowStatus
	failure   model.WorkflowStatus
	initCalls int
	procCalls int
	initFn    func() error
	validFn   func(*model.WorkflowState) error
	procFn    func(*model.WorkflowState) error
}

func newFakeStage(name string) *fakeStage {
	return &fakeStage{name: name, success: model.StatusAnalyzed, failure: model.StatusFailedLLM}
}

func (f *fakeStage) Name() string                        { return f.name }
func (f *fakeStage) SuccessStatus() model.WorkflowStatus { return f.success }
func (f *fakeStage) FailureStatus() model.WorkflowStatus { return f.failure }

func (f *fakeStage) Init(context.Context) error {
	f.initCalls++
	if f.initFn != nil {
		return f.initFn()
	}
	return nil
}

func (f *fakeStage) Validate(state *model.WorkflowState) error {
	if f.validFn != nil {
		return f.validFn(state)
	}
	return nil
}

func (f *fakeStage) Process(_ context.Context, state *model.WorkflowState) error {
	f.procCalls++
	if f.procFn != nil {
		return f.procFn(state)
	}
	return nil
}
