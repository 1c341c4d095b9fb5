package mock

import (
	context "context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	models "github.com/greedisland/greedbot/gibot/database/models"
	inventory "github.com/greedisland/greedbot/gibot/island/inventory"
)

// MockStore is a mock of Store interface.
type MockStore struct {
	ctrl     *gomock.Controller
	recorder *MockStoreMockRecorder
	isgomock struct{}
}

// MockStoreMockRecorder is the mock recorder for MockStore.
type MockStoreMockRecorder struct {
	mock *MockStore
}

// NewMockStore creates a new mock instance.
func NewMockStore(ctrl *gomock.Controller) *MockStore {
	mock := &MockStore{ctrl: ctrl}
	mock.recorder = &MockStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStore) EXPECT() *MockStoreMockRecorder {
	return m.recorder
}

// Load mocks base method.
func (m *MockStore) Load(ctx context.Context, userID string) (*inventory.Inventory, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Load", ctx, userID)
	ret0, _ := ret[0].(*inventory.Inventory)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Load indicates an expected call of Load.
func (mr *MockStoreMockRecorder) Load(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Load", reflect.TypeOf((*MockStore)(nil).Load), ctx, userID)
}

// Apply mocks base method.
func (m *MockStore) Apply(ctx context.Context, mut *inventory.Mutation) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Apply", ctx, mut)
	ret0, _ := ret[0].(error)
	return ret0
}

// Apply indicates an expected call of Apply.
func (mr *MockStoreMockRecorder) Apply(ctx, mut any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Apply", reflect.TypeOf((*MockStore)(nil).Apply), ctx, mut)
}

// MockCardResolver is a mock of CardResolver interface.
type MockCardResolver struct {
	ctrl     *gomock.Controller
	recorder *MockCardResolverMockRecorder
	isgomock struct{}
}

// MockCardResolverMockRecorder is the mock recorder for MockCardResolver.
type MockCardResolverMockRecorder struct {
	mock *MockCardResolver
}

// NewMockCardResolver creates a new mock instance.
func NewMockCardResolver(ctrl *gomock.Controller) *MockCardResolver {
	mock := &MockCardResolver{ctrl: ctrl}
	mock.recorder = &MockCardResolverMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockCardResolver) EXPECT() *MockCardResolverMockRecorder {
	return m.recorder
}

// GetByID mocks base method.
func (m *MockCardResolver) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetByID", ctx, id)
	ret0, _ := ret[0].(*models.Card)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetByID indicates an expected call of GetByID.
func (mr *MockCardResolverMockRecorder) GetByID(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetByID", reflect.TypeOf((*MockCardResolver)(nil).GetByID), ctx, id)
}

// MockCapChecker is a mock of CapChecker interface.
type MockCapChecker struct {
	ctrl     *gomock.Controller
	recorder *MockCapCheckerMockRecorder
	isgomock struct{}
}

// MockCapCheckerMockRecorder is the mock recorder for MockCapChecker.
type MockCapCheckerMockRecorder struct {
	mock *MockCapChecker
}

// NewMockCapChecker creates a new mock instance.
func NewMockCapChecker(ctrl *gomock.Controller) *MockCapChecker {
	mock := &MockCapChecker{ctrl: ctrl}
	mock.recorder = &MockCapCheckerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockCapChecker) EXPECT() *MockCapCheckerMockRecorder {
	return m.recorder
}

// CheckCap mocks base method.
func (m *MockCapChecker) CheckCap(ctx context.Context, card *models.Card, pending int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CheckCap", ctx, card, pending)
	ret0, _ := ret[0].(error)
	return ret0
}

// CheckCap indicates an expected call of CheckCap.
func (mr *MockCapCheckerMockRecorder) CheckCap(ctx, card, pending any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CheckCap", reflect.TypeOf((*MockCapChecker)(nil).CheckCap), ctx, card, pending)
}
