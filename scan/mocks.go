package scan

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockScannable is a mock of Scannable interface.
type MockScannable struct {
	ctrl     *gomock.Controller
	recorder *MockScannableMockRecorder
}

// MockScannableMockRecorder is the mock recorder for MockScannable.
type MockScannableMockRecorder struct {
	mock *MockScannable
}

// NewMockScannable creates a new mock instance.
func NewMockScannable(ctrl *gomock.Controller) *MockScannable {
	mock := &MockScannable{ctrl: ctrl}
	mock.recorder = &MockScannableMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockScannable) EXPECT() *MockScannableMockRecorder {
	return m.recorder
}

// Scan mocks base method.
func (m *MockScannable) Scan(ctx context.Context, q Question, handler PruningHandler) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Scan", ctx, q, handler)
	ret0, _ := ret[0].(error)
	return ret0
}

// Scan indicates an expected call of Scan.
func (mr *MockScannableMockRecorder) Scan(ctx, q, handler any) *MockScannableScanCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Scan",
		reflect.TypeOf((*MockScannable)(nil).Scan), ctx, q, handler)
	return &MockScannableScanCall{Call: call}
}

// MockScannableScanCall wrap *gomock.Call.
type MockScannableScanCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockScannableScanCall) Return(arg0 error) *MockScannableScanCall {
	c.Call = c.Call.Return(arg0)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockScannableScanCall) Do(f func(context.Context, Question, PruningHandler) error) *MockScannableScanCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockScannableScanCall) DoAndReturn(
	f func(context.Context, Question, PruningHandler) error,
) *MockScannableScanCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}

// MockPruningHandler is a mock of PruningHandler interface.
type MockPruningHandler struct {
	ctrl     *gomock.Controller
	recorder *MockPruningHandlerMockRecorder
}

// MockPruningHandlerMockRecorder is the mock recorder for MockPruningHandler.
type MockPruningHandlerMockRecorder struct {
	mock *MockPruningHandler
}

// NewMockPruningHandler creates a new mock instance.
func NewMockPruningHandler(ctrl *gomock.Controller) *MockPruningHandler {
	mock := &MockPruningHandler{ctrl: ctrl}
	mock.recorder = &MockPruningHandlerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockPruningHandler) EXPECT() *MockPruningHandlerMockRecorder {
	return m.recorder
}

// OnCompletion mocks base method.
func (m *MockPruningHandler) OnCompletion() {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "OnCompletion")
}

// OnCompletion indicates an expected call of OnCompletion.
func (mr *MockPruningHandlerMockRecorder) OnCompletion() *MockPruningHandlerOnCompletionCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnCompletion",
		reflect.TypeOf((*MockPruningHandler)(nil).OnCompletion))
	return &MockPruningHandlerOnCompletionCall{Call: call}
}

// MockPruningHandlerOnCompletionCall wrap *gomock.Call.
type MockPruningHandlerOnCompletionCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockPruningHandlerOnCompletionCall) Return() *MockPruningHandlerOnCompletionCall {
	c.Call = c.Call.Return()
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockPruningHandlerOnCompletionCall) Do(f func()) *MockPruningHandlerOnCompletionCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockPruningHandlerOnCompletionCall) DoAndReturn(f func()) *MockPruningHandlerOnCompletionCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}

// OnPrune mocks base method.
func (m *MockPruningHandler) OnPrune(ctx context.Context, answer Answer) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "OnPrune", ctx, answer)
	ret0, _ := ret[0].(error)
	return ret0
}

// OnPrune indicates an expected call of OnPrune.
func (mr *MockPruningHandlerMockRecorder) OnPrune(ctx, answer any) *MockPruningHandlerOnPruneCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "OnPrune",
		reflect.TypeOf((*MockPruningHandler)(nil).OnPrune), ctx, answer)
	return &MockPruningHandlerOnPruneCall{Call: call}
}

// MockPruningHandlerOnPruneCall wrap *gomock.Call.
type MockPruningHandlerOnPruneCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockPruningHandlerOnPruneCall) Return(arg0 error) *MockPruningHandlerOnPruneCall {
	c.Call = c.Call.Return(arg0)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockPruningHandlerOnPruneCall) Do(f func(context.Context, Answer) error) *MockPruningHandlerOnPruneCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockPruningHandlerOnPruneCall) DoAndReturn(f func(context.Context, Answer) error) *MockPruningHandlerOnPruneCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}
