package interview

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/merelin/diffa-sub000/common/types"
	"github.com/merelin/diffa-sub000/scan"
)

// MockVersionStore is a mock of VersionStore interface.
type MockVersionStore struct {
	ctrl     *gomock.Controller
	recorder *MockVersionStoreMockRecorder
}

// MockVersionStoreMockRecorder is the mock recorder for MockVersionStore.
type MockVersionStoreMockRecorder struct {
	mock *MockVersionStore
}

// NewMockVersionStore creates a new mock instance.
func NewMockVersionStore(ctrl *gomock.Controller) *MockVersionStore {
	mock := &MockVersionStore{ctrl: ctrl}
	mock.recorder = &MockVersionStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockVersionStore) EXPECT() *MockVersionStoreMockRecorder {
	return m.recorder
}

// ContinueInterview mocks base method.
func (m *MockVersionStore) ContinueInterview(
	ctx context.Context,
	endpoint string,
	q scan.Question,
	answers []scan.Answer,
) ([]scan.Question, types.EntityDifferences, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ContinueInterview", ctx, endpoint, q, answers)
	ret0, _ := ret[0].([]scan.Question)
	ret1, _ := ret[1].(types.EntityDifferences)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// ContinueInterview indicates an expected call of ContinueInterview.
func (mr *MockVersionStoreMockRecorder) ContinueInterview(
	ctx, endpoint, q, answers any,
) *MockVersionStoreContinueInterviewCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ContinueInterview",
		reflect.TypeOf((*MockVersionStore)(nil).ContinueInterview), ctx, endpoint, q, answers)
	return &MockVersionStoreContinueInterviewCall{Call: call}
}

// MockVersionStoreContinueInterviewCall wrap *gomock.Call.
type MockVersionStoreContinueInterviewCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockVersionStoreContinueInterviewCall) Return(
	arg0 []scan.Question,
	arg1 types.EntityDifferences,
	arg2 error,
) *MockVersionStoreContinueInterviewCall {
	c.Call = c.Call.Return(arg0, arg1, arg2)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockVersionStoreContinueInterviewCall) Do(
	f func(context.Context, string, scan.Question, []scan.Answer) ([]scan.Question, types.EntityDifferences, error),
) *MockVersionStoreContinueInterviewCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockVersionStoreContinueInterviewCall) DoAndReturn(
	f func(context.Context, string, scan.Question, []scan.Answer) ([]scan.Question, types.EntityDifferences, error),
) *MockVersionStoreContinueInterviewCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}

// InitialQuestion mocks base method.
func (m *MockVersionStore) InitialQuestion(ctx context.Context, endpoint string) (scan.Question, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "InitialQuestion", ctx, endpoint)
	ret0, _ := ret[0].(scan.Question)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// InitialQuestion indicates an expected call of InitialQuestion.
func (mr *MockVersionStoreMockRecorder) InitialQuestion(ctx, endpoint any) *MockVersionStoreInitialQuestionCall {
	mr.mock.ctrl.T.Helper()
	call := mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "InitialQuestion",
		reflect.TypeOf((*MockVersionStore)(nil).InitialQuestion), ctx, endpoint)
	return &MockVersionStoreInitialQuestionCall{Call: call}
}

// MockVersionStoreInitialQuestionCall wrap *gomock.Call.
type MockVersionStoreInitialQuestionCall struct {
	*gomock.Call
}

// Return rewrite *gomock.Call.Return.
func (c *MockVersionStoreInitialQuestionCall) Return(arg0 scan.Question, arg1 error) *MockVersionStoreInitialQuestionCall {
	c.Call = c.Call.Return(arg0, arg1)
	return c
}

// Do rewrite *gomock.Call.Do.
func (c *MockVersionStoreInitialQuestionCall) Do(
	f func(context.Context, string) (scan.Question, error),
) *MockVersionStoreInitialQuestionCall {
	c.Call = c.Call.Do(f)
	return c
}

// DoAndReturn rewrite *gomock.Call.DoAndReturn.
func (c *MockVersionStoreInitialQuestionCall) DoAndReturn(
	f func(context.Context, string) (scan.Question, error),
) *MockVersionStoreInitialQuestionCall {
	c.Call = c.Call.DoAndReturn(f)
	return c
}
