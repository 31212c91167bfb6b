// Code generated by hand in the style of mockgen (golang/mock) output for
// session.HookDispatcher; regenerate with mockgen if the interface grows.
package mocks

import (
	"reflect"

	"github.com/golang/mock/gomock"

	"github.com/bugVanisher/srs-session/hooks"
)

// MockHookDispatcher is a mock of session.HookDispatcher.
type MockHookDispatcher struct {
	ctrl     *gomock.Controller
	recorder *MockHookDispatcherMockRecorder
}

// MockHookDispatcherMockRecorder is the mock recorder for MockHookDispatcher.
type MockHookDispatcherMockRecorder struct {
	mock *MockHookDispatcher
}

// NewMockHookDispatcher creates a new mock instance.
func NewMockHookDispatcher(ctrl *gomock.Controller) *MockHookDispatcher {
	mock := &MockHookDispatcher{ctrl: ctrl}
	mock.recorder = &MockHookDispatcherMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockHookDispatcher) EXPECT() *MockHookDispatcherMockRecorder {
	return m.recorder
}

// Fire mocks base method.
func (m *MockHookDispatcher) Fire(urls []string, payload hooks.Payload) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Fire", urls, payload)
}

// Fire indicates an expected call of Fire.
func (mr *MockHookDispatcherMockRecorder) Fire(urls, payload interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Fire", reflect.TypeOf((*MockHookDispatcher)(nil).Fire), urls, payload)
}

// Check mocks base method.
func (m *MockHookDispatcher) Check(urls []string, payload hooks.Payload) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Check", urls, payload)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Check indicates an expected call of Check.
func (mr *MockHookDispatcherMockRecorder) Check(urls, payload interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Check", reflect.TypeOf((*MockHookDispatcher)(nil).Check), urls, payload)
}
