package memory

import (
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockBackingStore is a hand-written stand-in for what `mockgen` would
// generate from the BackingStore interface. Kept local to this package's
// tests rather than under a generated mock_memory package, since this is
// the only test that needs it.
type MockBackingStore struct {
	ctrl     *gomock.Controller
	recorder *MockBackingStoreMockRecorder
}

type MockBackingStoreMockRecorder struct {
	mock *MockBackingStore
}

func NewMockBackingStore(ctrl *gomock.Controller) *MockBackingStore {
	mock := &MockBackingStore{ctrl: ctrl}
	mock.recorder = &MockBackingStoreMockRecorder{mock}
	return mock
}

func (m *MockBackingStore) EXPECT() *MockBackingStoreMockRecorder {
	return m.recorder
}

func (m *MockBackingStore) WritePage(pid, page int, data []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "WritePage", pid, page, data)
	err, _ := ret[0].(error)
	return err
}

func (mr *MockBackingStoreMockRecorder) WritePage(pid, page, data interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "WritePage",
		reflect.TypeOf((*MockBackingStore)(nil).WritePage), pid, page, data)
}

func (m *MockBackingStore) ReadPage(pid, page int, into []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReadPage", pid, page, into)
	err, _ := ret[0].(error)
	return err
}

func (mr *MockBackingStoreMockRecorder) ReadPage(pid, page, into interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReadPage",
		reflect.TypeOf((*MockBackingStore)(nil).ReadPage), pid, page, into)
}

func (m *MockBackingStore) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	err, _ := ret[0].(error)
	return err
}

func (mr *MockBackingStoreMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close",
		reflect.TypeOf((*MockBackingStore)(nil).Close))
}
