package vk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/SevereCloud/vksdk/v2/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) MessagesSend(params api.Params) (int, error) {
	args := m.Called(params)
	return args.Int(0), args.Error(1)
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_Send(t *testing.T) {
	m := new(MockAPI)
	m.On("MessagesSend", api.Params{
		"peer_id":   int64(2000000001),
		"message":   "привет",
		"random_id": 0,
	}).Return(1, nil).Once()

	err := NewNotifierWithAPI(m, quiet()).Send(context.Background(), 2000000001, "привет")
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestNotifier_SendError(t *testing.T) {
	boom := errors.New("vk down")
	m := new(MockAPI)
	m.On("MessagesSend", mock.Anything).Return(0, boom)

	err := NewNotifierWithAPI(m, quiet()).Send(context.Background(), 1, "x")
	assert.ErrorIs(t, err, boom)
}

func TestNotifier_DeleteIsNoop(t *testing.T) {
	m := new(MockAPI)

	require.NoError(t, NewNotifierWithAPI(m, quiet()).Delete(context.Background(), 1, 2))
	m.AssertNotCalled(t, "MessagesSend", mock.Anything)
}
