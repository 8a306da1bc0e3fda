package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/telebot.v3"
)

type MockBot struct {
	mock.Mock
}

func (m *MockBot) Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error) {
	args := m.Called(to, what)
	return &tb.Message{}, args.Error(1)
}

func (m *MockBot) Delete(msg tb.Editable) error {
	args := m.Called(msg)
	return args.Error(0)
}

func newTestNotifier(b BotInterface) *Notifier {
	return NewNotifier(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifier_Send(t *testing.T) {
	mb := new(MockBot)
	mb.On("Send", &tb.Chat{ID: -100}, "привет").Return(nil, nil).Once()

	err := newTestNotifier(mb).Send(context.Background(), -100, "привет")
	require.NoError(t, err)
	mb.AssertExpectations(t)
}

func TestNotifier_RetriesOnFlood(t *testing.T) {
	mb := new(MockBot)
	mb.On("Send", mock.Anything, "слово").Return(nil, tb.FloodError{RetryAfter: 0}).Once()
	mb.On("Send", mock.Anything, "слово").Return(nil, nil).Once()

	err := newTestNotifier(mb).Send(context.Background(), 1, "слово")
	require.NoError(t, err)
	mb.AssertNumberOfCalls(t, "Send", 2)
}

func TestNotifier_GivesUpAfterThreeFloods(t *testing.T) {
	mb := new(MockBot)
	mb.On("Send", mock.Anything, mock.Anything).Return(nil, tb.FloodError{RetryAfter: 0})

	err := newTestNotifier(mb).Send(context.Background(), 1, "слово")

	var flood tb.FloodError
	assert.True(t, errors.As(err, &flood))
	mb.AssertNumberOfCalls(t, "Send", sendAttempts)
}

func TestNotifier_NoRetryOnOtherErrors(t *testing.T) {
	mb := new(MockBot)
	mb.On("Send", mock.Anything, mock.Anything).Return(nil, tb.ErrChatNotFound)

	err := newTestNotifier(mb).Send(context.Background(), 1, "слово")

	assert.ErrorIs(t, err, tb.ErrChatNotFound)
	mb.AssertNumberOfCalls(t, "Send", 1)
}

func TestNotifier_Delete(t *testing.T) {
	mb := new(MockBot)
	mb.On("Delete", &tb.StoredMessage{MessageID: "55", ChatID: -100}).Return(nil).Once()

	require.NoError(t, newTestNotifier(mb).Delete(context.Background(), -100, 55))
	mb.AssertExpectations(t)
}

func TestNotifier_CancelledContext(t *testing.T) {
	mb := new(MockBot)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, newTestNotifier(mb).Send(ctx, 1, "x"), context.Canceled)
	mb.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
