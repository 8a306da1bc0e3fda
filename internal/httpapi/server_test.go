package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kiselevos/wordchain_game_bot/internal/game"
)

type MockStandings struct {
	mock.Mock
}

func (m *MockStandings) Standings(ctx context.Context, chatID int64) (game.Session, []game.Standing, error) {
	args := m.Called(chatID)
	players, _ := args.Get(1).([]game.Standing)
	return args.Get(0).(game.Session), players, args.Error(2)
}

type fixed int

func (f fixed) Pending() int { return int(f) }
func (f fixed) Len() int     { return int(f) }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{Standings: new(MockStandings), Queue: fixed(3), Timers: fixed(2)})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["pending_updates"])
	assert.EqualValues(t, 2, body["armed_timers"])
}

func TestStandings(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name         string
		path         string
		setupMock    func(*MockStandings)
		expectedCode int
		expectedBody string
	}{
		{
			name:         "invalid chat id",
			path:         "/chats/abc/standings",
			setupMock:    func(m *MockStandings) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: "invalid-chat-id",
		},
		{
			name: "no session",
			path: "/chats/-100/standings",
			setupMock: func(m *MockStandings) {
				m.On("Standings", int64(-100)).Return(game.Session{}, nil, game.ErrNoSession)
			},
			expectedCode: http.StatusNotFound,
			expectedBody: "no-session",
		},
		{
			name: "store error",
			path: "/chats/-100/standings",
			setupMock: func(m *MockStandings) {
				m.On("Standings", int64(-100)).Return(game.Session{}, nil, errors.New("db down"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: "unknown-error",
		},
		{
			name: "ok",
			path: "/chats/-100/standings",
			setupMock: func(m *MockStandings) {
				m.On("Standings", int64(-100)).Return(
					game.Session{ID: 9, State: game.VoteState},
					[]game.Standing{{PlayerID: 1, Name: "Аня", Points: 200}},
					nil,
				)
			},
			expectedCode: http.StatusOK,
			expectedBody: `"session_id":9`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := new(MockStandings)
			tc.setupMock(m)
			r := NewRouter(Deps{Standings: m})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.expectedCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.expectedBody)
			m.AssertExpectations(t)
		})
	}
}

func TestStandings_Body(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := new(MockStandings)
	m.On("Standings", int64(-100)).Return(
		game.Session{ID: 9, State: game.EndedState},
		[]game.Standing{{PlayerID: 1, Name: "Аня", Points: 200}, {PlayerID: 2, Name: "Боря", Dropped: true}},
		nil,
	)

	w := httptest.NewRecorder()
	NewRouter(Deps{Standings: m}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chats/-100/standings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got standingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	want := standingsResponse{
		SessionID: 9,
		State:     game.EndedState,
		Players: []game.Standing{
			{PlayerID: 1, Name: "Аня", Points: 200},
			{PlayerID: 2, Name: "Боря", Dropped: true},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("standings mismatch (-want +got):\n%s", diff)
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{Standings: new(MockStandings), AllowedOrigins: []string{"https://stats.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://stats.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://stats.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
