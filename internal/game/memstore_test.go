package game

import (
	"context"
	"sync"
	"time"
)

// --- fakes ---

// memStore - Store в памяти с теми же compare-and-set гарантиями, что и postgres.
type memStore struct {
	mu sync.Mutex

	seq      int64
	chats    map[int64]bool
	players  map[int64]Player
	sessions map[int64]*Session
	members  map[int64][]*SessionPlayer
	words    map[int64][]*Word
	votes    map[int64][]Vote

	// beforeLaunch вызывается один раз под мьютексом в начале Launch
	beforeLaunch func(sessionID int64)
}

func newMemStore() *memStore {
	return &memStore{
		chats:    make(map[int64]bool),
		players:  map[int64]Player{BotPlayerID: {ID: BotPlayerID, Name: BotPlayerName}},
		sessions: make(map[int64]*Session),
		members:  make(map[int64][]*SessionPlayer),
		words:    make(map[int64][]*Word),
		votes:    make(map[int64][]Vote),
	}
}

func (s *memStore) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *memStore) EnsureChat(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = true
	return nil
}

func (s *memStore) EnsurePlayer(_ context.Context, p Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; !ok {
		s.players[p.ID] = p
	}
	return nil
}

func (s *memStore) Player(_ context.Context, playerID int64) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return Player{}, ErrNotFound
	}
	return p, nil
}

func (s *memStore) activeLocked(chatID int64) *Session {
	for _, ss := range s.sessions {
		if ss.ChatID == chatID && ss.State != EndedState {
			return ss
		}
	}
	return nil
}

func (s *memStore) ActiveSession(_ context.Context, chatID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss := s.activeLocked(chatID); ss != nil {
		return *ss, nil
	}
	return Session{}, ErrNoSession
}

func (s *memStore) LastSession(_ context.Context, chatID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *Session
	for _, ss := range s.sessions {
		if ss.ChatID == chatID && (last == nil || ss.ID > last.ID) {
			last = ss
		}
	}
	if last == nil {
		return Session{}, ErrNoSession
	}
	return *last, nil
}

func (s *memStore) ActiveSessions(_ context.Context) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Session
	for _, ss := range s.sessions {
		if ss.State != EndedState {
			out = append(out, *ss)
		}
	}
	return out, nil
}

func (s *memStore) Session(_ context.Context, sessionID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *ss, nil
}

func (s *memStore) CreateSession(_ context.Context, chatID, creatorID int64) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked(chatID) != nil {
		return Session{}, ErrSessionExists
	}
	ss := &Session{ID: s.nextID(), ChatID: chatID, CreatorID: creatorID, State: PreparingState, UpdatedAt: time.Now()}
	s.sessions[ss.ID] = ss
	s.members[ss.ID] = []*SessionPlayer{{SessionID: ss.ID, PlayerID: creatorID}}
	return *ss, nil
}

func (s *memStore) memberLocked(sessionID, playerID int64) *SessionPlayer {
	for _, sp := range s.members[sessionID] {
		if sp.PlayerID == playerID {
			return sp
		}
	}
	return nil
}

func (s *memStore) JoinSession(_ context.Context, sessionID, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok || ss.State != PreparingState || s.memberLocked(sessionID, playerID) != nil {
		return false, nil
	}
	s.members[sessionID] = append(s.members[sessionID], &SessionPlayer{SessionID: sessionID, PlayerID: playerID})
	return true, nil
}

func (s *memStore) SessionPlayers(_ context.Context, sessionID int64) ([]SessionPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SessionPlayer, 0, len(s.members[sessionID]))
	for _, sp := range s.members[sessionID] {
		cp := *sp
		cp.Name = s.players[sp.PlayerID].Name
		out = append(out, cp)
	}
	return out, nil
}

func (s *memStore) Launch(_ context.Context, sessionID int64, ring []Link, firstPlayerID int64, startWord string) (Word, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok || ss.State != PreparingState {
		return Word{}, false, nil
	}
	if s.beforeLaunch != nil {
		s.beforeLaunch(sessionID)
		s.beforeLaunch = nil
	}
	humans := 0
	for _, sp := range s.members[sessionID] {
		if sp.PlayerID != BotPlayerID {
			humans++
		}
	}
	inRing := 0
	for _, l := range ring {
		if l.PlayerID == BotPlayerID {
			continue
		}
		if s.memberLocked(sessionID, l.PlayerID) == nil {
			return Word{}, false, ErrStaleRing
		}
		inRing++
	}
	if inRing != humans {
		return Word{}, false, ErrStaleRing
	}
	if s.memberLocked(sessionID, BotPlayerID) == nil {
		s.members[sessionID] = append(s.members[sessionID], &SessionPlayer{SessionID: sessionID, PlayerID: BotPlayerID})
	}
	for _, l := range ring {
		if sp := s.memberLocked(sessionID, l.PlayerID); sp != nil {
			sp.NextPlayerID = l.NextPlayerID
		}
	}
	ss.State = WaitingWordState
	ss.TurnPlayerID = firstPlayerID

	approved := true
	w := &Word{ID: s.nextID(), SessionID: sessionID, Text: startWord, ProposedBy: BotPlayerID, Approved: &approved}
	s.words[sessionID] = append(s.words[sessionID], w)
	return *w, true, nil
}

func (s *memStore) Transit(_ context.Context, sessionID int64, from State, fromTurn int64, to State, toTurn int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok || ss.State != from || ss.TurnPlayerID != fromTurn {
		return false, nil
	}
	ss.State = to
	ss.TurnPlayerID = toTurn
	return true, nil
}

func (s *memStore) ProposeWord(_ context.Context, sessionID, playerID, previousWordID int64, text string) (Word, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok || ss.State != WaitingWordState || ss.TurnPlayerID != playerID {
		return Word{}, false, nil
	}
	ss.State = VoteState
	w := &Word{ID: s.nextID(), SessionID: sessionID, Text: text, ProposedBy: playerID, PreviousWordID: previousWordID}
	s.words[sessionID] = append(s.words[sessionID], w)
	return *w, true, nil
}

func (s *memStore) LatestWord(_ context.Context, sessionID int64) (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.words[sessionID]
	if len(ws) == 0 {
		return Word{}, ErrNotFound
	}
	return copyWord(ws[len(ws)-1]), nil
}

func (s *memStore) LastApprovedWord(_ context.Context, sessionID int64) (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.words[sessionID]
	for i := len(ws) - 1; i >= 0; i-- {
		if ws[i].Approved != nil && *ws[i].Approved {
			return copyWord(ws[i]), nil
		}
	}
	return Word{}, ErrNotFound
}

func copyWord(w *Word) Word {
	cp := *w
	if w.Approved != nil {
		v := *w.Approved
		cp.Approved = &v
	}
	return cp
}

func (s *memStore) ResolveWord(_ context.Context, wordID int64, approved bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ws := range s.words {
		for _, w := range ws {
			if w.ID == wordID {
				if w.Approved != nil {
					return false, nil
				}
				w.Approved = &approved
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *memStore) RecordVote(_ context.Context, wordID, playerID int64, value bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes[wordID] {
		if v.PlayerID == playerID {
			return false, nil
		}
	}
	s.votes[wordID] = append(s.votes[wordID], Vote{WordID: wordID, PlayerID: playerID, Value: value})
	return true, nil
}

func (s *memStore) WordVotes(_ context.Context, wordID int64) ([]Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Vote, len(s.votes[wordID]))
	copy(out, s.votes[wordID])
	return out, nil
}

func (s *memStore) AwardPoints(_ context.Context, sessionID, playerID int64, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp := s.memberLocked(sessionID, playerID); sp != nil {
		sp.Points += points
	}
	return nil
}

func (s *memStore) DropPlayer(_ context.Context, sessionID, playerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp := s.memberLocked(sessionID, playerID)
	if sp == nil || sp.DroppedOut {
		return false, nil
	}
	sp.DroppedOut = true
	return true, nil
}

func (s *memStore) EndSession(_ context.Context, sessionID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok || ss.State == EndedState {
		return false, nil
	}
	ss.State = EndedState
	return true, nil
}

type sentMessage struct {
	ChatID int64
	Text   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	deleted []int

	// failOn - тексты, на которых Send возвращает ошибку
	failOn map[string]error
}

func (n *fakeNotifier) Send(_ context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failOn[text]; ok {
		return err
	}
	n.sent = append(n.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (n *fakeNotifier) failText(text string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failOn == nil {
		n.failOn = make(map[string]error)
	}
	n.failOn[text] = err
}

func (n *fakeNotifier) Delete(_ context.Context, _ int64, messageID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, messageID)
	return nil
}

func (n *fakeNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Text)
	}
	return out
}

func (n *fakeNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[len(n.sent)-1].Text
}

func (n *fakeNotifier) deletedIDs() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int, len(n.deleted))
	copy(out, n.deleted)
	return out
}
