package game

import (
	"fmt"
	"math/rand/v2"

	messages "github.com/kiselevos/wordchain_game_bot/assets"
)

// Link - одно ребро кольца ходов: после PlayerID ходит NextPlayerID.
type Link struct {
	PlayerID     int64
	NextPlayerID int64
}

// BuildRing перемешивает игроков и замыкает их в цикл. Бот встаёт в кольцо
// прямо перед первым игроком, так что его преемник и есть первый ход.
func BuildRing(players []int64, rng *rand.Rand) ([]Link, int64, error) {
	if len(players) == 0 {
		return nil, 0, ErrNoEligiblePlayers
	}

	order := make([]int64, len(players))
	copy(order, players)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	// Перестановка равномерная, значит order[0] - равномерно случайный игрок.
	cycle := append([]int64{BotPlayerID}, order...)

	links := make([]Link, len(cycle))
	for i, id := range cycle {
		links[i] = Link{PlayerID: id, NextPlayerID: cycle[(i+1)%len(cycle)]}
	}
	return links, order[0], nil
}

// Ring - кольцо ходов поверх снимка SessionPlayer. Выбывшие остаются в кольце,
// Next их просто пропускает.
type Ring struct {
	order   []int64
	members map[int64]SessionPlayer
}

func NewRing(players []SessionPlayer) *Ring {
	r := &Ring{
		order:   make([]int64, 0, len(players)),
		members: make(map[int64]SessionPlayer, len(players)),
	}
	for _, p := range players {
		r.order = append(r.order, p.PlayerID)
		r.members[p.PlayerID] = p
	}
	return r
}

func (r *Ring) Member(id int64) (SessionPlayer, bool) {
	p, ok := r.members[id]
	return p, ok
}

// Eligible - живой человек в цикле: не бот, не выбыл и имеет преемника.
func (r *Ring) Eligible(id int64) bool {
	p, ok := r.members[id]
	return ok && id != BotPlayerID && !p.DroppedOut && p.NextPlayerID != 0
}

// Drop помечает игрока выбывшим только в этом снимке.
func (r *Ring) Drop(id int64) {
	if p, ok := r.members[id]; ok {
		p.DroppedOut = true
		r.members[id] = p
	}
}

// Next - следующий живой игрок после current. Обход ограничен размером кольца.
func (r *Ring) Next(current int64) (int64, error) {
	id := current
	for range len(r.members) {
		p, ok := r.members[id]
		if !ok {
			return 0, fmt.Errorf("%w: player %d is not in ring", ErrNoEligiblePlayers, id)
		}
		id = p.NextPlayerID
		if id == current {
			break
		}
		if r.Eligible(id) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: after player %d", ErrNoEligiblePlayers, current)
}

// Remaining - живые игроки в порядке снимка.
func (r *Ring) Remaining() []int64 {
	out := make([]int64, 0, len(r.order))
	for _, id := range r.order {
		if r.Eligible(id) {
			out = append(out, id)
		}
	}
	return out
}

func (r *Ring) Name(id int64) string {
	if p, ok := r.members[id]; ok && p.Name != "" {
		return p.Name
	}
	return messages.UnknownPerson
}
