package game

import (
	"strings"
	"unicode"
)

// Scorer - сколько очков приносит засчитанное слово.
type Scorer func(word string) int

func ConstantScore(points int) Scorer {
	return func(string) int { return points }
}

const DefaultWordPoints = 100

// FixedStartWord - стартовое слово, когда случайный выбор выключен.
const FixedStartWord = "тест"

var DefaultStartWords = []string{
	"арбуз", "школа", "облако", "дерево", "машина", "книга", "лампа",
	"пирог", "сахар", "телефон", "утюг", "карандаш", "орех", "зонт",
}

// ChainFits - первая буква next совпадает с последней буквой prev.
// Сравнение без учёта регистра, ё считается за е, знаки по краям отбрасываются.
func ChainFits(prev, next string) bool {
	p, n := normalizeWord(prev), normalizeWord(next)
	if len(p) == 0 || len(n) == 0 {
		return false
	}
	return p[len(p)-1] == n[0]
}

// NormalizeWord - то же приведение, что и в ChainFits, для хранения слова.
func NormalizeWord(w string) string {
	return string(normalizeWord(w))
}

func normalizeWord(w string) []rune {
	w = strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	w = strings.ToLower(w)
	w = strings.ReplaceAll(w, "ё", "е")
	return []rune(w)
}

type Decision int

const (
	DecisionPending Decision = iota
	DecisionApproved
	DecisionRejected
)

func (d Decision) String() string {
	switch d {
	case DecisionApproved:
		return "approved"
	case DecisionRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Verdict - итог по поданным голосам. Без голосов слово засчитывается:
// молчание группы считается согласием (спорное правило, оставлено как есть).
func Verdict(votes []Vote) Decision {
	if len(votes) == 0 {
		return DecisionApproved
	}
	yes := 0
	for _, v := range votes {
		if v.Value {
			yes++
		}
	}
	if 2*yes >= len(votes) {
		return DecisionApproved
	}
	return DecisionRejected
}

// Tally решает досрочно, только когда проголосовали все живые кроме автора.
// eligible - число живых игроков вместе с автором слова.
func Tally(votes []Vote, eligible int) Decision {
	if len(votes) < eligible-1 {
		return DecisionPending
	}
	return Verdict(votes)
}
