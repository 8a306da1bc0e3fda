package messages

import (
	"fmt"
	"strings"
)

const (
	Commands = "Команды: /start, /participate, /launch, /yes, /no, /end"

	AlreadyStarted    = "Игра уже идёт. Дождитесь окончания или попросите создателя написать /end"
	NoSession         = "Сейчас нет запущенной игры. Начните новую командой /start"
	CantJoinNow       = "Сейчас присоединиться нельзя, дождитесь новой игры"
	AlreadyLaunched   = "Игра уже запущена"
	TooFewPlayers     = "Слишком мало игроков, нужно хотя бы двое. Ждём ещё участников /participate"
	Launched          = "Игра началась!"
	GameNotLaunched   = "Сначала запустите игру командой /launch"
	NoWordToVote      = "Пока не за что голосовать, ждём слово"
	WordTimeEnded     = "⏰ Время вышло, слово так и не прозвучало"
	VoteTimeEnded     = "⏰ Голосование окончено, подводим итоги"
	AllPlayersVoted   = "Все проголосовали, подводим итоги"
	ErrorMessageUsers = "Что-то пошло не так. Игра остановлена, начните новую командой /start"

	UnknownPerson = "Анонимный Осётр"
)

func Started(name string) string {
	return fmt.Sprintf("%s в игре! Ждём остальных: /participate, затем создатель пишет /launch", name)
}

func AlreadyParticipates(name string) string {
	return fmt.Sprintf("%s уже участвует", name)
}

func Joined(name string) string {
	return fmt.Sprintf("%s присоединяется к игре", name)
}

func NotCreatorToLaunch(name string) string {
	return fmt.Sprintf("%s не создатель игры и не может её запустить", name)
}

func WrongTurn(name string) string {
	return fmt.Sprintf("Сейчас не ход игрока %s", name)
}

func WordDoesntFit(word string) string {
	return fmt.Sprintf("Слово «%s» не подходит", word)
}

func WordProposed(name, word string) string {
	return fmt.Sprintf("%s предлагает слово «%s»", name, word)
}

func CantVote(name string) string {
	return fmt.Sprintf("%s не может голосовать", name)
}

func AlreadyVoted(name string) string {
	return fmt.Sprintf("%s уже проголосовал(а)", name)
}

func SomeoneVoted(name, vote, word string) string {
	return fmt.Sprintf("%s голосует %s за «%s»", name, vote, word)
}

func RemindWord(word, name string) string {
	return fmt.Sprintf("Слово: «%s». %s, твой ход!", word, name)
}

func VoteForWord(word string) string {
	return fmt.Sprintf("Предложено слово «%s». Голосуйте /yes или /no — существует ли такое слово?", word)
}

func VoteNegative(word, dropped string) string {
	return fmt.Sprintf("«%s» не засчитано! %s выбывает", word, dropped)
}

func VotePositive(word, name string, points int) string {
	return fmt.Sprintf("«%s» засчитано! %s получает %d очков", word, name, points)
}

func PlayerDropped(name string) string {
	return fmt.Sprintf("%s выбывает", name)
}

func Winner(name string) string {
	return fmt.Sprintf("🏆 Победитель — %s!", name)
}

// Standing - строка финальной таблицы
type Standing struct {
	Name    string
	Points  int
	Dropped bool
}

func GameResults(rows []Standing) string {
	var b strings.Builder
	b.WriteString("🏁 Игра завершена!\n\n📊 Итоги:\n")
	for i, r := range rows {
		mark := ""
		if r.Dropped {
			mark = " (выбыл)"
		}
		b.WriteString(fmt.Sprintf("%d. %s — %d%s\n", i+1, r.Name, r.Points, mark))
	}
	return b.String()
}
