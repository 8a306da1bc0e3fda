package game

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadStartWords читает JSON-массив стартовых слов. Пустые строки и слова,
// от которых нельзя продолжить цепочку, отбрасываются.
func LoadStartWords(filename string) ([]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.TrimSpace(w)
		if NormalizeWord(w) == "" {
			continue
		}
		words = append(words, w)
	}

	if len(words) == 0 {
		return nil, fmt.Errorf("%s: no usable start words", filename)
	}
	return words, nil
}
