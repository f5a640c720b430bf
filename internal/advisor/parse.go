package advisor

import (
	"encoding/json"
	"errors"
	"strings"

	"goighem/internal/core"
)

var ErrEmptyResponse = errors.New("empty model response")

// ParsedExpense is one expense the model read out of a receipt or an
// utterance.
type ParsedExpense struct {
	Amount   core.Money
	Category string
	Note     string
}

// VoiceResult carries the expense the app will use plus how many more the
// model found, so the user can be told the rest were skipped.
type VoiceResult struct {
	Expense ParsedExpense
	Extra   int
}

// Meal is one suggested dish with its shopping list.
type Meal struct {
	Dish        string   `json:"dish"`
	Ingredients []string `json:"ingredients"`
}

// MenuSuggestion is a one-day menu from the model.
type MenuSuggestion struct {
	Tips      string `json:"tips"`
	Breakfast Meal   `json:"breakfast"`
	Lunch     Meal   `json:"lunch"`
	Dinner    Meal   `json:"dinner"`
}

// stripFences removes a markdown code fence the model sometimes wraps JSON
// in, despite being asked for raw JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

type rawExpense struct {
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Note     string      `json:"note"`
}

func (r rawExpense) toParsed() ParsedExpense {
	amount, _ := r.Amount.Float64()
	category := strings.TrimSpace(r.Category)
	if category == "" || !core.IsBuiltinCategory(category) {
		category = core.CategoryOther
	}
	return ParsedExpense{
		Amount:   core.VND(int64(amount)),
		Category: category,
		Note:     strings.TrimSpace(r.Note),
	}
}

// parseReceipt reads the single-object receipt response.
func parseReceipt(text string) (ParsedExpense, error) {
	var raw rawExpense
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return ParsedExpense{}, err
	}
	p := raw.toParsed()
	if p.Amount.Amount <= 0 {
		return ParsedExpense{}, ErrEmptyResponse
	}
	return p, nil
}

// parseVoice reads the expense array response. Only the first entry is
// used; the count of extras is reported so the UI can mention them.
func parseVoice(text string) (VoiceResult, error) {
	var raws []rawExpense
	if err := json.Unmarshal([]byte(stripFences(text)), &raws); err != nil {
		return VoiceResult{}, err
	}
	var parsed []ParsedExpense
	for _, r := range raws {
		p := r.toParsed()
		if p.Amount.Amount > 0 {
			parsed = append(parsed, p)
		}
	}
	if len(parsed) == 0 {
		return VoiceResult{}, ErrEmptyResponse
	}
	return VoiceResult{Expense: parsed[0], Extra: len(parsed) - 1}, nil
}

// parseIngredients reads the name-array response, dropping blanks.
func parseIngredients(text string) ([]string, error) {
	var raws []string
	if err := json.Unmarshal([]byte(stripFences(text)), &raws); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raws))
	for _, r := range raws {
		if name := strings.TrimSpace(r); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// parseMenu reads the structured menu response.
func parseMenu(text string) (MenuSuggestion, error) {
	var menu MenuSuggestion
	if err := json.Unmarshal([]byte(stripFences(text)), &menu); err != nil {
		return MenuSuggestion{}, err
	}
	if menu.Breakfast.Dish == "" && menu.Lunch.Dish == "" && menu.Dinner.Dish == "" {
		return MenuSuggestion{}, ErrEmptyResponse
	}
	return menu, nil
}
