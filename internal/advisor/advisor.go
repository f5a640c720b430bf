// Package advisor talks to the Gemini API for receipt OCR, voice-to-expense
// parsing, ingredient extraction, market advice and menu suggestions. A
// malformed answer degrades to a friendly fallback, never a crash.
package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"goighem/internal/cache"
	"goighem/internal/core"
	"goighem/internal/log"
)

// HandbookTopic selects one of the fixed market-handbook subjects.
type HandbookTopic string

const (
	TopicPrices    HandbookTopic = "prices"
	TopicFreshness HandbookTopic = "freshness"
	TopicRecipes   HandbookTopic = "recipes"
)

const (
	// FallbackAdvice shows when the model is unreachable or unreadable.
	FallbackAdvice = "Chị ơi, em chưa lấy được thông tin. Chị thử lại sau nhé!"

	DefaultModel = "gemini-2.0-flash"
)

const categoryChoices = "Thực phẩm, Đồ gia dụng, Mỹ phẩm, Thời trang, Sức khỏe, Khác"

var handbookPrompts = map[HandbookTopic]string{
	TopicPrices:    "Hãy cung cấp thông tin tham khảo về giá cả một số mặt hàng thực phẩm phổ biến tại chợ Việt Nam hôm nay (thịt, cá, rau). Trình bày ngắn gọn, dễ thương.",
	TopicFreshness: "Hãy chia sẻ 3 mẹo chọn thực phẩm tươi ngon (ví dụ: cách chọn cá, chọn rau, chọn trái cây). Trình bày sinh động bằng emoji.",
	TopicRecipes:   "Hãy gợi ý 2 công thức nấu ăn tiết kiệm, nhanh gọn cho bữa cơm gia đình từ những nguyên liệu cơ bản. Trình bày rõ ràng.",
}

// Advisor is the client-side bridge to the hosted model.
type Advisor struct {
	client   *genai.Client
	model    string
	handbook *cache.LRU[string]
	logger   *log.Logger
}

func New(ctx context.Context, apiKey, model string, logger *log.Logger) (*Advisor, error) {
	if logger == nil {
		logger = log.New(nil, log.ComponentAdvisor)
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Advisor{
		client:   client,
		model:    model,
		handbook: cache.NewLRU[string](8, 30*time.Minute),
		logger:   logger,
	}, nil
}

func (a *Advisor) Close() error { return a.client.Close() }

// generate runs one request and concatenates the first candidate's text.
func (a *Advisor) generate(ctx context.Context, asJSON bool, parts ...genai.Part) (string, error) {
	model := a.client.GenerativeModel(a.model)
	if asJSON {
		model.ResponseMIMEType = "application/json"
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ScanReceipt reads an expense out of a receipt photo.
func (a *Advisor) ScanReceipt(ctx context.Context, image []byte, mimeType string) (ParsedExpense, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	prompt := fmt.Sprintf(`Hãy phân tích hóa đơn này và trả về dữ liệu JSON chính xác.
Bao gồm: tổng tiền (amount), danh mục (category - chọn một trong: %s), và một ghi chú ngắn gọn (note).`, categoryChoices)

	text, err := a.generate(ctx, true,
		genai.Blob{MIMEType: mimeType, Data: image},
		genai.Text(prompt),
	)
	if err != nil {
		a.logger.WarnContext(ctx, "receipt scan failed", log.FieldError, err.Error())
		return ParsedExpense{}, err
	}
	parsed, err := parseReceipt(text)
	if err != nil {
		a.logger.WarnContext(ctx, "unreadable receipt response", log.FieldError, err.Error())
		return ParsedExpense{}, err
	}
	return parsed, nil
}

// ParseVoice turns a spoken sentence into an expense. With several expenses
// in one utterance only the first is used; Extra reports the rest.
func (a *Advisor) ParseVoice(ctx context.Context, utterance string) (VoiceResult, error) {
	prompt := fmt.Sprintf(`Chuyển câu nói sau thành dữ liệu chi tiêu JSON: %q.
Ví dụ: "Mua rau 20k, thịt 50k" -> [{"amount": 20000, "category": "Thực phẩm", "note": "Rau"}, {"amount": 50000, "category": "Thực phẩm", "note": "Thịt"}]
Chọn category từ: %s.`, utterance, categoryChoices)

	text, err := a.generate(ctx, true, genai.Text(prompt))
	if err != nil {
		a.logger.WarnContext(ctx, "voice parse failed", log.FieldError, err.Error())
		return VoiceResult{}, err
	}
	result, err := parseVoice(text)
	if err != nil {
		a.logger.WarnContext(ctx, "unreadable voice response", log.FieldError, err.Error())
		return VoiceResult{}, err
	}
	return result, nil
}

// ExtractIngredients pulls shopping-list item names out of free text, for
// bulk-adding to the checklist. Failures degrade to an empty list.
func (a *Advisor) ExtractIngredients(ctx context.Context, text string) []string {
	prompt := fmt.Sprintf(`Từ đoạn văn sau, liệt kê các nguyên liệu cần mua dưới dạng mảng JSON các chuỗi tên nguyên liệu (tiếng Việt, ngắn gọn): %q.
Ví dụ: ["thịt ba chỉ", "hành lá", "nước mắm"].`, text)

	resp, err := a.generate(ctx, true, genai.Text(prompt))
	if err != nil {
		a.logger.WarnContext(ctx, "ingredient extraction failed", log.FieldError, err.Error())
		return nil
	}
	names, err := parseIngredients(resp)
	if err != nil {
		a.logger.WarnContext(ctx, "unreadable ingredient response", log.FieldError, err.Error())
		return nil
	}
	return names
}

// ShoppingAdvice returns short market tips for the given list. Never
// errors: a failure returns the friendly fallback text.
func (a *Advisor) ShoppingAdvice(ctx context.Context, items []string) string {
	if len(items) == 0 {
		return FallbackAdvice
	}
	prompt := fmt.Sprintf("Dựa trên danh sách mua sắm này: %s. Hãy đưa ra 2 mẹo đi chợ hoặc bảo quản thực phẩm ngắn gọn, dễ thương cho phụ nữ nội trợ.", strings.Join(items, ", "))

	text, err := a.generate(ctx, false, genai.Text(prompt))
	if err != nil {
		a.logger.WarnContext(ctx, "shopping advice failed", log.FieldError, err.Error())
		return FallbackAdvice
	}
	return text
}

// Handbook returns the market handbook text for a fixed topic. Answers are
// cached; repeated taps on the same topic reuse the last answer.
func (a *Advisor) Handbook(ctx context.Context, topic HandbookTopic) string {
	prompt, ok := handbookPrompts[topic]
	if !ok {
		return FallbackAdvice
	}
	if cached, ok := a.handbook.Get(string(topic)); ok {
		return cached
	}

	text, err := a.generate(ctx, false, genai.Text(prompt))
	if err != nil {
		a.logger.WarnContext(ctx, "handbook fetch failed", "topic", topic, log.FieldError, err.Error())
		return FallbackAdvice
	}
	a.handbook.Set(string(topic), text)
	return text
}

// SuggestMenu asks for a one-day budget menu with per-meal ingredients.
func (a *Advisor) SuggestMenu(ctx context.Context, budget core.Money) (MenuSuggestion, error) {
	prompt := fmt.Sprintf(`Hãy gợi ý thực đơn một ngày (sáng, trưa, tối) cho gia đình Việt với ngân sách khoảng %s.
Trả về JSON: {"tips": "...", "breakfast": {"dish": "...", "ingredients": ["..."]}, "lunch": {...}, "dinner": {...}}.`, budget.Format())

	text, err := a.generate(ctx, true, genai.Text(prompt))
	if err != nil {
		a.logger.WarnContext(ctx, "menu suggestion failed", log.FieldError, err.Error())
		return MenuSuggestion{}, err
	}
	menu, err := parseMenu(text)
	if err != nil {
		a.logger.WarnContext(ctx, "unreadable menu response", log.FieldError, err.Error())
		return MenuSuggestion{}, err
	}
	return menu, nil
}
