package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Completer is the JSON chat completion used for extraction. *llm.Client
// satisfies it.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor derives answers to a tool's questions from clinical narrative.
// The returned map is keyed by question ID.
type Extractor interface {
	Extract(ctx context.Context, text string, questions []*Question) (map[uuid.UUID]string, error)
}

const extractionSystemPrompt = `You complete standardized clinical assessment forms from documentation.
Answer only questions the documentation supports. Omit any question you cannot answer from the text.
For questions with options, answer with the option value token exactly as listed.`

type LLMExtractor struct {
	llm Completer
}

func NewLLMExtractor(llm Completer) *LLMExtractor {
	return &LLMExtractor{llm: llm}
}

func (e *LLMExtractor) Extract(ctx context.Context, text string, questions []*Question) (map[uuid.UUID]string, error) {
	if strings.TrimSpace(text) == "" || len(questions) == 0 {
		return map[uuid.UUID]string{}, nil
	}
	raw, err := e.llm.CompleteJSON(ctx, extractionSystemPrompt, extractionPrompt(text, questions))
	if err != nil {
		return nil, err
	}
	return parseAnswers(raw, questions)
}

func extractionPrompt(text string, questions []*Question) string {
	var b strings.Builder
	b.WriteString("Documentation:\n")
	b.WriteString(text)
	b.WriteString("\n\nQuestions:\n")
	for _, q := range sortedQuestions(questions) {
		fmt.Fprintf(&b, "%d. %s (%s)\n", q.Order, q.Text, q.Type)
		for _, o := range q.Options {
			fmt.Fprintf(&b, "   - %s: %s\n", o.Value, o.Text)
		}
	}
	b.WriteString("\nRespond with a JSON object of the form {\"answers\": {\"<question number>\": \"<value>\"}}.")
	return b.String()
}

// parseAnswers maps the model's answers back to question IDs. Answers for
// unknown question numbers are dropped. An answer that repeats an option's
// display text is normalized to the option's value token.
func parseAnswers(raw string, questions []*Question) (map[uuid.UUID]string, error) {
	var envelope struct {
		Answers map[string]interface{} `json:"answers"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}

	byOrder := make(map[int]*Question, len(questions))
	for _, q := range questions {
		byOrder[q.Order] = q
	}

	out := make(map[uuid.UUID]string, len(envelope.Answers))
	for key, v := range envelope.Answers {
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		q, ok := byOrder[n]
		if !ok {
			continue
		}
		val := answerString(v)
		if val == "" {
			continue
		}
		out[q.ID] = normalizeOption(q, val)
	}
	return out, nil
}

func answerString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func normalizeOption(q *Question, val string) string {
	for _, o := range q.Options {
		if o.Value == val {
			return val
		}
	}
	for _, o := range q.Options {
		if strings.EqualFold(o.Text, val) {
			return o.Value
		}
	}
	return val
}
