package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Completer is the JSON chat completion used for analysis. *llm.Client
// satisfies it.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Transcriber converts dictated audio to text. *llm.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error)
}

// Analyzer extracts MEAT/TAMPER content from clinical narrative.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

const analysisSystemPrompt = `You are a medical documentation analyst. Categorize the clinical narrative you are given under the MEAT criteria (Monitor, Evaluate, Assess, Treat) and the TAMPER criteria (Time, Action, Medical Necessity, Plan, Education, Response).
Extract only the text relevant to each category. Use an empty string when the narrative has nothing for a category.`

const analysisUserPrompt = `Analyze this medical documentation:

%s

Respond with a JSON object containing exactly these string keys:
meat_monitor, meat_evaluate, meat_assess, meat_treat,
tamper_time, tamper_action, tamper_medical_necessity, tamper_plan, tamper_education, tamper_response`

// LLMAnalyzer asks a chat model for the MEAT/TAMPER breakdown.
type LLMAnalyzer struct {
	llm Completer
}

func NewLLMAnalyzer(llm Completer) *LLMAnalyzer {
	return &LLMAnalyzer{llm: llm}
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, text string) (*Analysis, error) {
	raw, err := a.llm.CompleteJSON(ctx, analysisSystemPrompt, fmt.Sprintf(analysisUserPrompt, text))
	if err != nil {
		return nil, err
	}
	return parseAnalysis(raw)
}

// parseAnalysis decodes the model output. Values that are not strings, such
// as lists of findings, are flattened into newline-separated text.
func parseAnalysis(raw string) (*Analysis, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	get := func(key string) string { return flatten(fields[key]) }
	return &Analysis{
		MeatMonitor:            get("meat_monitor"),
		MeatEvaluate:           get("meat_evaluate"),
		MeatAssess:             get("meat_assess"),
		MeatTreat:              get("meat_treat"),
		TamperTime:             get("tamper_time"),
		TamperAction:           get("tamper_action"),
		TamperMedicalNecessity: get("tamper_medical_necessity"),
		TamperPlan:             get("tamper_plan"),
		TamperEducation:        get("tamper_education"),
		TamperResponse:         get("tamper_response"),
	}, nil
}

func flatten(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
