// Package gemini extracts result fields by asking a multimodal model for
// schema-constrained JSON instead of matching text regions.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"typingscore/pkg/ocr"
)

const DefaultModel = "gemini-2.5-flash"

const prompt = `この画像はタイピングゲームの結果画面です。以下の情報を抽出し、厳密に指定されたJSON形式で返してください:
- level: レベル (数値)
- charCount: 文字数 (数値)
- accuracyRate: 正確率 (%を除いた数値、例: 98.5)
- mistypeCount: ミスタイプ数 (数値)`

// responseSchema requires exactly the four fields the screen always shows.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"level":        {Type: genai.TypeNumber, Description: "タイピングのレベル"},
		"charCount":    {Type: genai.TypeNumber, Description: "入力された文字数"},
		"accuracyRate": {Type: genai.TypeNumber, Description: "正確率 (パーセント)"},
		"mistypeCount": {Type: genai.TypeNumber, Description: "ミスタイプの回数"},
	},
	Required: []string{"level", "charCount", "accuracyRate", "mistypeCount"},
}

type generator interface {
	generate(ctx context.Context, image []byte, mimeType string) (string, error)
}

// StructuredExtractor implements ocr.Extractor on top of the Gemini API.
type StructuredExtractor struct {
	HTTPClient *http.Client
	gen        generator
}

// New creates an extractor that calls model with apiKey.
func New(ctx context.Context, apiKey, model string) (*StructuredExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &StructuredExtractor{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		gen:        &genaiGenerator{client: client, model: model},
	}, nil
}

// Analyze downloads the screenshot and asks the model for the result fields.
func (s *StructuredExtractor) Analyze(ctx context.Context, imageURL string) (ocr.Result, error) {
	img, mimeType, err := ocr.FetchImage(ctx, s.HTTPClient, imageURL)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: %v", ocr.ErrRecognition, err)
	}
	text, err := s.gen.generate(ctx, img, mimeType)
	if err != nil {
		return ocr.Result{}, fmt.Errorf("%w: gemini: %v", ocr.ErrRecognition, err)
	}
	res, err := decodeResult(text)
	if err != nil {
		log.Printf("gemini response rejected: %v text=%q", err, text)
		return ocr.Result{}, err
	}
	return res, nil
}

type payload struct {
	Level        *float64 `json:"level"`
	CharCount    *float64 `json:"charCount"`
	AccuracyRate *float64 `json:"accuracyRate"`
	MistypeCount *float64 `json:"mistypeCount"`
}

// decodeResult parses the model output. Text around the JSON object is
// tolerated. A missing field yields the same *ocr.FieldError as the
// geometric extractor.
func decodeResult(text string) (ocr.Result, error) {
	var p payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return ocr.Result{}, fmt.Errorf("%w: unparseable model output", ocr.ErrRecognition)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
			return ocr.Result{}, fmt.Errorf("%w: decode model output: %v", ocr.ErrRecognition, err)
		}
	}
	values := map[ocr.Field]*float64{
		ocr.FieldLevel:        p.Level,
		ocr.FieldCharCount:    p.CharCount,
		ocr.FieldAccuracyRate: p.AccuracyRate,
		ocr.FieldMistypeCount: p.MistypeCount,
	}
	var res ocr.Result
	for _, f := range ocr.RequiredFields {
		v := values[f]
		if v == nil || *v < 0 || math.IsNaN(*v) {
			return ocr.Result{}, &ocr.FieldError{Field: f, Reason: ocr.ReasonPatternNotFound}
		}
		if f == ocr.FieldAccuracyRate {
			res.Set(f, *v)
		} else {
			res.Set(f, math.Round(*v))
		}
	}
	return res, nil
}

type genaiGenerator struct {
	client *genai.Client
	model  string
}

func (g *genaiGenerator) generate(ctx context.Context, image []byte, mimeType string) (string, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}
