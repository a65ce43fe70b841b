// Package recognition turns photos of products, price lists and sale notes
// into validated records using the AI collaborator. Its answers are never
// trusted: anything outside the expected schema is rejected.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/domain/models"
	"github.com/mamadbah2/maleta/pkg/clients/anthropic"
)

var (
	// ErrUnusableResponse indicates the AI answer failed schema validation
	// or held nothing usable.
	ErrUnusableResponse = errors.New("unusable recognition response")
	// ErrUnavailable indicates no AI client is configured.
	ErrUnavailable = errors.New("recognition is not configured")
	// ErrUnknownTask indicates an unsupported task tag.
	ErrUnknownTask = errors.New("unknown recognition task")
)

// Request is one recognition call.
type Request struct {
	Task      models.RecognitionTask
	Image     []byte
	MediaType string
	// Note is free text from the operator, e.g. the representative's name.
	Note string
}

// Service calls the AI collaborator and validates its answers.
type Service struct {
	ai       anthropic.Client
	validate *validator.Validate
	logger   *zap.Logger
}

// NewService wires the recognition service. ai may be nil, in which case
// every call fails with ErrUnavailable.
func NewService(ai anthropic.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ai: ai, validate: validator.New(), logger: logger}
}

// Recognize runs req against the catalog and returns the validated result.
func (s *Service) Recognize(ctx context.Context, req Request, catalog []models.Product) (models.RecognitionResult, error) {
	if s.ai == nil {
		return models.RecognitionResult{}, ErrUnavailable
	}
	instruction, ok := instructions[req.Task]
	if !ok {
		return models.RecognitionResult{}, fmt.Errorf("%w: %q", ErrUnknownTask, req.Task)
	}
	if len(req.Image) == 0 {
		return models.RecognitionResult{}, fmt.Errorf("%w: image is required", ErrUnusableResponse)
	}

	prompt, err := buildPrompt(instruction, req.Note, catalog)
	if err != nil {
		return models.RecognitionResult{}, err
	}

	raw, err := s.ai.Complete(ctx, anthropic.Request{
		System:    systemPrompt,
		Prompt:    prompt,
		Image:     req.Image,
		MediaType: req.MediaType,
		Prefill:   "{",
	})
	if err != nil {
		s.logger.Warn("recognition call failed", zap.String("task", string(req.Task)), zap.Error(err))
		return models.RecognitionResult{}, fmt.Errorf("%w: %w", ErrUnusableResponse, err)
	}

	result, err := s.Decode(req.Task, raw, models.NewCatalog(catalog))
	if err != nil {
		s.logger.Warn("recognition response rejected",
			zap.String("task", string(req.Task)),
			zap.String("response", truncate(raw, 512)),
			zap.Error(err))
		return models.RecognitionResult{}, err
	}
	return result, nil
}

type productPayload struct {
	Products []models.ExtractedProduct `json:"products" validate:"required,min=1,dive"`
}

type salePayload struct {
	Sales []models.ExtractedSale `json:"sales" validate:"required,min=1,dive"`
}

// Decode strictly parses raw as the answer to task. Sale lines and match ids
// that are not in catalog are dropped and reported in Dropped.
func (s *Service) Decode(task models.RecognitionTask, raw string, catalog models.Catalog) (models.RecognitionResult, error) {
	body := stripFences(raw)
	result := models.RecognitionResult{Task: task}

	switch task {
	case models.TaskProductExtraction:
		var p productPayload
		if err := s.strict(body, &p); err != nil {
			return result, err
		}
		for i, e := range p.Products {
			if _, ok := models.ParseCategory(e.Category); !ok {
				return result, fmt.Errorf("%w: product %d has unknown category %q", ErrUnusableResponse, i+1, e.Category)
			}
			if e.Price.IsNegative() {
				return result, fmt.Errorf("%w: product %d has negative price", ErrUnusableResponse, i+1)
			}
		}
		result.Products = p.Products

	case models.TaskSaleExtraction:
		var p salePayload
		if err := s.strict(body, &p); err != nil {
			return result, err
		}
		for _, sale := range p.Sales {
			if _, ok := catalog[sale.ProductID]; !ok {
				result.Dropped = append(result.Dropped, sale.ProductID)
				continue
			}
			if sale.Value.IsNegative() {
				return result, fmt.Errorf("%w: sale of %s has negative value", ErrUnusableResponse, sale.ProductID)
			}
			result.Sales = append(result.Sales, sale)
		}
		if len(result.Sales) == 0 {
			return result, fmt.Errorf("%w: no sale matches the catalog", ErrUnusableResponse)
		}

	case models.TaskMatchSuggestion:
		var m models.MatchSuggestion
		if err := s.strict(body, &m); err != nil {
			return result, err
		}
		match := models.MatchSuggestion{Reason: m.Reason}
		if m.MatchID != "" {
			if _, ok := catalog[m.MatchID]; ok {
				match.MatchID = m.MatchID
			} else {
				result.Dropped = append(result.Dropped, m.MatchID)
			}
		}
		for _, id := range m.SuggestionsIDs {
			if _, ok := catalog[id]; ok {
				match.SuggestionsIDs = append(match.SuggestionsIDs, id)
			} else {
				result.Dropped = append(result.Dropped, id)
			}
		}
		if match.MatchID == "" && len(match.SuggestionsIDs) == 0 && match.Reason == "" {
			return result, fmt.Errorf("%w: empty match", ErrUnusableResponse)
		}
		result.Match = &match

	default:
		return result, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}

	if len(result.Dropped) > 0 {
		s.logger.Warn("recognition ids not in catalog dropped", zap.Strings("ids", result.Dropped))
	}
	return result, nil
}

func (s *Service) strict(body string, dst any) error {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrUnusableResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", ErrUnusableResponse)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrUnusableResponse, err)
	}
	return nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type catalogEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku,omitempty"`
	Category string `json:"category"`
	Price    string `json:"price"`
}

func buildPrompt(instruction, note string, catalog []models.Product) (string, error) {
	entries := make([]catalogEntry, 0, len(catalog))
	for _, p := range catalog {
		entries = append(entries, catalogEntry{ID: p.ID, Name: p.Name, SKU: p.SKU, Category: string(p.Category), Price: p.Price.StringFixed(2)})
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(entries); err != nil {
		return "", fmt.Errorf("encode catalog: %w", err)
	}

	prompt := instruction + "\n\nCatálogo:\n" + buf.String()
	if note = strings.TrimSpace(note); note != "" {
		prompt += "\nObservação: " + note
	}
	return prompt, nil
}
