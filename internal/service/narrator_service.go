package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/rewrz/word-soul/internal/config"
	"github.com/rewrz/word-soul/internal/model"
)

var (
	ErrNarratorUnavailable = errors.New("narrator service unreachable")
	ErrNarratorBadOutput   = errors.New("narrator returned malformed output")
	ErrProviderUnsupported = errors.New("unsupported AI provider")
)

// Narrator generates game-master prose. The turn processor only sees this
// interface so tests can script replies.
type Narrator interface {
	GenerateTurn(ctx context.Context, pack *model.SettingPack, state *model.CurrentState, action string, unparsed bool, cfg *model.AIConfig) (*model.AIResponse, error)
	AssistWorld(ctx context.Context, req *model.AssistWorldRequest, cfg *model.AIConfig) (*model.AssistWorldResponse, error)
}

// NarratorService dispatches prompts to the configured LLM provider over
// plain HTTP. A per-session user config overrides the global default.
type NarratorService struct {
	global *config.AIConfig
	client *http.Client
}

// NewNarratorService creates a new narrator service
func NewNarratorService(global *config.AIConfig) *NarratorService {
	return &NarratorService{
		global: global,
		client: &http.Client{
			Timeout: time.Duration(global.TimeoutMS) * time.Millisecond,
		},
	}
}

// GenerateTurn asks the game master for the next narrative beat
func (s *NarratorService) GenerateTurn(ctx context.Context, pack *model.SettingPack, state *model.CurrentState, action string, unparsed bool, cfg *model.AIConfig) (*model.AIResponse, error) {
	prompt := buildTurnPrompt(pack, state, action, unparsed)
	raw, err := s.callLLM(ctx, prompt, cfg)
	if err != nil {
		return nil, err
	}

	var reply model.AIResponse
	if err := decodeNarratorJSON(raw, &reply); err != nil {
		log.Printf("[Narrator] malformed turn output: %v", err)
		return nil, ErrNarratorBadOutput
	}
	return &reply, nil
}

// AssistWorld completes a partially filled world-creation form
func (s *NarratorService) AssistWorld(ctx context.Context, req *model.AssistWorldRequest, cfg *model.AIConfig) (*model.AssistWorldResponse, error) {
	prompt := buildAssistPrompt(req)
	raw, err := s.callLLM(ctx, prompt, cfg)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		WorldName            string `json:"world_name"`
		CharacterDescription string `json:"character_description"`
		WorldRules           string `json:"world_rules"`
		InitialScene         string `json:"initial_scene"`
		NarrativePrinciples  string `json:"narrative_principles"`
	}
	if err := decodeNarratorJSON(raw, &parsed); err != nil {
		log.Printf("[Narrator] malformed assist output: %v", err)
		return nil, ErrNarratorBadOutput
	}

	// Always return the full field set, even when the model skipped one,
	// so the form can be repopulated without nil checks.
	return &model.AssistWorldResponse{
		WorldName:            parsed.WorldName,
		CharacterDescription: parsed.CharacterDescription,
		WorldRules:           parsed.WorldRules,
		InitialScene:         parsed.InitialScene,
		NarrativePrinciples:  parsed.NarrativePrinciples,
	}, nil
}

func (s *NarratorService) callLLM(ctx context.Context, prompt string, cfg *model.AIConfig) (string, error) {
	provider := s.global.Provider
	apiKey := s.global.APIKey
	baseURL := s.global.BaseURL
	modelName := s.global.ModelName

	if cfg != nil {
		log.Printf("[Narrator] using user config: %s", cfg.ConfigName)
		provider = strings.ToLower(cfg.APIType)
		apiKey = cfg.APIKey
		baseURL = cfg.BaseURL
		modelName = cfg.ModelName
	} else {
		log.Printf("[Narrator] no session config, using global default (%s)", provider)
	}

	switch provider {
	case model.ProviderOpenAI, model.ProviderLocalOpenAI:
		if apiKey == "" {
			return "", fmt.Errorf("provider %s: missing API key", provider)
		}
		if provider == model.ProviderLocalOpenAI && baseURL == "" {
			return "", fmt.Errorf("provider %s: base URL is required for local models", provider)
		}
		return s.callOpenAI(ctx, prompt, apiKey, baseURL, modelName)
	case model.ProviderGemini:
		if apiKey == "" {
			return "", fmt.Errorf("provider %s: missing API key", provider)
		}
		return s.callGemini(ctx, prompt, apiKey, modelName)
	case model.ProviderClaude:
		if apiKey == "" {
			return "", fmt.Errorf("provider %s: missing API key", provider)
		}
		return s.callClaude(ctx, prompt, apiKey, modelName)
	default:
		return "", fmt.Errorf("%w: %s", ErrProviderUnsupported, provider)
	}
}

func (s *NarratorService) callOpenAI(ctx context.Context, prompt, apiKey, baseURL, modelName string) (string, error) {
	url := "https://api.openai.com/v1/chat/completions"
	if baseURL != "" {
		url = strings.TrimSuffix(baseURL, "/") + "/v1/chat/completions"
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	payload := map[string]any{
		"model":       modelName,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": 0.7,
	}

	body, err := s.post(ctx, url, payload, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})
	if err != nil {
		return "", err
	}

	var data struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		log.Printf("[Narrator] OpenAI response is not JSON: %s", truncate(string(body), 300))
		return "", ErrNarratorBadOutput
	}
	if len(data.Error) > 0 && string(data.Error) != "null" {
		log.Printf("[Narrator] OpenAI API error: %s", data.Error)
		return "", fmt.Errorf("openai api error: %s", data.Error)
	}
	if len(data.Choices) == 0 {
		return "", ErrNarratorBadOutput
	}
	return data.Choices[0].Message.Content, nil
}

func (s *NarratorService) callGemini(ctx context.Context, prompt, apiKey, modelName string) (string, error) {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", modelName, apiKey)

	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, err := s.post(ctx, url, payload, nil)
	if err != nil {
		return "", err
	}

	var data struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		PromptFeedback json.RawMessage `json:"promptFeedback"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", ErrNarratorBadOutput
	}
	if len(data.Candidates) == 0 || len(data.Candidates[0].Content.Parts) == 0 {
		log.Printf("[Narrator] Gemini returned no candidates: %s", data.PromptFeedback)
		return "", ErrNarratorBadOutput
	}
	return data.Candidates[0].Content.Parts[0].Text, nil
}

func (s *NarratorService) callClaude(ctx context.Context, prompt, apiKey, modelName string) (string, error) {
	if modelName == "" {
		modelName = "claude-3-haiku-20240307"
	}

	payload := map[string]any{
		"model":      modelName,
		"max_tokens": 2048,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
	}

	body, err := s.post(ctx, "https://api.anthropic.com/v1/messages", payload, map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var data struct {
		Type    string `json:"type"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", ErrNarratorBadOutput
	}
	if data.Type == "error" {
		log.Printf("[Narrator] Claude API error: %s", data.Error.Message)
		return "", fmt.Errorf("claude api error: %s", data.Error.Message)
	}
	if len(data.Content) == 0 {
		return "", ErrNarratorBadOutput
	}
	return data.Content[0].Text, nil
}

func (s *NarratorService) post(ctx context.Context, url string, payload any, headers map[string]string) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Narrator] HTTP request failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrNarratorUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNarratorUnavailable, err)
	}
	if resp.StatusCode >= 400 {
		log.Printf("[Narrator] API returned %d: %s", resp.StatusCode, truncate(string(body), 300))
		return nil, fmt.Errorf("narrator api error %d", resp.StatusCode)
	}
	return body, nil
}

// decodeNarratorJSON strips markdown code fences the model tends to wrap
// its answer in, then unmarshals. Key matching is case-insensitive, so
// upper-case tags like "DESCRIPTION" land in the right fields.
func decodeNarratorJSON(text string, out any) error {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	return json.Unmarshal([]byte(cleaned), out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
