package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rewrz/word-soul/internal/model"
	"github.com/rewrz/word-soul/internal/repository"
)

// PackValidationError carries the rule-framework problems that made a
// submitted setting pack unusable.
type PackValidationError struct {
	Problems []string
}

func (e *PackValidationError) Error() string {
	return "setting pack rejected: " + strings.Join(e.Problems, "; ")
}

// WorldService creates worlds and runs the AI world-building assistant
type WorldService struct {
	worlds   repository.WorldRepo
	sessions repository.SessionRepo
	settings repository.SettingRepo
	narrator Narrator
}

func NewWorldService(worlds repository.WorldRepo, sessions repository.SessionRepo, settings repository.SettingRepo, narrator Narrator) *WorldService {
	return &WorldService{worlds: worlds, sessions: sessions, settings: settings, narrator: narrator}
}

// Create builds a world from the creation form and opens its first game
// session. The world-rules field accepts either prose or a full JSON
// setting pack; prose gets the default attribute dimensions so the
// mechanical layer still has numbers to work with.
func (s *WorldService) Create(ctx context.Context, userID int64, req *model.CreateWorldRequest) (*model.CreateWorldResponse, error) {
	pack, err := buildSettingPack(req)
	if err != nil {
		return nil, err
	}
	if problems := ValidateSettingPack(pack); len(problems) > 0 {
		return nil, &PackValidationError{Problems: problems}
	}

	world := &model.World{
		CreatorID:   userID,
		Name:        req.WorldName,
		SettingPack: *pack,
		CreatedAt:   time.Now().UTC(),
	}
	worldID, err := s.worlds.Create(ctx, world)
	if err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}

	session := &model.GameSession{
		UserID:           userID,
		WorldID:          worldID,
		CurrentState:     initialState(pack, req),
		ActiveAIConfigID: req.ActiveAIConfigID,
		LastPlayed:       time.Now().UTC(),
	}
	sessionID, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create first session: %w", err)
	}

	return &model.CreateWorldResponse{
		Message:   fmt.Sprintf("世界 '%s' 已成功创造!", req.WorldName),
		WorldID:   worldID,
		SessionID: sessionID,
	}, nil
}

// Assist hands the partially filled creation form to the narrator. An
// invalid config id is ignored and the global configuration is used.
func (s *WorldService) Assist(ctx context.Context, userID int64, req *model.AssistWorldRequest) (*model.AssistWorldResponse, error) {
	var cfg *model.AIConfig
	if req.ActiveAIConfigID != nil {
		found, err := s.settings.GetByIDForUser(ctx, *req.ActiveAIConfigID, userID)
		if err != nil {
			return nil, fmt.Errorf("load ai config: %w", err)
		}
		cfg = found
	}
	return s.narrator.AssistWorld(ctx, req, cfg)
}

func buildSettingPack(req *model.CreateWorldRequest) (*model.SettingPack, error) {
	var pack model.SettingPack

	rules := strings.TrimSpace(req.WorldRules)
	if strings.HasPrefix(rules, "{") {
		if err := json.Unmarshal([]byte(rules), &pack); err != nil {
			return nil, &PackValidationError{Problems: []string{"万物之律不是有效的JSON设定包: " + err.Error()}}
		}
	} else {
		pack = defaultSettingPack()
		pack.WorldRules = req.WorldRules
	}

	pack.CharacterDescription = req.CharacterDescription
	pack.InitialScene = req.InitialScene
	pack.NarrativePrinciples = req.NarrativePrinciples
	if pack.WorldRules == "" {
		pack.WorldRules = req.WorldRules
	}
	return &pack, nil
}

// defaultSettingPack supplies the three required attribute dimensions for
// prose-only worlds.
func defaultSettingPack() model.SettingPack {
	return model.SettingPack{
		AttributeDimensions: map[string]model.AttributeDimension{
			model.DimensionSurvival: {Name: "气血", InitialValue: 100},
			model.DimensionOffense:  {Name: "力量", InitialValue: 10},
			model.DimensionResource: {Name: "灵石", InitialValue: 0},
		},
	}
}

// initialState seeds a fresh session from the pack's attribute dimensions
func initialState(pack *model.SettingPack, req *model.CreateWorldRequest) model.CurrentState {
	attrs := make(map[string]float64, len(pack.AttributeDimensions))
	for _, dim := range pack.AttributeDimensions {
		attrs[dim.Name] = dim.InitialValue
	}

	return model.CurrentState{
		PlayerCharacter: req.CharacterDescription,
		Attributes:      attrs,
		Inventory:       []string{},
		ActiveQuests:    map[string]string{},
		Cooldowns:       map[string]int{},
		CurrentLocation: req.InitialScene,
		RecentHistory:   []model.HistoryEntry{},
	}
}
