package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rewrz/word-soul/internal/cache"
	"github.com/rewrz/word-soul/internal/model"
	"github.com/rewrz/word-soul/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("game session not found")
	ErrWorldNotFound   = errors.New("world not found")
	ErrConfigNotFound  = errors.New("ai config not found")

	// ErrBadHistoryIndex means a narrative edit pointed outside the
	// recent-history window.
	ErrBadHistoryIndex = errors.New("history index out of range")

	// ErrNotNarrative means a narrative edit targeted a player entry.
	ErrNotNarrative = errors.New("entry is not a narrator entry")
)

// SessionService owns session lifecycle and the turn loop. Sessions are
// read through Redis with Mongo as the source of truth.
type SessionService struct {
	sessions repository.SessionRepo
	worlds   repository.WorldRepo
	settings repository.SettingRepo
	cache    cache.SessionCache
	narrator Narrator
}

func NewSessionService(sessions repository.SessionRepo, worlds repository.WorldRepo, settings repository.SettingRepo, sessionCache cache.SessionCache, narrator Narrator) *SessionService {
	return &SessionService{
		sessions: sessions,
		worlds:   worlds,
		settings: settings,
		cache:    sessionCache,
		narrator: narrator,
	}
}

// List returns the user's sessions for the main menu, most recent first
func (s *SessionService) List(ctx context.Context, userID int64) ([]model.SessionSummary, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	summaries := make([]model.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		name := "未知世界"
		if world, err := s.worlds.GetByID(ctx, session.WorldID); err == nil && world != nil {
			name = world.Name
		}
		summaries = append(summaries, model.SessionSummary{
			SessionID:  session.ID,
			WorldName:  name,
			LastPlayed: session.LastPlayed,
		})
	}
	return summaries, nil
}

// Get loads one session with its world name for the game screen
func (s *SessionService) Get(ctx context.Context, userID, sessionID int64) (*model.SessionDetail, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	world, err := s.worlds.GetByID(ctx, session.WorldID)
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if world == nil {
		return nil, ErrWorldNotFound
	}

	return &model.SessionDetail{
		SessionID:        session.ID,
		WorldID:          session.WorldID,
		WorldName:        world.Name,
		CurrentState:     session.CurrentState,
		ActiveAIConfigID: session.ActiveAIConfigID,
		LastPlayed:       session.LastPlayed,
	}, nil
}

// Delete removes a session the user owns
func (s *SessionService) Delete(ctx context.Context, userID, sessionID int64) error {
	if _, err := s.load(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("[Session] evict %d from cache: %v", sessionID, err)
	}
	return nil
}

// SetAIConfig binds the session to one of the user's AI configs. A nil
// configID reverts to the global default.
func (s *SessionService) SetAIConfig(ctx context.Context, userID, sessionID int64, configID *int64) error {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	if configID != nil {
		cfg, err := s.settings.GetByIDForUser(ctx, *configID, userID)
		if err != nil {
			return fmt.Errorf("load ai config: %w", err)
		}
		if cfg == nil {
			return ErrConfigNotFound
		}
	}

	session.ActiveAIConfigID = configID
	return s.persist(ctx, session)
}

// UpdateNarrative replaces the text of one narrator entry in recent
// history. Index 0 is the newest entry; only assistant entries may be
// edited. An edit to the newest reply also rewrites last_ai_response so a
// reload shows the edited text.
func (s *SessionService) UpdateNarrative(ctx context.Context, userID, sessionID int64, req *model.UpdateNarrativeRequest) (*model.GameSession, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	history := session.CurrentState.RecentHistory
	if req.HistoryIndex < 0 || req.HistoryIndex >= len(history) {
		return nil, ErrBadHistoryIndex
	}
	if history[req.HistoryIndex].Role != model.RoleAssistant {
		return nil, ErrNotNarrative
	}

	edited := sanitizeText(req.Narrative)
	history[req.HistoryIndex].Content = edited
	if req.HistoryIndex == 0 && session.CurrentState.LastAIResponse != nil {
		session.CurrentState.LastAIResponse.Description = edited
	}

	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// TakeAction runs one game turn and commits the resulting state
func (s *SessionService) TakeAction(ctx context.Context, userID, sessionID int64, action string) (*model.ActionResponse, error) {
	session, err := s.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	world, err := s.worlds.GetByID(ctx, session.WorldID)
	if err != nil {
		return nil, fmt.Errorf("load world: %w", err)
	}
	if world == nil {
		return nil, ErrWorldNotFound
	}

	var aiConfig *model.AIConfig
	if session.ActiveAIConfigID != nil {
		aiConfig, err = s.settings.GetByIDForUser(ctx, *session.ActiveAIConfigID, userID)
		if err != nil {
			return nil, fmt.Errorf("load ai config: %w", err)
		}
		if aiConfig == nil {
			log.Printf("[Session] session %d references missing ai config %d, using global", sessionID, *session.ActiveAIConfigID)
		}
	}

	processor := NewTurnProcessor(session, world, s.narrator, aiConfig)
	response, err := processor.ProcessTurn(ctx, action)
	if err != nil {
		return nil, err
	}

	if processor.WorldModified() {
		if err := s.worlds.Update(ctx, world); err != nil {
			return nil, fmt.Errorf("save world: %w", err)
		}
	}
	if err := s.persist(ctx, session); err != nil {
		return nil, err
	}
	return response, nil
}

// load fetches a session cache-first and enforces ownership. A session
// owned by someone else is reported as not found.
func (s *SessionService) load(ctx context.Context, userID, sessionID int64) (*model.GameSession, error) {
	session, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		log.Printf("[Session] cache read %d: %v", sessionID, err)
	}
	if session == nil {
		session, err = s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
	}
	if session == nil || session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// persist writes the session through to Mongo and refreshes the cache.
// The repository stamps last_played on update.
func (s *SessionService) persist(ctx context.Context, session *model.GameSession) error {
	if err := s.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := s.cache.Set(ctx, session); err != nil {
		log.Printf("[Session] cache write %d: %v", session.ID, err)
	}
	return nil
}
