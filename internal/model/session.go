package model

import "time"

// GameSession is one ongoing playthrough of a world
type GameSession struct {
	ID               int64        `bson:"_id" json:"session_id"`
	UserID           int64        `bson:"user_id" json:"-"`
	WorldID          int64        `bson:"world_id" json:"world_id"`
	CurrentState     CurrentState `bson:"current_state" json:"current_state"`
	ActiveAIConfigID *int64       `bson:"active_ai_config_id,omitempty" json:"active_ai_config_id,omitempty"`
	LastPlayed       time.Time    `bson:"last_played" json:"last_played"`
}

// SessionSummary is one row of the session list on the main menu
type SessionSummary struct {
	SessionID  int64     `json:"session_id"`
	WorldName  string    `json:"world_name"`
	LastPlayed time.Time `json:"last_played"`
}

// SessionDetail is the full payload for loading a session
type SessionDetail struct {
	SessionID        int64        `json:"session_id"`
	WorldID          int64        `json:"world_id"`
	WorldName        string       `json:"world_name"`
	CurrentState     CurrentState `json:"current_state"`
	ActiveAIConfigID *int64       `json:"active_ai_config_id,omitempty"`
	LastPlayed       time.Time    `json:"last_played"`
}

// ActionRequest submits one player action
type ActionRequest struct {
	Action string `json:"action"`
}

// ActionResponse is the narrator reply plus the post-turn session state
type ActionResponse struct {
	AIResponse
	CurrentState *CurrentState `json:"current_state,omitempty"`
}

// SetAIConfigRequest binds a session to one of the user's AI configs.
// A nil ConfigID reverts the session to the global default.
type SetAIConfigRequest struct {
	ConfigID *int64 `json:"config_id"`
}

// UpdateNarrativeRequest edits a narrator entry in recent history by its
// server index (0 = newest).
type UpdateNarrativeRequest struct {
	Narrative    string `json:"narrative"`
	HistoryIndex int    `json:"history_index"`
}
