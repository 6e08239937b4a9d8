package model

import (
	"encoding/json"
)

// History entry roles. Only assistant entries may be edited after the fact.
const (
	RolePlayer    = "player"
	RoleAssistant = "assistant"
	RoleSystem    = "system-message"
)

// HistoryEntry is one line of the narrative log. The server keeps
// recent_history newest-first: index 0 is always the latest entry.
type HistoryEntry struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// CompletedQuest records a quest that has left the active set
type CompletedQuest struct {
	Name      string `bson:"name" json:"name"`
	Status    string `bson:"status" json:"status"`
	IsSuccess bool   `bson:"is_success" json:"is_success"`
}

// Combatant is an enemy currently engaged with the player
type Combatant struct {
	Name       string             `bson:"name" json:"name"`
	Attributes map[string]float64 `bson:"attributes" json:"attributes"`
}

// StatusEffect is a short-lived modifier on the player (e.g. defending)
type StatusEffect struct {
	Type     string `bson:"type" json:"type"`
	Duration int    `bson:"duration" json:"duration"`
}

// ActionResult summarizes what the mechanical action parser did this turn,
// so the narrator can describe it instead of inventing its own outcome.
type ActionResult struct {
	Type        string  `bson:"type" json:"type"`
	Target      string  `bson:"target,omitempty" json:"target,omitempty"`
	Damage      float64 `bson:"damage,omitempty" json:"damage,omitempty"`
	Reason      string  `bson:"reason,omitempty" json:"reason,omitempty"`
	VictoryInfo string  `bson:"victory_info,omitempty" json:"victory_info,omitempty"`
	DefeatInfo  string  `bson:"defeat_info,omitempty" json:"defeat_info,omitempty"`
}

// NPCActionResult is one NPC's move during the combat round
type NPCActionResult struct {
	NPC    string  `bson:"npc" json:"npc"`
	Action string  `bson:"action" json:"action"`
	Damage float64 `bson:"damage" json:"damage"`
}

// TradeInfo records a give/buy interaction for the narrator
type TradeInfo struct {
	NPC     string  `bson:"npc" json:"npc"`
	Item    string  `bson:"item" json:"item"`
	Success bool    `bson:"success,omitempty" json:"success,omitempty"`
	Reason  string  `bson:"reason,omitempty" json:"reason,omitempty"`
	Price   float64 `bson:"price,omitempty" json:"price,omitempty"`
}

// CurrentState is the full mutable state of one game session. Attribute
// values are numeric so effect strings ("气血 + 20") can be applied
// mechanically.
type CurrentState struct {
	PlayerCharacter string             `bson:"player_character" json:"player_character"`
	Attributes      map[string]float64 `bson:"attributes" json:"attributes"`
	Inventory       []string           `bson:"inventory" json:"inventory"`
	ActiveQuests    map[string]string  `bson:"active_quests" json:"active_quests"`
	CompletedQuests []CompletedQuest   `bson:"completed_quests" json:"completed_quests"`
	Cooldowns       map[string]int     `bson:"cooldowns" json:"cooldowns"`
	CurrentLocation string             `bson:"current_location" json:"current_location"`

	// RecentHistory is newest-first, mirroring the wire order. Capped at
	// ten entries (five player/narrator exchanges).
	RecentHistory []HistoryEntry `bson:"recent_history" json:"recent_history"`

	// LastAIResponse preserves the previous narrator reply so suggested
	// choices can be restored when a session is reloaded.
	LastAIResponse *AIResponse `bson:"last_ai_response,omitempty" json:"last_ai_response,omitempty"`

	// Combat bookkeeping.
	InCombat            bool           `bson:"in_combat,omitempty" json:"in_combat,omitempty"`
	Combatants          []Combatant    `bson:"combatants,omitempty" json:"combatants,omitempty"`
	PlayerStatusEffects []StatusEffect `bson:"player_status_effects,omitempty" json:"player_status_effects,omitempty"`

	// Transient per-turn flags, cleared at the start of the next turn.
	FocusTarget      string            `bson:"focus_target,omitempty" json:"focus_target,omitempty"`
	TalkTarget       string            `bson:"talk_target,omitempty" json:"talk_target,omitempty"`
	GiveInfo         *TradeInfo        `bson:"give_info,omitempty" json:"give_info,omitempty"`
	BuyInfo          *TradeInfo        `bson:"buy_info,omitempty" json:"buy_info,omitempty"`
	LastActionResult *ActionResult     `bson:"last_action_result,omitempty" json:"last_action_result,omitempty"`
	NPCActionResults []NPCActionResult `bson:"npc_action_results,omitempty" json:"npc_action_results,omitempty"`
}

// ClearTransient drops the flags that only describe the previous turn
func (s *CurrentState) ClearTransient() {
	s.FocusTarget = ""
	s.TalkTarget = ""
	s.GiveInfo = nil
	s.BuyInfo = nil
	s.LastActionResult = nil
	s.NPCActionResults = nil
}

// QuestSpec is a quest the narrator wants to add to the world
type QuestSpec struct {
	Name   string `bson:"名称" json:"名称"`
	Status string `bson:"状态,omitempty" json:"状态,omitempty"`
	Goal   string `bson:"目标" json:"目标"`
	Reward string `bson:"奖励,omitempty" json:"奖励,omitempty"`
}

// AIResponse is the structured narrator reply for one turn. Key matching
// is case-insensitive on decode, so the model may answer with the upper
// case tags its prompt shows ("DESCRIPTION" etc.).
type AIResponse struct {
	Description             string            `bson:"description" json:"description"`
	PlayerMessage           string            `bson:"player_message,omitempty" json:"player_message,omitempty"`
	AddItemToInventory      string            `bson:"add_item_to_inventory,omitempty" json:"add_item_to_inventory,omitempty"`
	RemoveItemFromInventory string            `bson:"remove_item_from_inventory,omitempty" json:"remove_item_from_inventory,omitempty"`
	UpdateQuestStatus       string            `bson:"update_quest_status,omitempty" json:"update_quest_status,omitempty"`
	UpdateLocation          string            `bson:"update_location,omitempty" json:"update_location,omitempty"`
	CreateNewQuest          *QuestSpec        `bson:"create_new_quest,omitempty" json:"create_new_quest,omitempty"`
	SuggestedChoices        []SuggestedChoice `bson:"suggested_choices,omitempty" json:"suggested_choices,omitempty"`
}

// SuggestedChoice is a server-proposed next action. Two wire shapes are
// accepted: a bare string (legacy) and a structured object. Decoding folds
// both into the structured form; ActionCommand falls back to DisplayText.
type SuggestedChoice struct {
	DisplayText   string   `bson:"display_text" json:"display_text"`
	ActionCommand string   `bson:"action_command,omitempty" json:"action_command,omitempty"`
	Details       []string `bson:"details,omitempty" json:"details,omitempty"`
}

func (c *SuggestedChoice) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		c.DisplayText = plain
		c.ActionCommand = plain
		c.Details = nil
		return nil
	}

	var obj struct {
		Text          string   `json:"text"`
		DisplayText   string   `json:"display_text"`
		ActionCommand string   `json:"action_command"`
		Details       []string `json:"details"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	c.DisplayText = obj.DisplayText
	if c.DisplayText == "" {
		// Legacy object form: {"text": "..."}
		c.DisplayText = obj.Text
	}
	c.ActionCommand = obj.ActionCommand
	if c.ActionCommand == "" {
		c.ActionCommand = c.DisplayText
	}
	c.Details = obj.Details
	return nil
}
