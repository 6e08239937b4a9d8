package model

import (
	"encoding/json"
	"time"
)

// Attribute dimension types every setting pack must define. The names are
// part of the rule-framework data format, not display strings.
const (
	DimensionSurvival = "生存"
	DimensionOffense  = "输出"
	DimensionResource = "资源"
)

// StringList accepts either a single string or an array of strings on the
// wire; world authors write item effects both ways.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// AttributeDimension maps a framework dimension type to a concrete
// world-specific attribute (e.g. 生存 -> 气血 starting at 100).
type AttributeDimension struct {
	Name         string  `bson:"name" json:"name"`
	InitialValue float64 `bson:"initial_value" json:"initial_value"`
}

// Item is a usable object defined by the setting pack
type Item struct {
	Name    string     `bson:"名称" json:"名称"`
	Type    string     `bson:"类型" json:"类型"`
	Effects StringList `bson:"效果" json:"效果"`
	Source  string     `bson:"获取,omitempty" json:"获取,omitempty"`
	Price   *float64   `bson:"价格,omitempty" json:"价格,omitempty"`
}

// Skill is an ability with a resource cost and optional cooldown
type Skill struct {
	Name     string     `bson:"名称" json:"名称"`
	Type     string     `bson:"类型,omitempty" json:"类型,omitempty"`
	Cost     string     `bson:"消耗,omitempty" json:"消耗,omitempty"`
	Effects  StringList `bson:"效果" json:"效果"`
	Cooldown int        `bson:"冷却时间,omitempty" json:"冷却时间,omitempty"`
}

// Task is a quest template in the setting pack
type Task struct {
	Name   string `bson:"名称" json:"名称"`
	Status string `bson:"状态" json:"状态"`
	Goal   string `bson:"目标" json:"目标"`
	Reward string `bson:"奖励,omitempty" json:"奖励,omitempty"`
}

// NPC is a non-player character defined by the setting pack
type NPC struct {
	Name        string             `bson:"名称" json:"名称"`
	Description string             `bson:"描述,omitempty" json:"描述,omitempty"`
	Location    string             `bson:"位置,omitempty" json:"位置,omitempty"`
	Attributes  map[string]float64 `bson:"attributes" json:"attributes"`
	IsHostile   bool               `bson:"is_hostile" json:"is_hostile"`
	Wares       []string           `bson:"售卖物品,omitempty" json:"售卖物品,omitempty"`
}

// SettingPack is the validated, structured world definition the turn
// processor runs against.
type SettingPack struct {
	AttributeDimensions map[string]AttributeDimension `bson:"attribute_dimensions" json:"attribute_dimensions"`
	Items               []Item                        `bson:"items" json:"items"`
	Skills              []Skill                       `bson:"skills" json:"skills"`
	Tasks               []Task                        `bson:"tasks" json:"tasks"`
	NPCs                []NPC                         `bson:"npcs" json:"npcs"`

	// Free-text fields kept for prompting and session bootstrap.
	CharacterDescription string `bson:"character_description,omitempty" json:"character_description,omitempty"`
	WorldRules           string `bson:"world_rules,omitempty" json:"world_rules,omitempty"`
	InitialScene         string `bson:"initial_scene,omitempty" json:"initial_scene,omitempty"`
	NarrativePrinciples  string `bson:"narrative_principles,omitempty" json:"narrative_principles,omitempty"`
}

// World is a player-created game world
type World struct {
	ID          int64       `bson:"_id" json:"id"`
	CreatorID   int64       `bson:"creator_id" json:"creator_id"`
	Name        string      `bson:"name" json:"name"`
	SettingPack SettingPack `bson:"setting_pack" json:"setting_pack"`
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
}

// CreateWorldRequest is the world-creation form
type CreateWorldRequest struct {
	WorldName            string `json:"world_name"`
	CharacterDescription string `json:"character_description"`
	WorldRules           string `json:"world_rules"`
	InitialScene         string `json:"initial_scene"`
	NarrativePrinciples  string `json:"narrative_principles"`
	ActiveAIConfigID     *int64 `json:"active_ai_config_id,omitempty"`
}

// CreateWorldResponse returns the ids of the new world and its first session
type CreateWorldResponse struct {
	Message   string `json:"message"`
	WorldID   int64  `json:"world_id"`
	SessionID int64  `json:"session_id"`
}

// AssistWorldRequest carries a partially filled world form for AI completion
type AssistWorldRequest struct {
	WorldName            string `json:"world_name"`
	CharacterDescription string `json:"character_description"`
	WorldRules           string `json:"world_rules"`
	InitialScene         string `json:"initial_scene"`
	NarrativePrinciples  string `json:"narrative_principles"`
	ActiveAIConfigID     *int64 `json:"active_ai_config_id,omitempty"`
}

// AssistWorldResponse is the AI-completed world form. Fields are always
// present (possibly empty) so a form can be repopulated wholesale.
type AssistWorldResponse struct {
	WorldName            string `json:"world_name"`
	CharacterDescription string `json:"character_description"`
	WorldRules           string `json:"world_rules"`
	InitialScene         string `json:"initial_scene"`
	NarrativePrinciples  string `json:"narrative_principles"`
}
