package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rewrz/word-soul/internal/model"
)

var (
	effectPattern = regexp.MustCompile(`^\s*(\S+)\s*([+\-*/])\s*(\d+(\.\d+)?)\s*$`)
	costPattern   = regexp.MustCompile(`^\s*(.+?)\s*(-)\s*(\d+(\.\d+)?)\s*$`)
)

// ValidateSettingPack checks a world definition against the rule framework.
// Returns the full error list; an empty list means the pack is usable.
func ValidateSettingPack(pack *model.SettingPack) []string {
	var errs []string

	errs = append(errs, validateAttributeDimensions(pack.AttributeDimensions)...)
	errs = append(errs, validateItems(pack.Items, pack.AttributeDimensions)...)
	errs = append(errs, validateSkills(pack.Skills, pack.AttributeDimensions)...)
	errs = append(errs, validateTasks(pack.Tasks)...)
	errs = append(errs, validateNPCs(pack.NPCs, pack.AttributeDimensions)...)

	return errs
}

// ValidateGameState checks a session state for corruption before it is
// committed. Inventory items and cooldown skills are deliberately not
// matched against the pack: dynamically granted items and skills are
// allowed.
func ValidateGameState(state *model.CurrentState, pack *model.SettingPack) []string {
	var errs []string

	if state.Attributes == nil {
		return []string{"current_state is missing its attributes map"}
	}

	defined := definedAttributeNames(pack.AttributeDimensions)
	for name := range state.Attributes {
		if !contains(defined, name) {
			errs = append(errs, fmt.Sprintf("game state contains an undefined attribute: %q", name))
		}
	}

	for _, item := range state.Inventory {
		if strings.TrimSpace(item) == "" {
			errs = append(errs, "inventory contains an empty item name")
		}
	}

	for skill, cooldown := range state.Cooldowns {
		if strings.TrimSpace(skill) == "" {
			errs = append(errs, "cooldowns contain an empty skill name")
		}
		if cooldown < 0 {
			errs = append(errs, fmt.Sprintf("cooldown for %q must be non-negative", skill))
		}
	}

	return errs
}

func validateAttributeDimensions(dims map[string]model.AttributeDimension) []string {
	var errs []string

	required := []string{model.DimensionSurvival, model.DimensionOffense, model.DimensionResource}
	for _, dimType := range required {
		dim, ok := dims[dimType]
		if !ok {
			errs = append(errs, fmt.Sprintf("missing required dimension type: %s", dimType))
			continue
		}
		if strings.TrimSpace(dim.Name) == "" {
			errs = append(errs, fmt.Sprintf("dimension %q must name its attribute", dimType))
		}
	}

	return errs
}

func validateItems(items []model.Item, dims map[string]model.AttributeDimension) []string {
	var errs []string

	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, "each item must have a name (名称)")
			continue
		}
		if strings.TrimSpace(item.Type) == "" {
			errs = append(errs, fmt.Sprintf("item %q is missing its type (类型)", item.Name))
		}
		for _, effect := range item.Effects {
			errs = append(errs, validateEffect(effect, dims, item.Name)...)
		}
	}

	return errs
}

func validateSkills(skills []model.Skill, dims map[string]model.AttributeDimension) []string {
	var errs []string

	for _, skill := range skills {
		if strings.TrimSpace(skill.Name) == "" {
			errs = append(errs, "each skill must have a name (名称)")
			continue
		}
		if skill.Cost != "" {
			errs = append(errs, validateCost(skill.Cost, dims, skill.Name)...)
		}
		for _, effect := range skill.Effects {
			errs = append(errs, validateEffect(effect, dims, skill.Name)...)
		}
		if skill.Cooldown < 0 {
			errs = append(errs, fmt.Sprintf("skill %q cooldown (冷却时间) must be non-negative", skill.Name))
		}
	}

	return errs
}

func validateTasks(tasks []model.Task) []string {
	var errs []string

	for _, task := range tasks {
		if strings.TrimSpace(task.Name) == "" {
			errs = append(errs, fmt.Sprintf("task %q must have a non-empty name (名称)", task.Goal))
		}
		if strings.TrimSpace(task.Goal) == "" {
			errs = append(errs, fmt.Sprintf("task %q is missing its goal (目标)", task.Name))
		}
	}

	return errs
}

func validateNPCs(npcs []model.NPC, dims map[string]model.AttributeDimension) []string {
	var errs []string

	defined := definedAttributeNames(dims)
	for _, npc := range npcs {
		if strings.TrimSpace(npc.Name) == "" {
			errs = append(errs, "each NPC must have a name (名称)")
			continue
		}
		for attrName := range npc.Attributes {
			if !contains(defined, attrName) {
				errs = append(errs, fmt.Sprintf("NPC %q has an undefined attribute: %q (valid: %s)",
					npc.Name, attrName, strings.Join(defined, ", ")))
			}
		}
	}

	return errs
}

// validateEffect checks an effect string like "气血 + 20" against the
// defined attribute names.
func validateEffect(effect string, dims map[string]model.AttributeDimension, owner string) []string {
	match := effectPattern.FindStringSubmatch(effect)
	if match == nil {
		return []string{fmt.Sprintf("effect of %q has invalid format %q, expected '属性名 +/-/*// 数值'", owner, effect)}
	}

	attrName := strings.TrimSpace(match[1])
	defined := definedAttributeNames(dims)
	if !contains(defined, attrName) {
		return []string{fmt.Sprintf("effect of %q uses undefined attribute %q (valid: %s)",
			owner, attrName, strings.Join(defined, ", "))}
	}
	return nil
}

// validateCost checks a skill cost like "法力 - 10"; the attribute must be
// the pack's resource dimension.
func validateCost(cost string, dims map[string]model.AttributeDimension, skillName string) []string {
	match := costPattern.FindStringSubmatch(cost)
	if match == nil {
		return []string{fmt.Sprintf("cost of %q has invalid format %q, expected '资源名 - 数值'", skillName, cost)}
	}

	resource, ok := dims[model.DimensionResource]
	if !ok || resource.Name == "" {
		return []string{fmt.Sprintf("cost of %q cannot be checked: the pack defines no resource dimension", skillName)}
	}

	costAttr := strings.TrimSpace(match[1])
	if costAttr != resource.Name {
		return []string{fmt.Sprintf("cost of %q uses %q, but the resource attribute is %q", skillName, costAttr, resource.Name)}
	}
	return nil
}

func definedAttributeNames(dims map[string]model.AttributeDimension) []string {
	names := make([]string, 0, len(dims))
	for _, dim := range dims {
		names = append(names, dim.Name)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
