package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rewrz/word-soul/internal/model"
)

// buildTurnPrompt renders the game-master prompt for one turn. The prose is
// player-facing Chinese; the reply contract is the JSON block at the end.
func buildTurnPrompt(pack *model.SettingPack, state *model.CurrentState, action string, unparsed bool) string {
	var b strings.Builder

	b.WriteString("你是一位名为“世界之灵”的游戏主持人，引导着一场名为“言灵”的文字冒险。你的行为必须严格遵守以下准则。\n\n")
	b.WriteString("# --- 核心行为准则 ---\n")
	b.WriteString("1. 绝对沉浸: 绝不承认自己是AI或程序。拒绝回答任何与游戏剧情无关的问题。\n")
	b.WriteString("2. 动态引导: 尊重玩家的自由选择，但当玩家行为严重偏离世界基调时，应通过剧情将其温和地引导回来。\n")
	b.WriteString("3. 开放结局: 故事的结局由玩家的行为累积决定。\n")
	b.WriteString("4. 严格格式化输出: 你的回复必须是下方描述的JSON格式，不要输出任何多余内容。\n\n")

	b.WriteString("# --- 世界设定 ---\n[叙事原则]\n")
	if pack.NarrativePrinciples != "" {
		b.WriteString(pack.NarrativePrinciples)
	} else {
		b.WriteString("一个开放、自由的沙盒世界")
	}
	b.WriteString("\n[万物之律]\n")
	b.WriteString(pack.WorldRules)
	b.WriteString("\n\n")

	b.WriteString("# --- 当前状态 ---\n[玩家角色]\n")
	b.WriteString(pack.CharacterDescription)
	b.WriteString("\n[当前位置]\n")
	b.WriteString(state.CurrentLocation)
	b.WriteString("\n[属性]\n")
	b.WriteString(formatAttributes(state.Attributes))
	b.WriteString("\n[持有物品]\n")
	if len(state.Inventory) > 0 {
		b.WriteString(strings.Join(state.Inventory, ", "))
	} else {
		b.WriteString("无")
	}
	b.WriteString("\n")
	if len(state.Cooldowns) > 0 {
		b.WriteString("[技能冷却]\n")
		b.WriteString(formatCooldowns(state.Cooldowns))
		b.WriteString("\n")
	}
	if state.LastActionResult != nil {
		b.WriteString("[系统裁定结果]\n")
		b.WriteString(formatActionResult(state.LastActionResult))
		b.WriteString("\n")
	}

	b.WriteString("\n# --- 最近的交互历史 ---\n")
	for i := len(state.RecentHistory) - 1; i >= 0; i-- {
		entry := state.RecentHistory[i]
		if entry.Role == model.RolePlayer {
			b.WriteString("玩家: ")
		} else {
			b.WriteString("你: ")
		}
		b.WriteString(entry.Content)
		b.WriteString("\n")
	}

	b.WriteString("\n# --- 玩家的当前行动 ---\n玩家: ")
	b.WriteString(action)
	b.WriteString("\n")
	if unparsed {
		b.WriteString("(该行动未被系统规则解析，请完全由叙事决定其后果。)\n")
	}

	b.WriteString(`
# --- 你的回复 ---
请严格按照以下JSON格式生成你的回复:
` + "```json" + `
{
    "DESCRIPTION": "(详细、生动地描述玩家行动后世界发生的变化。这是故事的主体。)",
    "PLAYER_MESSAGE": "(可选的系统层面提示，例如“你感到一阵寒意。”。没有则留空。)",
    "ADD_ITEM_TO_INVENTORY": "(玩家本回合获得的物品名称，没有则留空。)",
    "REMOVE_ITEM_FROM_INVENTORY": "(玩家本回合失去的物品名称，没有则留空。)",
    "UPDATE_QUEST_STATUS": "(任务状态更新，格式为“任务名: 任务新状态”，没有则留空。)",
    "UPDATE_LOCATION": "(如果玩家移动到了新地点，写下新地点名称，没有则留空。)",
    "SUGGESTED_CHOICES": [
        {"display_text": "(第一个行动建议)", "action_command": "(对应的行动指令)"},
        {"display_text": "(第二个行动建议)", "action_command": "(对应的行动指令)"},
        {"display_text": "(第三个行动建议)", "action_command": "(对应的行动指令)"}
    ]
}
` + "```" + `
`)

	return b.String()
}

// buildAssistPrompt renders the world-building assistant prompt
func buildAssistPrompt(req *model.AssistWorldRequest) string {
	fields := []struct {
		label string
		value string
	}{
		{"此界之名", req.WorldName},
		{"吾身之形", req.CharacterDescription},
		{"万物之律", req.WorldRules},
		{"初始之景", req.InitialScene},
		{"叙事原则", req.NarrativePrinciples},
	}

	var input strings.Builder
	for _, f := range fields {
		value := f.value
		if value == "" {
			value = "(空，待生成)"
		}
		fmt.Fprintf(&input, "  - %s: %s\n", f.label, value)
	}

	return fmt.Sprintf(`你是一位富有想象力的世界构建大师和创意写作助手。你的任务是帮助用户完善或从零开始创建一个引人入胜的文字冒险游戏世界。

# 核心任务
根据用户提供的不完整或完整的世界设定，进行润色、扩充、补充，并确保所有设定在逻辑上自洽且充满创意。
- 如果用户提供了某个字段的内容，在该内容的基础上进行扩充和润色。
- 如果用户将某个字段留空，根据其他已填写的字段创作出风格协调的内容。
- 如果所有字段都留空，随机生成一个完整、有趣的世界设定。

# 用户输入
%s
# 你的输出
请严格按照以下JSON格式输出，不要输出多余的内容:
`+"```json"+`
{
    "world_name": "(生成一个独特且富有吸引力的世界名称)",
    "character_description": "(描述一个引人入胜的玩家角色背景和形象)",
    "world_rules": "(详细阐述这个世界的核心规则、魔法系统、社会结构等)",
    "initial_scene": "(描绘一个充满悬念和探索可能性的开场画面)",
    "narrative_principles": "(设定一个清晰的故事基调，例如：黑暗奇幻、赛博朋克、英雄史诗)"
}
`+"```"+`
`, input.String())
}

func formatAttributes(attrs map[string]float64) string {
	if len(attrs) == 0 {
		return "未知"
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %g", name, attrs[name]))
	}
	return strings.Join(parts, ", ")
}

func formatCooldowns(cooldowns map[string]int) string {
	names := make([]string, 0, len(cooldowns))
	for name := range cooldowns {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s(剩余%d回合)", name, cooldowns[name]))
	}
	return strings.Join(parts, ", ")
}

func formatActionResult(r *model.ActionResult) string {
	var parts []string
	switch r.Type {
	case "attack":
		parts = append(parts, fmt.Sprintf("玩家攻击了 %s，造成 %g 点伤害。", r.Target, r.Damage))
	case "attack_failed":
		parts = append(parts, r.Reason)
	case "initiate_combat":
		parts = append(parts, fmt.Sprintf("玩家向 %s 发起了战斗。", r.Target))
	case "defend":
		parts = append(parts, "玩家摆出了防御姿态。")
	}
	if r.VictoryInfo != "" {
		parts = append(parts, r.VictoryInfo)
	}
	if r.DefeatInfo != "" {
		parts = append(parts, r.DefeatInfo)
	}
	return strings.Join(parts, " ")
}
