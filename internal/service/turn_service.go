package service

import (
	"context"
	"errors"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rewrz/word-soul/internal/model"
)

// ErrStateCorrupted means the post-turn state failed framework validation
// and the turn was aborted before commit.
var ErrStateCorrupted = errors.New("game state failed validation")

// Player status effect types
const effectDefending = "defending"

// Combat attribute names used by the mechanical resolver. Strength and
// armor are fixed framework names; the hit-point attribute comes from the
// pack's survival dimension.
const (
	attrStrength = "力量"
	attrArmor    = "护甲"
)

type actionPattern struct {
	re      *regexp.Regexp
	handler func(p *TurnProcessor, match []string)
}

// Pattern order matters: targeted skill use must win over bare item use.
var actionPatterns = []actionPattern{
	{regexp.MustCompile(`^对\s+(.+?)\s+使用\s+(.+)`), (*TurnProcessor).handleUseSkill},
	{regexp.MustCompile(`^使用\s+([^对]+)`), (*TurnProcessor).handleUseItem},
	{regexp.MustCompile(`^(调查|观察|查看|检查)\s+(.+)`), (*TurnProcessor).handleObservation},
	{regexp.MustCompile(`^(与|和)\s+(.+?)\s+交谈`), (*TurnProcessor).handleTalk},
	{regexp.MustCompile(`^攻击\s+(.+)`), (*TurnProcessor).handleAttack},
	{regexp.MustCompile(`^(防御|格挡)`), (*TurnProcessor).handleDefend},
	{regexp.MustCompile(`^(给予|给)\s+(.+?)\s+(.+)`), (*TurnProcessor).handleGiveItem},
	{regexp.MustCompile(`^购买\s+(.+)`), (*TurnProcessor).handleBuyItem},
	{regexp.MustCompile(`^售卖\s+(.+)`), (*TurnProcessor).handleSellItem},
}

// TurnProcessor runs one complete game turn: mechanical action resolution,
// narrator call, state merge, combat round, suggestion enrichment and
// validation. It mutates the session (and possibly the world, when the
// narrator creates a quest); the caller persists both.
type TurnProcessor struct {
	session  *model.GameSession
	world    *model.World
	narrator Narrator
	aiConfig *model.AIConfig

	state *model.CurrentState
	pack  *model.SettingPack

	// worldModified is set when the narrator added a quest to the pack.
	worldModified bool
}

// NewTurnProcessor creates a processor bound to one session
func NewTurnProcessor(session *model.GameSession, world *model.World, narrator Narrator, aiConfig *model.AIConfig) *TurnProcessor {
	return &TurnProcessor{
		session:  session,
		world:    world,
		narrator: narrator,
		aiConfig: aiConfig,
		state:    &session.CurrentState,
		pack:     &world.SettingPack,
	}
}

// WorldModified reports whether the world's setting pack changed this turn
func (p *TurnProcessor) WorldModified() bool {
	return p.worldModified
}

// ProcessTurn handles a player action end to end
func (p *TurnProcessor) ProcessTurn(ctx context.Context, playerAction string) (*model.ActionResponse, error) {
	p.reduceCooldowns()
	p.state.ClearTransient()

	parsed := p.parseAction(playerAction)

	reply, err := p.narrator.GenerateTurn(ctx, p.pack, p.state, playerAction, !parsed, p.aiConfig)
	if err != nil {
		return nil, err
	}

	p.applyAIStateChanges(reply)

	if p.state.InCombat {
		p.processNPCTurns()
		p.checkCombatStatus()
	}

	reply.SuggestedChoices = p.enrichSuggestions(reply.SuggestedChoices)

	if errs := ValidateGameState(p.state, p.pack); len(errs) > 0 {
		log.Printf("[Turn] session %d failed state validation: %s", p.session.ID, strings.Join(errs, "; "))
		return nil, ErrStateCorrupted
	}

	p.updateHistory(playerAction, reply)

	return &model.ActionResponse{
		AIResponse:   *reply,
		CurrentState: p.state,
	}, nil
}

// reduceCooldowns ticks every skill cooldown down by one at turn start.
// A cooldown that reaches zero disappears.
func (p *TurnProcessor) reduceCooldowns() {
	if len(p.state.Cooldowns) == 0 {
		return
	}
	next := make(map[string]int)
	for skill, remaining := range p.state.Cooldowns {
		if remaining > 1 {
			next[skill] = remaining - 1
		}
	}
	p.state.Cooldowns = next
}

// parseAction applies the mechanical command grammar. Returns true when a
// pattern matched; unmatched actions are resolved purely by narrative.
func (p *TurnProcessor) parseAction(playerAction string) bool {
	action := strings.TrimSpace(playerAction)
	for _, pat := range actionPatterns {
		if match := pat.re.FindStringSubmatch(action); match != nil {
			pat.handler(p, match)
			return true
		}
	}
	return false
}

func (p *TurnProcessor) applyAIStateChanges(reply *model.AIResponse) {
	if item := reply.AddItemToInventory; item != "" {
		p.state.Inventory = append(p.state.Inventory, item)
	}

	if item := reply.RemoveItemFromInventory; item != "" {
		p.state.Inventory = removeFirst(p.state.Inventory, item)
	}

	if update := reply.UpdateQuestStatus; update != "" {
		if parts := strings.SplitN(update, ":", 2); len(parts) == 2 {
			p.updateQuest(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}

	if loc := reply.UpdateLocation; loc != "" && loc != p.state.CurrentLocation {
		p.state.CurrentLocation = loc
	}

	if quest := reply.CreateNewQuest; quest != nil && quest.Name != "" && quest.Goal != "" {
		p.createQuest(quest)
	}
}

// updateQuest applies a "任务名: 新状态" update. A terminal status moves the
// quest from the active set into the completed log.
func (p *TurnProcessor) updateQuest(name, status string) {
	if p.state.ActiveQuests == nil {
		p.state.ActiveQuests = make(map[string]string)
	}

	finished := strings.Contains(status, "完成") || strings.Contains(status, "成功") || strings.Contains(status, "失败")
	if !finished {
		p.state.ActiveQuests[name] = status
		return
	}

	delete(p.state.ActiveQuests, name)
	p.state.CompletedQuests = append(p.state.CompletedQuests, model.CompletedQuest{
		Name:      name,
		Status:    status,
		IsSuccess: !strings.Contains(status, "失败"),
	})
}

func (p *TurnProcessor) createQuest(quest *model.QuestSpec) {
	for _, task := range p.pack.Tasks {
		if task.Name == quest.Name {
			return
		}
	}

	p.pack.Tasks = append(p.pack.Tasks, model.Task{
		Name:   quest.Name,
		Status: "未开始",
		Goal:   quest.Goal,
		Reward: quest.Reward,
	})
	p.worldModified = true

	if p.state.ActiveQuests == nil {
		p.state.ActiveQuests = make(map[string]string)
	}
	p.state.ActiveQuests[quest.Name] = "已接取"
}

// updateHistory prepends the turn's entries newest-first and caps the log
// at ten entries. Angle brackets are neutralized against HTML injection.
func (p *TurnProcessor) updateHistory(playerAction string, reply *model.AIResponse) {
	entries := []model.HistoryEntry{
		{Role: model.RoleAssistant, Content: sanitizeText(reply.Description)},
		{Role: model.RolePlayer, Content: sanitizeText(playerAction)},
	}
	p.state.RecentHistory = append(entries, p.state.RecentHistory...)
	if len(p.state.RecentHistory) > 10 {
		p.state.RecentHistory = p.state.RecentHistory[:10]
	}
	p.state.LastAIResponse = reply
}

// applyEffect parses and applies an effect string like "气血 + 20" to the
// player's attributes. Unknown attributes and malformed strings are
// ignored, matching the forgiving behavior worlds rely on.
func (p *TurnProcessor) applyEffect(effect string) {
	match := effectPattern.FindStringSubmatch(effect)
	if match == nil {
		return
	}
	name := strings.TrimSpace(match[1])
	value := parseNumber(match[3])

	current, ok := p.state.Attributes[name]
	if !ok {
		return
	}

	switch match[2] {
	case "+":
		current += value
	case "-":
		current -= value
	case "*":
		current *= value
	case "/":
		if value != 0 {
			current /= value
		}
	}
	p.state.Attributes[name] = math.Round(current*100) / 100
}

func (p *TurnProcessor) handleUseItem(match []string) {
	itemName := strings.TrimSpace(match[1])
	if !contains(p.state.Inventory, itemName) {
		return
	}
	item := findItem(p.pack, itemName)
	if item == nil {
		return
	}

	for _, effect := range item.Effects {
		p.applyEffect(effect)
	}

	if item.Type == "恢复类" {
		p.state.Inventory = removeFirst(p.state.Inventory, itemName)
	}
}

func (p *TurnProcessor) handleUseSkill(match []string) {
	skillName := strings.TrimSpace(match[2])
	skill := findSkill(p.pack, skillName)
	if skill == nil {
		return
	}
	if _, cooling := p.state.Cooldowns[skillName]; cooling {
		return
	}

	if skill.Cost != "" {
		p.applyEffect(skill.Cost)
	}
	for _, effect := range skill.Effects {
		p.applyEffect(effect)
	}

	if skill.Cooldown > 0 {
		if p.state.Cooldowns == nil {
			p.state.Cooldowns = make(map[string]int)
		}
		p.state.Cooldowns[skillName] = skill.Cooldown
	}
}

func (p *TurnProcessor) handleObservation(match []string) {
	p.state.FocusTarget = strings.TrimSpace(match[2])
}

func (p *TurnProcessor) handleTalk(match []string) {
	p.state.TalkTarget = strings.TrimSpace(match[2])
}

func (p *TurnProcessor) handleGiveItem(match []string) {
	npcName := strings.TrimSpace(match[2])
	itemName := strings.TrimSpace(match[3])

	if !contains(p.state.Inventory, itemName) {
		return
	}
	if findNPC(p.pack, npcName) == nil {
		return
	}

	p.state.Inventory = removeFirst(p.state.Inventory, itemName)
	p.state.GiveInfo = &model.TradeInfo{NPC: npcName, Item: itemName}
}

func (p *TurnProcessor) handleAttack(match []string) {
	targetName := strings.TrimSpace(match[1])

	if !p.state.InCombat {
		npc := findNPC(p.pack, targetName)
		if npc == nil || !npc.IsHostile {
			p.state.LastActionResult = &model.ActionResult{
				Type:   "attack_failed",
				Reason: "无法攻击目标 " + targetName + "。",
			}
			return
		}
		attrs := make(map[string]float64, len(npc.Attributes))
		for k, v := range npc.Attributes {
			attrs[k] = v
		}
		p.state.InCombat = true
		p.state.Combatants = []model.Combatant{{Name: npc.Name, Attributes: attrs}}
		p.state.LastActionResult = &model.ActionResult{Type: "initiate_combat", Target: targetName}
		return
	}

	var target *model.Combatant
	for i := range p.state.Combatants {
		if p.state.Combatants[i].Name == targetName {
			target = &p.state.Combatants[i]
			break
		}
	}
	if target == nil {
		p.state.LastActionResult = &model.ActionResult{
			Type:   "attack_failed",
			Reason: "战斗中没有名为 " + targetName + " 的敌人。",
		}
		return
	}

	strength, ok := p.state.Attributes[attrStrength]
	if !ok {
		strength = 10
	}
	damage := strength - target.Attributes[attrArmor]
	damage = math.Max(0, math.Round(damage))
	target.Attributes[p.survivalAttr()] -= damage
	p.state.LastActionResult = &model.ActionResult{Type: "attack", Target: targetName, Damage: damage}
}

func (p *TurnProcessor) handleDefend(match []string) {
	if !p.state.InCombat {
		return
	}
	p.state.PlayerStatusEffects = append(p.state.PlayerStatusEffects, model.StatusEffect{
		Type:     effectDefending,
		Duration: 1,
	})
	p.state.LastActionResult = &model.ActionResult{Type: "defend"}
}

func (p *TurnProcessor) handleBuyItem(match []string) {
	itemName := strings.TrimSpace(match[1])
	npcName := p.state.TalkTarget
	if npcName == "" {
		return
	}

	npc := findNPC(p.pack, npcName)
	item := findItem(p.pack, itemName)
	if npc == nil || item == nil || !contains(npc.Wares, itemName) {
		return
	}

	resource, ok := p.pack.AttributeDimensions[model.DimensionResource]
	if !ok || resource.Name == "" || item.Price == nil {
		return
	}
	price := *item.Price

	if p.state.Attributes[resource.Name] < price {
		p.state.BuyInfo = &model.TradeInfo{NPC: npcName, Item: itemName, Success: false, Reason: "货币不足"}
		return
	}

	p.state.Attributes[resource.Name] -= price
	p.state.Inventory = append(p.state.Inventory, itemName)
	p.state.BuyInfo = &model.TradeInfo{NPC: npcName, Item: itemName, Success: true, Price: price}
}

func (p *TurnProcessor) handleSellItem(match []string) {
	// TODO: implement selling, mirroring handleBuyItem with the price
	// credited back to the resource attribute.
}

// processNPCTurns runs every combatant's counterattack. Defending halves
// incoming damage for the turn it was declared.
func (p *TurnProcessor) processNPCTurns() {
	survival := p.survivalAttr()

	defending := false
	for _, effect := range p.state.PlayerStatusEffects {
		if effect.Type == effectDefending {
			defending = true
			break
		}
	}

	var results []model.NPCActionResult
	for _, npc := range p.state.Combatants {
		strength, ok := npc.Attributes[attrStrength]
		if !ok {
			strength = 5
		}
		damage := strength - p.state.Attributes[attrArmor]
		if defending {
			damage = math.Floor(damage / 2)
		}
		damage = math.Max(0, math.Round(damage))
		p.state.Attributes[survival] -= damage
		results = append(results, model.NPCActionResult{NPC: npc.Name, Action: "attack", Damage: damage})
	}

	var remaining []model.StatusEffect
	for _, effect := range p.state.PlayerStatusEffects {
		if effect.Duration > 1 {
			remaining = append(remaining, effect)
		}
	}
	p.state.PlayerStatusEffects = remaining
	p.state.NPCActionResults = results
}

func (p *TurnProcessor) checkCombatStatus() {
	survival := p.survivalAttr()

	var alive []model.Combatant
	for _, npc := range p.state.Combatants {
		if npc.Attributes[survival] > 0 {
			alive = append(alive, npc)
			continue
		}
		if p.state.LastActionResult == nil {
			p.state.LastActionResult = &model.ActionResult{}
		}
		p.state.LastActionResult.VictoryInfo = "你击败了 " + npc.Name + "！"
	}

	if len(alive) == 0 {
		p.state.InCombat = false
		p.state.Combatants = nil
	} else {
		p.state.Combatants = alive
	}

	if p.state.Attributes[survival] <= 0 {
		p.state.InCombat = false
		if p.state.LastActionResult == nil {
			p.state.LastActionResult = &model.ActionResult{}
		}
		p.state.LastActionResult.DefeatInfo = "你失去了意识..."
	}
}

// enrichSuggestions attaches mechanical details (costs, effects, prices)
// to suggestions whose command the parser understands, so the player can
// judge a choice before taking it.
func (p *TurnProcessor) enrichSuggestions(suggestions []model.SuggestedChoice) []model.SuggestedChoice {
	useItemRe := regexp.MustCompile(`^使用\s+([^对]+)`)
	useSkillRe := regexp.MustCompile(`^对\s+(.+?)\s+使用\s+(.+)`)
	buyItemRe := regexp.MustCompile(`^购买\s+(.+)`)

	for i := range suggestions {
		command := suggestions[i].ActionCommand
		if command == "" {
			continue
		}
		var details []string

		if match := useSkillRe.FindStringSubmatch(command); match != nil {
			if skill := findSkill(p.pack, strings.TrimSpace(match[2])); skill != nil {
				if skill.Cost != "" {
					details = append(details, skill.Cost)
				}
				details = append(details, skill.Effects...)
			}
		} else if match := useItemRe.FindStringSubmatch(command); match != nil {
			if item := findItem(p.pack, strings.TrimSpace(match[1])); item != nil {
				details = append(details, item.Effects...)
			}
		} else if match := buyItemRe.FindStringSubmatch(command); match != nil {
			if item := findItem(p.pack, strings.TrimSpace(match[1])); item != nil && item.Price != nil {
				details = append(details, sprintPrice(*item.Price))
			}
		}

		if len(details) > 0 {
			suggestions[i].Details = details
		}
	}

	return suggestions
}

// survivalAttr returns the hit-point attribute name, 气血 by default
func (p *TurnProcessor) survivalAttr() string {
	if dim, ok := p.pack.AttributeDimensions[model.DimensionSurvival]; ok && dim.Name != "" {
		return dim.Name
	}
	return "气血"
}

func findItem(pack *model.SettingPack, name string) *model.Item {
	for i := range pack.Items {
		if pack.Items[i].Name == name {
			return &pack.Items[i]
		}
	}
	return nil
}

func findSkill(pack *model.SettingPack, name string) *model.Skill {
	for i := range pack.Skills {
		if pack.Skills[i].Name == name {
			return &pack.Skills[i]
		}
	}
	return nil
}

func findNPC(pack *model.SettingPack, name string) *model.NPC {
	for i := range pack.NPCs {
		if pack.NPCs[i].Name == name {
			return &pack.NPCs[i]
		}
	}
	return nil
}

func removeFirst(list []string, target string) []string {
	for i, v := range list {
		if v == target {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// parseNumber converts a regex-validated numeric capture
func parseNumber(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func sprintPrice(price float64) string {
	return "价格: " + strconv.FormatFloat(price, 'f', -1, 64)
}

func sanitizeText(text string) string {
	text = strings.ReplaceAll(text, "<", "&lt;")
	return strings.ReplaceAll(text, ">", "&gt;")
}
