package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewrz/word-soul/internal/model"
)

// scriptedNarrator returns a canned reply so turns resolve without an LLM.
type scriptedNarrator struct {
	reply model.AIResponse
	err   error

	calls        int
	lastAction   string
	lastUnparsed bool
}

func (n *scriptedNarrator) GenerateTurn(ctx context.Context, pack *model.SettingPack, state *model.CurrentState, action string, unparsed bool, cfg *model.AIConfig) (*model.AIResponse, error) {
	n.calls++
	n.lastAction = action
	n.lastUnparsed = unparsed
	if n.err != nil {
		return nil, n.err
	}
	reply := n.reply
	return &reply, nil
}

func (n *scriptedNarrator) AssistWorld(ctx context.Context, req *model.AssistWorldRequest, cfg *model.AIConfig) (*model.AssistWorldResponse, error) {
	return &model.AssistWorldResponse{}, nil
}

func price(v float64) *float64 { return &v }

func testWorld() *model.World {
	return &model.World{
		ID:        1,
		CreatorID: 1,
		Name:      "测试世界",
		SettingPack: model.SettingPack{
			AttributeDimensions: map[string]model.AttributeDimension{
				model.DimensionSurvival: {Name: "气血", InitialValue: 100},
				model.DimensionOffense:  {Name: "力量", InitialValue: 10},
				model.DimensionResource: {Name: "法力", InitialValue: 50},
			},
			Items: []model.Item{
				{Name: "小血瓶", Type: "恢复类", Effects: model.StringList{"气血 + 20"}},
				{Name: "铁剑", Type: "武器", Effects: model.StringList{"力量 + 5"}, Price: price(30)},
			},
			Skills: []model.Skill{
				{Name: "火球术", Cost: "法力 - 10", Effects: model.StringList{"气血 - 30"}, Cooldown: 2},
			},
			NPCs: []model.NPC{
				{Name: "云游商人", Location: "青石镇", Wares: []string{"铁剑"}},
				{Name: "野狼", IsHostile: true, Attributes: map[string]float64{"气血": 20, "力量": 8}},
			},
		},
	}
}

func testSession(world *model.World) *model.GameSession {
	return &model.GameSession{
		ID:      1,
		UserID:  1,
		WorldID: world.ID,
		CurrentState: model.CurrentState{
			Attributes:      map[string]float64{"气血": 100, "力量": 10, "法力": 50},
			Inventory:       []string{"小血瓶"},
			ActiveQuests:    map[string]string{},
			Cooldowns:       map[string]int{},
			CurrentLocation: "青石镇",
		},
	}
}

func runTurn(t *testing.T, session *model.GameSession, world *model.World, narrator *scriptedNarrator, action string) *model.ActionResponse {
	t.Helper()
	p := NewTurnProcessor(session, world, narrator, nil)
	resp, err := p.ProcessTurn(context.Background(), action)
	require.NoError(t, err)
	return resp
}

func TestProcessTurnBasicFlow(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "AI生成的描述"}}

	resp := runTurn(t, session, world, narrator, "你好")

	assert.Equal(t, "AI生成的描述", resp.Description)
	require.NotNil(t, resp.CurrentState)

	// A free-form action carries no mechanical meaning.
	assert.True(t, narrator.lastUnparsed)
	assert.Equal(t, "你好", narrator.lastAction)

	// History is newest first: narrator reply, then the player's line.
	history := session.CurrentState.RecentHistory
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleAssistant, history[0].Role)
	assert.Equal(t, "AI生成的描述", history[0].Content)
	assert.Equal(t, model.RolePlayer, history[1].Role)
	assert.Equal(t, "你好", history[1].Content)
	require.NotNil(t, session.CurrentState.LastAIResponse)
}

func TestUseItemHealsAndConsumes(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "你喝下了血瓶。"}}

	resp := runTurn(t, session, world, narrator, "使用 小血瓶")

	assert.False(t, narrator.lastUnparsed)
	assert.Equal(t, 120.0, resp.CurrentState.Attributes["气血"])
	assert.NotContains(t, resp.CurrentState.Inventory, "小血瓶")
}

func TestUseItemNotInInventoryChangesNothing(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.Inventory = []string{}
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "你翻遍行囊，一无所获。"}}

	resp := runTurn(t, session, world, narrator, "使用 小血瓶")
	assert.Equal(t, 100.0, resp.CurrentState.Attributes["气血"])
}

func TestUseSkillAppliesCostEffectsAndCooldown(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "火球呼啸而出。"}}

	resp := runTurn(t, session, world, narrator, "对 敌人 使用 火球术")

	assert.Equal(t, 40.0, resp.CurrentState.Attributes["法力"])
	assert.Equal(t, 70.0, resp.CurrentState.Attributes["气血"])
	assert.Equal(t, 2, resp.CurrentState.Cooldowns["火球术"])
}

func TestSkillOnCooldownIsBlocked(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.Cooldowns["火球术"] = 2
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "你气息不稳，无法施法。"}}

	resp := runTurn(t, session, world, narrator, "对 敌人 使用 火球术")

	assert.Equal(t, 50.0, resp.CurrentState.Attributes["法力"])
	assert.Equal(t, 100.0, resp.CurrentState.Attributes["气血"])

	// The cooldown ticked down at turn start but did not clear.
	assert.Equal(t, 1, resp.CurrentState.Cooldowns["火球术"])
}

func TestCooldownExpiryAllowsReuse(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.Cooldowns["火球术"] = 1
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "火球再度成形。"}}

	resp := runTurn(t, session, world, narrator, "对 敌人 使用 火球术")

	assert.Equal(t, 40.0, resp.CurrentState.Attributes["法力"])
	assert.Equal(t, 2, resp.CurrentState.Cooldowns["火球术"])
}

func TestAttackInitiatesCombatAndNPCCountersattack(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "野狼低吼着扑来。"}}

	resp := runTurn(t, session, world, narrator, "攻击 野狼")

	require.True(t, resp.CurrentState.InCombat)
	require.Len(t, resp.CurrentState.Combatants, 1)

	// Initiating combat is its own action; the first strike waits for the
	// next turn, so the wolf is untouched.
	require.NotNil(t, resp.CurrentState.LastActionResult)
	assert.Equal(t, "initiate_combat", resp.CurrentState.LastActionResult.Type)
	assert.Equal(t, 20.0, resp.CurrentState.Combatants[0].Attributes["气血"])

	// The wolf's counterattack landed before the round closed.
	assert.Equal(t, 92.0, resp.CurrentState.Attributes["气血"])
	require.Len(t, resp.CurrentState.NPCActionResults, 1)
	assert.Equal(t, 8.0, resp.CurrentState.NPCActionResults[0].Damage)
}

func TestAttackNonHostileTargetFails(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "商人吓得连连后退。"}}

	resp := runTurn(t, session, world, narrator, "攻击 云游商人")

	assert.False(t, resp.CurrentState.InCombat)
	require.NotNil(t, resp.CurrentState.LastActionResult)
	assert.Equal(t, "attack_failed", resp.CurrentState.LastActionResult.Type)
}

func TestDefeatingCombatantEndsCombat(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "缠斗不休。"}}

	// Turn one only opens the fight; the two strikes after it chew through
	// the wolf's 20 气血 at 10 damage apiece.
	runTurn(t, session, world, narrator, "攻击 野狼")
	runTurn(t, session, world, narrator, "攻击 野狼")
	resp := runTurn(t, session, world, narrator, "攻击 野狼")

	assert.False(t, resp.CurrentState.InCombat)
	assert.Empty(t, resp.CurrentState.Combatants)
	require.NotNil(t, resp.CurrentState.LastActionResult)
	assert.Equal(t, "你击败了 野狼！", resp.CurrentState.LastActionResult.VictoryInfo)

	// Three counterattacks landed, the last one from the dying wolf.
	assert.Equal(t, 76.0, resp.CurrentState.Attributes["气血"])
}

func TestAttackDamageUsesStrengthAttribute(t *testing.T) {
	inCombatWithWolf := func(session *model.GameSession) {
		session.CurrentState.InCombat = true
		session.CurrentState.Combatants = []model.Combatant{
			{Name: "野狼", Attributes: map[string]float64{"气血": 20, "力量": 8}},
		}
	}

	t.Run("zero strength deals zero damage", func(t *testing.T) {
		world := testWorld()
		session := testSession(world)
		session.CurrentState.Attributes["力量"] = 0
		inCombatWithWolf(session)
		narrator := &scriptedNarrator{reply: model.AIResponse{Description: "你有气无力地挥拳。"}}

		resp := runTurn(t, session, world, narrator, "攻击 野狼")

		require.NotNil(t, resp.CurrentState.LastActionResult)
		assert.Equal(t, 0.0, resp.CurrentState.LastActionResult.Damage)
		assert.Equal(t, 20.0, resp.CurrentState.Combatants[0].Attributes["气血"])
	})

	t.Run("missing strength falls back to 10", func(t *testing.T) {
		world := testWorld()
		session := testSession(world)
		delete(session.CurrentState.Attributes, "力量")
		inCombatWithWolf(session)
		narrator := &scriptedNarrator{reply: model.AIResponse{Description: "你凭本能挥拳。"}}

		resp := runTurn(t, session, world, narrator, "攻击 野狼")

		require.NotNil(t, resp.CurrentState.LastActionResult)
		assert.Equal(t, 10.0, resp.CurrentState.LastActionResult.Damage)
		assert.Equal(t, 10.0, resp.CurrentState.Combatants[0].Attributes["气血"])
	})
}

func TestDefendHalvesIncomingDamage(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.InCombat = true
	session.CurrentState.Combatants = []model.Combatant{
		{Name: "野狼", Attributes: map[string]float64{"气血": 20, "力量": 9}},
	}
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "你举臂格挡。"}}

	resp := runTurn(t, session, world, narrator, "防御")

	// floor(9 / 2) = 4 damage through the guard.
	assert.Equal(t, 96.0, resp.CurrentState.Attributes["气血"])
	require.Len(t, resp.CurrentState.NPCActionResults, 1)
	assert.Equal(t, 4.0, resp.CurrentState.NPCActionResults[0].Damage)

	// The guard lasts one round only.
	assert.Empty(t, resp.CurrentState.PlayerStatusEffects)
}

func TestTalkSetsTargetForTheTurn(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "商人笑着迎了上来。"}}

	resp := runTurn(t, session, world, narrator, "与 云游商人 交谈")
	assert.Equal(t, "云游商人", resp.CurrentState.TalkTarget)
}

func TestBuyItemFromCurrentTalkTarget(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "商人接过灵石。"}}

	p := NewTurnProcessor(session, world, narrator, nil)
	p.state.TalkTarget = "云游商人"
	require.True(t, p.parseAction("购买 铁剑"))

	require.NotNil(t, p.state.BuyInfo)
	assert.True(t, p.state.BuyInfo.Success)
	assert.Equal(t, 30.0, p.state.BuyInfo.Price)
	assert.Contains(t, p.state.Inventory, "铁剑")
	assert.Equal(t, 20.0, p.state.Attributes["法力"])
}

func TestBuyItemWithInsufficientFunds(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.Attributes["法力"] = 5
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "商人摇了摇头。"}}

	p := NewTurnProcessor(session, world, narrator, nil)
	p.state.TalkTarget = "云游商人"
	require.True(t, p.parseAction("购买 铁剑"))

	require.NotNil(t, p.state.BuyInfo)
	assert.False(t, p.state.BuyInfo.Success)
	assert.Equal(t, "货币不足", p.state.BuyInfo.Reason)
	assert.NotContains(t, p.state.Inventory, "铁剑")
}

func TestBuyItemWithoutTalkingFirstDoesNothing(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "四下无人应答。"}}

	resp := runTurn(t, session, world, narrator, "购买 铁剑")
	assert.Nil(t, resp.CurrentState.BuyInfo)
	assert.NotContains(t, resp.CurrentState.Inventory, "铁剑")
}

func TestGiveItemToNPC(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "商人收下了血瓶。"}}

	resp := runTurn(t, session, world, narrator, "给予 云游商人 小血瓶")

	require.NotNil(t, resp.CurrentState.GiveInfo)
	assert.Equal(t, "云游商人", resp.CurrentState.GiveInfo.NPC)
	assert.Equal(t, "小血瓶", resp.CurrentState.GiveInfo.Item)
	assert.NotContains(t, resp.CurrentState.Inventory, "小血瓶")
}

func TestNarratorStateChangesAreApplied(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{
		Description:        "你在狼尸旁拾起一枚兽牙，沿小径走入林地深处。",
		AddItemToInventory: "兽牙",
		UpdateLocation:     "镇外林地",
	}}

	resp := runTurn(t, session, world, narrator, "继续前进")

	assert.Contains(t, resp.CurrentState.Inventory, "兽牙")
	assert.Equal(t, "镇外林地", resp.CurrentState.CurrentLocation)
}

func TestNarratorCreatedQuestModifiesWorld(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{
		Description: "商人托付给你一件差事。",
		CreateNewQuest: &model.QuestSpec{
			Name:   "护送商队",
			Goal:   "将商队安全护送至青云城",
			Reward: "灵石 x 50",
		},
	}}

	p := NewTurnProcessor(session, world, narrator, nil)
	resp, err := p.ProcessTurn(context.Background(), "答应下来")
	require.NoError(t, err)

	assert.True(t, p.WorldModified())
	assert.Equal(t, "已接取", resp.CurrentState.ActiveQuests["护送商队"])

	last := world.SettingPack.Tasks[len(world.SettingPack.Tasks)-1]
	assert.Equal(t, "护送商队", last.Name)
	assert.Equal(t, "未开始", last.Status)
}

func TestTerminalQuestStatusMovesToCompleted(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.ActiveQuests["驱逐野狼"] = "进行中"
	narrator := &scriptedNarrator{reply: model.AIResponse{
		Description:       "林地恢复了平静。",
		UpdateQuestStatus: "驱逐野狼: 已完成",
	}}

	resp := runTurn(t, session, world, narrator, "回到镇上")

	assert.NotContains(t, resp.CurrentState.ActiveQuests, "驱逐野狼")
	require.Len(t, resp.CurrentState.CompletedQuests, 1)
	assert.Equal(t, "驱逐野狼", resp.CurrentState.CompletedQuests[0].Name)
	assert.True(t, resp.CurrentState.CompletedQuests[0].IsSuccess)
}

func TestFailedQuestIsNotASuccess(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.ActiveQuests["护送商队"] = "进行中"
	narrator := &scriptedNarrator{reply: model.AIResponse{
		Description:       "商队在夜里遭了埋伏。",
		UpdateQuestStatus: "护送商队: 失败",
	}}

	resp := runTurn(t, session, world, narrator, "追赶商队")

	require.Len(t, resp.CurrentState.CompletedQuests, 1)
	assert.False(t, resp.CurrentState.CompletedQuests[0].IsSuccess)
}

func TestSuggestionsAreEnrichedWithMechanicalDetails(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{reply: model.AIResponse{
		Description: "夜幕降临。",
		SuggestedChoices: []model.SuggestedChoice{
			{DisplayText: "喝口血瓶", ActionCommand: "使用 小血瓶"},
			{DisplayText: "放火球", ActionCommand: "对 野狼 使用 火球术"},
			{DisplayText: "买把剑", ActionCommand: "购买 铁剑"},
			{DisplayText: "休息", ActionCommand: "原地休息"},
		},
	}}

	resp := runTurn(t, session, world, narrator, "你好")

	choices := resp.SuggestedChoices
	require.Len(t, choices, 4)
	assert.Equal(t, []string{"气血 + 20"}, choices[0].Details)
	assert.Equal(t, []string{"法力 - 10", "气血 - 30"}, choices[1].Details)
	assert.Equal(t, []string{"价格: 30"}, choices[2].Details)
	assert.Empty(t, choices[3].Details)
}

func TestValidationFailureAbortsTheTurn(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	session.CurrentState.Attributes["神识"] = 10
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "不该发生的事。"}}

	p := NewTurnProcessor(session, world, narrator, nil)
	_, err := p.ProcessTurn(context.Background(), "你好")
	require.ErrorIs(t, err, ErrStateCorrupted)

	// The turn never reached the history commit.
	assert.Empty(t, session.CurrentState.RecentHistory)
	assert.Nil(t, session.CurrentState.LastAIResponse)
}

func TestNarratorErrorPropagatesWithoutCommit(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	narrator := &scriptedNarrator{err: ErrNarratorUnavailable}

	p := NewTurnProcessor(session, world, narrator, nil)
	_, err := p.ProcessTurn(context.Background(), "你好")
	require.ErrorIs(t, err, ErrNarratorUnavailable)
	assert.Empty(t, session.CurrentState.RecentHistory)
}

func TestHistoryIsCappedAndSanitized(t *testing.T) {
	world := testWorld()
	session := testSession(world)
	for i := 0; i < 10; i++ {
		session.CurrentState.RecentHistory = append(session.CurrentState.RecentHistory,
			model.HistoryEntry{Role: model.RolePlayer, Content: "旧的行动"})
	}
	narrator := &scriptedNarrator{reply: model.AIResponse{Description: "一行<b>加粗</b>的叙事。"}}

	runTurn(t, session, world, narrator, "输入<script>内容")

	history := session.CurrentState.RecentHistory
	require.Len(t, history, 10)
	assert.Equal(t, "一行&lt;b&gt;加粗&lt;/b&gt;的叙事。", history[0].Content)
	assert.Equal(t, "输入&lt;script&gt;内容", history[1].Content)
}
