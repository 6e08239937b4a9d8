package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rewrz/word-soul/internal/cache"
	"github.com/rewrz/word-soul/internal/config"
	"github.com/rewrz/word-soul/internal/model"
	"github.com/rewrz/word-soul/internal/repository"
	"github.com/rewrz/word-soul/internal/service"
)

// Seeds a demo account and a small cultivation world so the TUI has
// something to log into on a fresh deployment.
func main() {
	username := flag.String("username", "demo", "demo account username")
	password := flag.String("password", "demo123", "demo account password")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Load()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}

	db := mongoClient.Database(cfg.MongoDatabase)

	rdb := redis.NewClient(&redis.Options{
		Addr: strings.TrimPrefix(cfg.RedisAddr, "redis://"),
	})
	defer rdb.Close()

	seq := repository.NewSequence(db)
	userRepo := repository.NewUserRepo(db, seq)
	worldRepo := repository.NewWorldRepo(db, seq)
	sessionRepo := repository.NewSessionRepo(db, seq)

	authSvc := service.NewAuthService(userRepo, cache.NewTokenCache(rdb), cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	if err := authSvc.Register(ctx, *username, *password); err != nil {
		if !errors.Is(err, service.ErrUsernameTaken) {
			log.Fatal("Failed to create demo user:", err)
		}
		log.Printf("User %q already exists, reusing it", *username)
	}

	user, err := userRepo.GetByUsername(ctx, *username)
	if err != nil || user == nil {
		log.Fatal("Failed to load demo user:", err)
	}

	pack := demoSettingPack()
	world := &model.World{
		CreatorID:   user.ID,
		Name:        "青云界",
		SettingPack: pack,
		CreatedAt:   time.Now(),
	}
	worldID, err := worldRepo.Create(ctx, world)
	if err != nil {
		log.Fatal("Failed to create demo world:", err)
	}

	attributes := make(map[string]float64, len(pack.AttributeDimensions))
	for _, dim := range pack.AttributeDimensions {
		attributes[dim.Name] = dim.InitialValue
	}

	session := &model.GameSession{
		UserID:  user.ID,
		WorldID: worldID,
		CurrentState: model.CurrentState{
			PlayerCharacter: pack.CharacterDescription,
			Attributes:      attributes,
			Inventory:       []string{"小血瓶"},
			ActiveQuests:    map[string]string{},
			CompletedQuests: []model.CompletedQuest{},
			Cooldowns:       map[string]int{},
			CurrentLocation: pack.InitialScene,
			RecentHistory:   []model.HistoryEntry{},
		},
		LastPlayed: time.Now(),
	}
	sessionID, err := sessionRepo.Create(ctx, session)
	if err != nil {
		log.Fatal("Failed to create demo session:", err)
	}

	log.Printf("Seeded user %q (id %d)", *username, user.ID)
	log.Printf("Seeded world %q (id %d)", world.Name, worldID)
	log.Printf("Seeded session %d", sessionID)
}

func demoSettingPack() model.SettingPack {
	price := func(v float64) *float64 { return &v }
	return model.SettingPack{
		AttributeDimensions: map[string]model.AttributeDimension{
			model.DimensionSurvival: {Name: "气血", InitialValue: 100},
			model.DimensionOffense:  {Name: "力量", InitialValue: 10},
			model.DimensionResource: {Name: "法力", InitialValue: 50},
		},
		Items: []model.Item{
			{Name: "小血瓶", Type: "恢复类", Effects: model.StringList{"气血 + 20"}, Price: price(5)},
			{Name: "铁剑", Type: "武器", Effects: model.StringList{"力量 + 5"}, Price: price(30)},
		},
		Skills: []model.Skill{
			{Name: "火球术", Cost: "法力 - 10", Effects: model.StringList{"气血 - 30"}, Cooldown: 2},
		},
		NPCs: []model.NPC{
			{
				Name:        "云游商人",
				Description: "背着巨大包袱的和善商人",
				Location:    "青石镇",
				Wares:       []string{"小血瓶", "铁剑"},
			},
			{
				Name:       "林间野狼",
				Location:   "镇外林地",
				IsHostile:  true,
				Attributes: map[string]float64{"气血": 40, "力量": 8},
			},
		},
		Tasks: []model.Task{
			{Name: "驱逐野狼", Status: "未开始", Goal: "肃清青石镇外林地的野狼", Reward: "灵石 x 10"},
		},
		CharacterDescription: "初入修行之途的年轻弟子",
		WorldRules:           "以灵气修行的东方修真世界，言出法随，境界分炼气、筑基、金丹。",
		InitialScene:         "青石镇的集市，晨雾未散，摊贩的吆喝声此起彼伏。",
		NarrativePrinciples:  "叙事保持东方仙侠质感，留白处交由玩家抉择。",
	}
}
