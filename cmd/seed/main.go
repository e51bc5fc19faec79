package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"xp-cashout/pkg/cache"
	"xp-cashout/pkg/config"
	"xp-cashout/pkg/database"
	"xp-cashout/pkg/jwt"
	"xp-cashout/pkg/logger"
	"xp-cashout/pkg/middleware"
	"xp-cashout/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Must match the cache key used by the xp service.
const conversionRateCacheKey = "conversion_rate:current"

type seedUser struct {
	phone    string
	email    string
	kyc      models.KYCLevel
	role     string
	platform string
	emulator bool
	xp       int64
}

var seedUsers = []seedUser{
	{phone: "+255700000001", email: "amina@test.com", kyc: models.KYCLevelVerified, platform: "android", xp: 12000},
	{phone: "+255700000002", email: "baraka@test.com", kyc: models.KYCLevelBasic, platform: "ios", xp: 4800},
	{email: "chausiku@test.com", kyc: models.KYCLevelNone, platform: "android", emulator: true, xp: 600},
	{phone: "+255700000004", kyc: models.KYCLevelBasic, platform: "android", xp: 0},
	{email: "ops@test.com", kyc: models.KYCLevelVerified, role: middleware.RoleAdmin, platform: "web"},
}

func main() {
	var withTokens bool
	flag.BoolVar(&withTokens, "tokens", true, "Print a bearer token for every seeded user")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	if err := seedDatabase(db, cfg, log, withTokens); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Redis unavailable, conversion rate cache not cleared: %v", err)
	} else {
		defer redisClient.Close()
		if err := redisClient.Del(context.Background(), conversionRateCacheKey).Err(); err != nil {
			log.Warn("Failed to clear conversion rate cache: %v", err)
		}
	}

	log.Info("Database seeded successfully!")
}

func seedDatabase(db *gorm.DB, cfg *config.Config, log *logger.Logger, withTokens bool) error {
	jwtService := jwt.NewService(cfg.JWTSecret)
	now := time.Now().UTC()

	for i, u := range seedUsers {
		profile := &models.UserProfile{
			KYCLevel: u.kyc,
			Status:   models.ProfileStatusActive,
		}
		if u.phone != "" {
			profile.Phone = &u.phone
		}
		if u.email != "" {
			profile.Email = &u.email
		}

		var existing models.UserProfile
		query := db.Model(&models.UserProfile{})
		if u.phone != "" {
			query = query.Where("phone = ?", u.phone)
		} else {
			query = query.Where("email = ?", u.email)
		}
		if err := query.First(&existing).Error; err == nil {
			log.Info("Profile %s already exists, skipping", existing.PayoutContact())
			printToken(jwtService, existing.ID, u.role, withTokens, log)
			continue
		}

		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(profile).Error; err != nil {
				return fmt.Errorf("create profile: %w", err)
			}

			device := &models.Device{
				UserID:            profile.ID,
				DeviceFingerprint: fmt.Sprintf("seed-device-%d-%s", i, uuid.NewString()[:8]),
				Platform:          u.platform,
				IsEmulator:        u.emulator,
				LastSeenAt:        now,
			}
			if err := tx.Create(device).Error; err != nil {
				return fmt.Errorf("create device: %w", err)
			}

			code := &models.ReferralCode{UserID: profile.ID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(code).Error; err != nil {
				return fmt.Errorf("create referral code: %w", err)
			}

			if u.xp > 0 {
				metadata, _ := json.Marshal(map[string]string{"seed": "true"})
				if err := tx.Exec(
					"INSERT INTO xp_ledger (user_id, source, xp_delta, metadata, created_at) VALUES (?, ?, ?, ?, ?)",
					profile.ID, "seed_bonus", u.xp, string(metadata), now.Add(-48*time.Hour),
				).Error; err != nil {
					return fmt.Errorf("credit seed xp: %w", err)
				}
			}
			return nil
		}); err != nil {
			log.Error("Failed to seed user %d: %v", i, err)
			continue
		}

		log.Info("Created profile %s (%s) with %d XP", profile.ID, profile.PayoutContact(), u.xp)
		printToken(jwtService, profile.ID, u.role, withTokens, log)
	}

	var rates int64
	if err := db.Table("conversion_rates").Count(&rates).Error; err != nil {
		return fmt.Errorf("count conversion rates: %w", err)
	}
	if rates == 0 {
		if err := db.Exec(
			"INSERT INTO conversion_rates (rate, effective_from) VALUES (?, ?)",
			cfg.DefaultConversionRate, now.Add(-24*time.Hour),
		).Error; err != nil {
			return fmt.Errorf("seed conversion rate: %w", err)
		}
		log.Info("Published conversion rate %s %s per XP", cfg.DefaultConversionRate, cfg.PayoutCurrency)
	}

	return nil
}

func printToken(jwtService *jwt.Service, userID, role string, enabled bool, log *logger.Logger) {
	if !enabled {
		return
	}
	if role == "" {
		role = "user"
	}
	token, err := jwtService.GenerateToken(userID, role)
	if err != nil {
		log.Warn("Failed to generate token for %s: %v", userID, err)
		return
	}
	log.Info("  %s token: %s", role, token)
}
