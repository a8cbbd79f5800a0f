package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"taproom-backend/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Keys readable without authentication through GET /config.
var publicSettingPrefixes = []string{"venue_", "tier_", "points_per_dollar", "receipt_footer"}

func IsPublicSetting(key string) bool {
	for _, p := range publicSettingPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

type SettingsService struct {
	DB *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{DB: db}
}

func (s *SettingsService) All(ctx context.Context) (map[string]string, error) {
	return loadSettings(s.DB.WithContext(ctx))
}

// Public returns the subset of settings safe to expose to anonymous clients.
func (s *SettingsService) Public(ctx context.Context) (map[string]string, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for k, v := range all {
		if IsPublicSetting(k) {
			out[k] = v
		}
	}
	return out, nil
}

func (s *SettingsService) Get(ctx context.Context, key, fallback string) string {
	var setting models.Setting
	if err := s.DB.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		return fallback
	}
	return setting.Value
}

// Update upserts every key in values inside one transaction. Tier keys are
// validated as a whole so a partial edit cannot leave the ladder unparseable.
func (s *SettingsService) Update(ctx context.Context, values map[string]string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadSettings(tx)
		if err != nil {
			return err
		}
		for k, v := range values {
			current[k] = v
		}
		if _, err := parseTiers(current); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
		}
		if v, ok := values["points_per_dollar"]; ok {
			if d, err := decimal.NewFromString(v); err != nil || d.IsNegative() {
				return fmt.Errorf("%w: points_per_dollar must be a non-negative number", ErrInvalidSetting)
			}
		}

		for k, v := range values {
			row := models.Setting{Key: k, Value: v}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SettingsService) Tiers(ctx context.Context) ([]Tier, error) {
	return LoadTiers(s.DB.WithContext(ctx))
}

func (s *SettingsService) PointsPerDollar(ctx context.Context) decimal.Decimal {
	return pointsPerDollar(s.DB.WithContext(ctx))
}

// DefaultProductPoints derives points per unit from the price when an admin
// leaves points empty: floor(price x points_per_dollar).
func (s *SettingsService) DefaultProductPoints(ctx context.Context, price decimal.Decimal) int {
	return int(price.Mul(s.PointsPerDollar(ctx)).Floor().IntPart())
}

func loadSettings(db *gorm.DB) (map[string]string, error) {
	var rows []models.Setting
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// LoadTiers reads the tier ladder through db, which may be a transaction.
func LoadTiers(db *gorm.DB) ([]Tier, error) {
	values, err := loadSettings(db)
	if err != nil {
		return nil, err
	}
	return parseTiers(values)
}

func parseTiers(values map[string]string) ([]Tier, error) {
	levels := strings.TrimSpace(values["tier_levels"])
	if levels == "" {
		return DefaultTiers, nil
	}

	var tiers []Tier
	for _, name := range strings.Split(levels, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t := Tier{Name: name, Multiplier: 1}
		if v, ok := values["tier_"+name+"_min"]; ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("tier_%s_min must be a non-negative integer", name)
			}
			t.Min = n
		}
		if v, ok := values["tier_"+name+"_multiplier"]; ok {
			m, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || m < 1 {
				return nil, fmt.Errorf("tier_%s_multiplier must be a number >= 1", name)
			}
			t.Multiplier = m
		}
		tiers = append(tiers, t)
	}
	if len(tiers) == 0 {
		return DefaultTiers, nil
	}
	if tiers[0].Min != 0 {
		return nil, fmt.Errorf("tier_%s_min must be 0 so every member has a tier", tiers[0].Name)
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].Min <= tiers[i-1].Min {
			return nil, fmt.Errorf("tier_%s_min must be above tier_%s_min", tiers[i].Name, tiers[i-1].Name)
		}
	}
	return tiers, nil
}

func pointsPerDollar(db *gorm.DB) decimal.Decimal {
	var setting models.Setting
	if err := db.First(&setting, "key = ?", "points_per_dollar").Error; err != nil {
		return decimal.NewFromInt(1)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(setting.Value))
	if err != nil || d.IsNegative() {
		return decimal.NewFromInt(1)
	}
	return d
}
