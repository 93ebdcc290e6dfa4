// Package seed loads the admin allow-list and a sample catalog into an
// empty storefront.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
)

const actorID = "seed"

type Seeder struct {
	db       *gorm.DB
	sessions *auth.SessionService
	admin    *service.AdminService
	logger   *zap.Logger
}

func NewSeeder(db *gorm.DB, sessions *auth.SessionService, admin *service.AdminService, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:       db,
		sessions: sessions,
		admin:    admin,
		logger:   logger.Named("seed"),
	}
}

type Result struct {
	Admins   int
	Products int
}

// Run promotes every allow-listed id and creates the sample products.
// Products are skipped when the catalog already has rows unless force
// is set.
func (s *Seeder) Run(ctx context.Context, adminIDs []int64, force bool) (*Result, error) {
	res := &Result{}
	for _, id := range adminIDs {
		if _, err := s.sessions.EnsureAdmin(ctx, id); err != nil {
			return nil, err
		}
		res.Admins++
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if existing > 0 && !force {
		s.logger.Info("Catalog not empty, skipping sample products", zap.Int64("existing", existing))
		return res, nil
	}

	for _, in := range SampleProducts() {
		p, err := s.admin.CreateProduct(ctx, actorID, in)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %q: %w", in.DisplayName, err)
		}
		s.logger.Debug("Seeded product", zap.String("slug", p.Slug))
		res.Products++
	}
	return res, nil
}

func str(s string) *string         { return &s }
func num(n int) *int               { return &n }
func flt(f float64) *float64       { return &f }
func usd(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func placeholder(text string) string {
	return "https://images.placeholders.dev/?width=800&height=800&text=" + text
}

// SampleProducts is the demo catalog.
func SampleProducts() []service.ProductInput {
	return []service.ProductInput{
		{
			DisplayName:              "Whey Protein WPC (Chocolate)",
			Description:              str("Classic whey concentrate for daily protein needs."),
			Notes:                    str("Great taste and mixability."),
			Category:                 models.CategoryProtein,
			Type:                     "WPC",
			Form:                     models.FormPowder,
			Flavor:                   str("Chocolate"),
			NetWeightG:               num(1000),
			ServingSizeG:             flt(30),
			MixWithMLWater:           num(250),
			RecommendedDailyServings: flt(1),
			ShelfLifeMonths:          num(24),
			Storage:                  str("Store in a cool, dry place."),
			Brand:                    str("IronCore"),
			Line:                     str("Performance"),
			Subline:                  str("Whey"),
			Images:                   []string{placeholder("WPC+Chocolate"), placeholder("WPC+Back")},
			Price:                    usd("29.99"),
			Currency:                 "USD",
			StockQuantity:            40,
			IsActive:                 true,
		},
		{
			DisplayName:              "Whey Blend WPC+WPI (Vanilla)",
			Description:              str("Balanced blend for lean gains."),
			Category:                 models.CategoryProtein,
			Type:                     "WPC+WPI",
			Form:                     models.FormPowder,
			Flavor:                   str("Vanilla"),
			NetWeightG:               num(2000),
			ServingSizeG:             flt(32),
			MixWithMLWater:           num(300),
			RecommendedDailyServings: flt(1),
			ShelfLifeMonths:          num(24),
			Storage:                  str("Keep sealed after opening."),
			Brand:                    str("IronCore"),
			Line:                     str("Elite"),
			Images:                   []string{placeholder("WPC%2BWPI+Vanilla")},
			Price:                    usd("49.99"),
			Currency:                 "USD",
			StockQuantity:            25,
			IsActive:                 true,
		},
		{
			DisplayName:              "Creatine Monohydrate",
			Description:              str("5g per serving. Supports strength and power."),
			Category:                 models.CategoryCreatine,
			Type:                     "creatine monohydrate",
			Form:                     models.FormPowder,
			NetWeightG:               num(300),
			ServingSizeG:             flt(5),
			MixWithMLWater:           num(200),
			RecommendedDailyServings: flt(1),
			ShelfLifeMonths:          num(36),
			Storage:                  str("Avoid moisture."),
			Brand:                    str("IronCore"),
			Line:                     str("Essentials"),
			Images:                   []string{placeholder("Creatine")},
			Price:                    usd("14.99"),
			Currency:                 "USD",
			StockQuantity:            60,
			IsActive:                 true,
		},
		{
			DisplayName:              "Pre-Workout (Berry Blast)",
			Description:              str("Energy, focus, pump. Use 20 minutes before training."),
			Category:                 models.CategoryPreWorkout,
			Type:                     "pre-workout",
			Form:                     models.FormPowder,
			Flavor:                   str("Berry Blast"),
			NetWeightG:               num(400),
			ServingSizeG:             flt(10),
			MixWithMLWater:           num(250),
			RecommendedDailyServings: flt(1),
			ShelfLifeMonths:          num(24),
			Storage:                  str("Keep away from heat."),
			Brand:                    str("IronCore"),
			Line:                     str("Ignite"),
			Images:                   []string{placeholder("Pre-Workout")},
			Price:                    usd("19.99"),
			Currency:                 "USD",
			StockQuantity:            35,
			IsActive:                 true,
		},
		{
			DisplayName:              "Multivitamins (60 capsules)",
			Description:              str("Daily multivitamin support."),
			Category:                 models.CategoryVitamins,
			Type:                     "multivitamins",
			Form:                     models.FormCapsules,
			RecommendedDailyServings: flt(2),
			ShelfLifeMonths:          num(36),
			Storage:                  str("Store below 25°C."),
			Brand:                    str("IronCore"),
			Line:                     str("Health"),
			Images:                   []string{placeholder("Multivitamins")},
			Price:                    usd("11.99"),
			Currency:                 "USD",
			StockQuantity:            80,
			IsActive:                 true,
		},
		{
			DisplayName:     "Protein Bar (Peanut)",
			Description:     str("High-protein snack bar."),
			Category:        models.CategoryBars,
			Type:            "protein bar",
			Form:            models.FormBar,
			Flavor:          str("Peanut"),
			NetWeightG:      num(60),
			ShelfLifeMonths: num(12),
			Storage:         str("Keep in a dry place."),
			Brand:           str("IronCore"),
			Line:            str("Snack"),
			Images:          []string{placeholder("Protein+Bar")},
			Price:           usd("2.49"),
			Currency:        "USD",
			StockQuantity:   200,
			IsActive:        true,
		},
	}
}
