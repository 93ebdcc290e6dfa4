package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryProtein    Category = "protein"
	CategoryVitamins   Category = "vitamins"
	CategoryCreatine   Category = "creatine"
	CategoryPreWorkout Category = "pre-workout"
	CategoryBars       Category = "bars"
	CategoryOther      Category = "other"
)

var Categories = []Category{
	CategoryProtein, CategoryVitamins, CategoryCreatine,
	CategoryPreWorkout, CategoryBars, CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Form string

const (
	FormPowder   Form = "powder"
	FormCapsules Form = "capsules"
	FormBar      Form = "bar"
)

var Forms = []Form{FormPowder, FormCapsules, FormBar}

func (f Form) Valid() bool {
	for _, known := range Forms {
		if f == known {
			return true
		}
	}
	return false
}

type Product struct {
	ID          string   `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Slug        string   `gorm:"type:varchar(160);uniqueIndex;not null" json:"slug"`
	DisplayName string   `gorm:"type:varchar(200);not null" json:"displayName"`
	Description *string  `gorm:"type:text" json:"description"`
	Notes       *string  `gorm:"type:text" json:"notes"`
	Category    Category `gorm:"type:varchar(20);not null;index" json:"category"`
	Type        string   `gorm:"type:varchar(120);not null" json:"type"`
	Series      *string  `gorm:"type:varchar(120)" json:"series"`
	Form        Form     `gorm:"type:varchar(20);not null;index" json:"form"`
	Flavor      *string  `gorm:"type:varchar(120)" json:"flavor"`

	NetWeightG               *int     `json:"netWeightG"`
	ServingSizeG             *float64 `json:"servingSizeG"`
	MixWithMLWater           *int     `gorm:"column:mix_with_ml_water" json:"mixWithMlWater"`
	RecommendedDailyServings *float64 `json:"recommendedDailyServings"`
	ShelfLifeMonths          *int     `json:"shelfLifeMonths"`
	Storage                  *string  `gorm:"type:text" json:"storage"`

	Brand   *string `gorm:"type:varchar(120);index" json:"brand"`
	Line    *string `gorm:"type:varchar(120)" json:"line"`
	Subline *string `gorm:"type:varchar(120)" json:"subline"`

	Images        []string        `gorm:"serializer:json;type:text" json:"images"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null;index" json:"price"`
	Currency      string          `gorm:"type:varchar(8);not null" json:"currency"`
	StockQuantity int             `gorm:"not null" json:"stockQuantity"`
	IsActive      bool            `gorm:"not null;index" json:"isActive"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
