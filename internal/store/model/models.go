package model

import (
	"time"

	"kcourse/internal/types"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TripPlanModel is the gorm row of a trip plan.
type TripPlanModel struct {
	ID           string          `gorm:"column:id;primaryKey;size:36"`
	UserID       string          `gorm:"column:user_id;index"`
	Destination  string          `gorm:"column:destination"`
	Purpose      string          `gorm:"column:purpose"`
	PeopleCount  int             `gorm:"column:people_count"`
	StartDate    datatypes.Date  `gorm:"column:start_date"`
	EndDate      datatypes.Date  `gorm:"column:end_date"`
	ImageURL     string          `gorm:"column:image_url"`
	AISuggestion string          `gorm:"column:ai_suggestion"`
	AIMinBudget  decimal.Decimal `gorm:"column:ai_min_budget;type:numeric"`
	AIMaxBudget  decimal.Decimal `gorm:"column:ai_max_budget;type:numeric"`
	CreatedAt    time.Time       `gorm:"column:created_at;index"`
}

func (TripPlanModel) TableName() string { return "tour_plan" }

func FromTripPlan(p *types.TripPlan) TripPlanModel {
	return TripPlanModel{
		ID:           p.ID,
		UserID:       p.UserID,
		Destination:  p.Destination,
		Purpose:      p.Purpose,
		PeopleCount:  p.PeopleCount,
		StartDate:    datatypes.Date(p.StartDate.Time),
		EndDate:      datatypes.Date(p.EndDate.Time),
		ImageURL:     p.ImageURL,
		AISuggestion: p.AISuggestion,
		AIMinBudget:  p.AIMinBudget,
		AIMaxBudget:  p.AIMaxBudget,
		CreatedAt:    p.CreatedAt,
	}
}

func (m TripPlanModel) ToTripPlan() types.TripPlan {
	start := time.Time(m.StartDate)
	end := time.Time(m.EndDate)
	return types.TripPlan{
		ID:           m.ID,
		UserID:       m.UserID,
		Destination:  m.Destination,
		Purpose:      m.Purpose,
		PeopleCount:  m.PeopleCount,
		StartDate:    types.NewDate(start.Year(), start.Month(), start.Day()),
		EndDate:      types.NewDate(end.Year(), end.Month(), end.Day()),
		ImageURL:     m.ImageURL,
		AISuggestion: m.AISuggestion,
		AIMinBudget:  m.AIMinBudget,
		AIMaxBudget:  m.AIMaxBudget,
		CreatedAt:    m.CreatedAt,
	}
}
