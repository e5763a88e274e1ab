package synthesis

import (
	"kcourse/internal/gateway/provider"
	"kcourse/internal/types"

	"github.com/shopspring/decimal"
)

// Photo is an uploaded image attached to a trip request.
type Photo struct {
	Filename string
	MIMEType string
	Data     []byte
}

func (p *Photo) payload() provider.ImagePayload {
	return provider.ImagePayload{MIMEType: p.MIMEType, Data: p.Data}
}

// TripRequest carries the caller's trip parameters through one pipeline run.
// Purpose is appended to with visual context before plan generation.
type TripRequest struct {
	UserID      string     `json:"user_id" validate:"omitempty,max=128"`
	Destination string     `json:"destination" validate:"required,max=200"`
	Purpose     string     `json:"purpose" validate:"required,max=2000"`
	PeopleCount int        `json:"people_count" validate:"required,min=1,max=100"`
	StartDate   types.Date `json:"start_date"`
	EndDate     types.Date `json:"end_date"`
	Photo       *Photo     `json:"-"`
}

func (r *TripRequest) HasPhoto() bool {
	return r.Photo != nil && len(r.Photo.Data) > 0
}

// VisualContext is either two photo descriptions or the URL of a generated image.
type VisualContext struct {
	DescriptionA      string
	DescriptionB      string
	GeneratedImageURL string
	// GeneratedKey is the object key of GeneratedImageURL.
	GeneratedKey string
}

func (v VisualContext) Descriptions() []string {
	var out []string
	for _, d := range []string{v.DescriptionA, v.DescriptionB} {
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// RefinedPrompt is the stage one output of plan generation.
type RefinedPrompt struct {
	Prompt string `json:"prompt"`
}

// BudgetEstimate is one ensemble member's answer.
type BudgetEstimate struct {
	Provider string
	Min      decimal.Decimal
	Max      decimal.Decimal
}

// BudgetRange is the envelope over all members.
type BudgetRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// GenerationPrompt is the compiled input of the refine stage.
type GenerationPrompt struct {
	System string
	User   string
}
