package synthesis

import (
	"testing"
	"time"

	"kcourse/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problemFields(err error) []string {
	verr, ok := err.(*ValidationError)
	if !ok {
		return nil
	}
	out := make([]string, len(verr.Problems))
	for i, p := range verr.Problems {
		out[i] = p.Field
	}
	return out
}

func TestTripRequestValidate(t *testing.T) {
	require.NoError(t, sampleRequest().Validate())

	cases := []struct {
		name   string
		mutate func(r *TripRequest)
		fields []string
	}{
		{"missing destination", func(r *TripRequest) { r.Destination = "" }, []string{"destination"}},
		{"zero people", func(r *TripRequest) { r.PeopleCount = 0 }, []string{"people_count"}},
		{"too many people", func(r *TripRequest) { r.PeopleCount = 500 }, []string{"people_count"}},
		{"missing start", func(r *TripRequest) { r.StartDate = types.Date{} }, []string{"start_date"}},
		{"end before start", func(r *TripRequest) { r.EndDate = types.NewDate(2025, time.October, 1) }, []string{"end_date"}},
		{"no dates", func(r *TripRequest) { r.StartDate, r.EndDate = types.Date{}, types.Date{} }, []string{"start_date", "end_date"}},
		{"bad photo type", func(r *TripRequest) { r.Photo = &Photo{MIMEType: "application/pdf", Data: []byte{1}} }, []string{"image"}},
		{"empty photo", func(r *TripRequest) { r.Photo = &Photo{MIMEType: "image/png"} }, []string{"image"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleRequest()
			tc.mutate(req)
			err := req.Validate()
			require.Error(t, err)
			assert.Equal(t, tc.fields, problemFields(err))
		})
	}
}

func TestTripRequestValidateTrims(t *testing.T) {
	req := sampleRequest()
	req.Destination = "  부산  "
	require.NoError(t, req.Validate())
	assert.Equal(t, "부산", req.Destination)
}
