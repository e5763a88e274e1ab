package itinerary

import (
	"context"
	"strings"
	"testing"

	"kcourse/internal/gateway/provider"
	"kcourse/internal/synthesis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockModel struct {
	mock.Mock
}

func (m *MockModel) ID() string           { return "openai-mini" }
func (m *MockModel) SupportsVision() bool { return false }
func (m *MockModel) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func TestBuildPrompt_Placeholders(t *testing.T) {
	p := BuildPrompt(Request{})
	assert.Contains(t, p.System, "서울 로컬 여행 플래너")
	assert.Contains(t, p.User, "- 선호 장소: 미지정")
	assert.Contains(t, p.User, "- 날짜: 미지정 ~ 미지정")
	assert.Contains(t, p.User, "- 이동수단: 미지정")
	assert.Contains(t, p.User, "- 예산(1인): 0원")
	assert.Contains(t, p.User, "- 동행자: 성인 1명, 아동 0명\n")
	assert.True(t, strings.HasSuffix(p.User, "참고(장소 메타):\n[]"))
}

func TestBuildPrompt_FullRequest(t *testing.T) {
	p := BuildPrompt(Request{
		Places:          []string{"경복궁", " ", "광장시장"},
		StartDate:       "2025-10-03",
		EndDate:         "2025-10-05",
		Transport:       "지하철",
		BudgetPerPerson: 300000,
		Party:           &Party{Adults: 2, Kids: 1, Notes: "유모차"},
		PlaceMeta:       []any{map[string]any{"name": "경복궁", "lat": 37.57}},
	})
	assert.Contains(t, p.User, "- 선호 장소: 경복궁, 광장시장\n")
	assert.Contains(t, p.User, "- 날짜: 2025-10-03 ~ 2025-10-05\n")
	assert.Contains(t, p.User, "- 예산(1인): 300000원\n")
	assert.Contains(t, p.User, "- 동행자: 성인 2명, 아동 1명, 특이사항:유모차\n")
	assert.Contains(t, p.User, "\"name\": \"경복궁\"")
}

func TestDrafter_Draft(t *testing.T) {
	model := new(MockModel)
	model.On("Call", mock.Anything, mock.MatchedBy(func(p provider.ChatPayload) bool {
		return p.ExpectJSON && strings.Contains(p.User, "경복궁")
	})).Return(`{"summary":"고궁 투어","dateRange":{"start":"2025-10-03","end":"2025-10-04","nights":1},"days":[{"date":"2025-10-03","title":"고궁"}]}`, nil).Once()

	d, err := NewDrafter(model)
	require.NoError(t, err)
	plan, err := d.Draft(context.Background(), Request{Places: []string{"경복궁"}})
	require.NoError(t, err)
	assert.Equal(t, "고궁 투어", plan["summary"])
	assert.Len(t, plan["days"], 1)
	model.AssertExpectations(t)
}

func TestDrafter_RejectsIncompletePlan(t *testing.T) {
	model := new(MockModel)
	model.On("Call", mock.Anything, mock.Anything).Return(`{"summary":"only summary"}`, nil).Once()

	d, _ := NewDrafter(model)
	_, err := d.Draft(context.Background(), Request{})
	var malformed *synthesis.MalformedModelOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "itinerary", malformed.Source)
}
