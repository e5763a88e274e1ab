package synthesis

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructured_RefinedPrompt(t *testing.T) {
	got, err := ParseStructured[RefinedPrompt]("```json\n{\"prompt\": \"부산 2박3일 일정\"}\n```", RefinedPromptShape)
	require.NoError(t, err)
	assert.Equal(t, "부산 2박3일 일정", got.Prompt)
}

func TestParseStructured_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "죄송합니다, 도와드릴 수 없습니다."},
		{"missing key", `{"text": "hi"}`},
		{"wrong type", `{"prompt": 42}`},
		{"empty prompt", `{"prompt": ""}`},
		{"unterminated", `{"prompt": "abc"`},
		{"prose wrapped", `Sure! Here is the prompt: {"prompt":"write it"} hope this helps`},
		{"trailing garbage", `{"prompt":"write it"} trailing garbage`},
		{"prose before fence", "물론입니다!\n```json\n{\"prompt\": \"write it\"}\n```"},
		{"two objects", `{"prompt":"a"}{"prompt":"b"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStructured[RefinedPrompt](tc.raw, RefinedPromptShape)
			var malformed *MalformedModelOutputError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "refined_prompt", malformed.Source)
		})
	}
}

func TestParseBudget_MissingMaxIsAnError(t *testing.T) {
	_, err := ParseBudget(`{"min_budget": 100000}`, decimal.Zero)
	var malformed *MalformedModelOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "max_budget")
}

func TestParseBudget_Numerals(t *testing.T) {
	cases := []struct {
		raw      string
		min, max int64
	}{
		{`{"min_budget": 100000, "max_budget": 200000}`, 100000, 200000},
		{`{"min_budget": "150000", "max_budget": "180000"}`, 150000, 180000},
		{`{"min_budget": "1,200,000원", "max_budget": " 2_000_000 KRW "}`, 1200000, 2000000},
		{"```json\n{\"min_budget\":\"90000\",\"max_budget\":\"250000\"}\n```", 90000, 250000},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			est, err := ParseBudget(tc.raw, decimal.NewFromInt(100_000_000))
			require.NoError(t, err)
			assert.True(t, est.Min.Equal(decimal.NewFromInt(tc.min)), est.Min.String())
			assert.True(t, est.Max.Equal(decimal.NewFromInt(tc.max)), est.Max.String())
		})
	}
}

func TestParseBudget_RejectsImplausibleValues(t *testing.T) {
	cases := map[string]string{
		"non numeric":     `{"min_budget": "약 10만원", "max_budget": "20만원"}`,
		"null":            `{"min_budget": null, "max_budget": 100}`,
		"negative":        `{"min_budget": -5, "max_budget": 100}`,
		"inverted":        `{"min_budget": 300000, "max_budget": 100000}`,
		"above limit":     `{"min_budget": 1, "max_budget": 900000000000}`,
		"negative string": `{"min_budget": "-5", "max_budget": "100"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBudget(raw, decimal.NewFromInt(100_000_000))
			var malformed *MalformedModelOutputError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestParseBudget_RejectsTextAroundObject(t *testing.T) {
	cases := map[string]string{
		"prose wrapped":      `budget: {"min_budget":1000,"max_budget":2000} KRW`,
		"trailing garbage":   `{"min_budget":1000,"max_budget":2000} trailing garbage`,
		"prose before fence": "예산입니다 ```json\n{\"min_budget\":1000,\"max_budget\":2000}\n```",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBudget(raw, decimal.Zero)
			var malformed *MalformedModelOutputError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "budget", malformed.Source)
		})
	}
}

func TestParseBudget_ZeroLimitDisablesCheck(t *testing.T) {
	est, err := ParseBudget(`{"min_budget": 1, "max_budget": 900000000000}`, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "900000000000", est.Max.String())
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(json.RawMessage(`"₩35,000"`))
	require.NoError(t, err)
	assert.Equal(t, "35000", d.String())

	d, err = ParseAmount(json.RawMessage(`12345.5`))
	require.NoError(t, err)
	assert.Equal(t, "12345.5", d.String())

	_, err = ParseAmount(json.RawMessage(`"1e5"`))
	assert.Error(t, err)
}
