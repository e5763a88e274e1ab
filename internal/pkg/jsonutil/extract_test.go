package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnfence(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare", raw: `  {"prompt":"a"} `, want: `{"prompt":"a"}`},
		{name: "fenced json", raw: "```json\n{\"min_budget\": 1}\n```", want: `{"min_budget": 1}`},
		{name: "fenced no info", raw: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fenced single line", raw: "```{\"a\":1}```", want: `{"a":1}`},
		{name: "prose before fence", raw: "결과: ```json\n{\"a\":1}\n```", want: "결과: ```json\n{\"a\":1}\n```"},
		{name: "prose after fence", raw: "```json\n{\"a\":1}\n``` 끝", want: "```json\n{\"a\":1}\n``` 끝"},
		{name: "two fences", raw: "```{\"a\":1}``` ```{\"b\":2}```", want: "```{\"a\":1}``` ```{\"b\":2}```"},
		{name: "prose", raw: "plain text", want: "plain text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Unfence(tc.raw))
		})
	}
}

func TestIsObject(t *testing.T) {
	assert.True(t, IsObject(" {\"a\":1}"))
	assert.False(t, IsObject("[1,2]"))
	assert.False(t, IsObject(`"text"`))
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(`{"a":1}`))
	assert.Equal(t, "not json", Pretty("not json"))
}
