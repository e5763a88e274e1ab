package synthesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"kcourse/internal/pkg/jsonutil"
	"kcourse/internal/pkg/text"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Shape is a named JSON schema a model response must satisfy.
type Shape struct {
	Name     string
	Schema   map[string]any
	compiled *jsonschema.Schema
}

func NewShape(name string, schema map[string]any) (*Shape, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("shape %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("shape %s: %w", name, err)
	}
	return &Shape{Name: name, Schema: schema, compiled: compiled}, nil
}

func MustShape(name string, schema map[string]any) *Shape {
	s, err := NewShape(name, schema)
	if err != nil {
		panic(err)
	}
	return s
}

var (
	// RefinedPromptShape is {prompt: string}.
	RefinedPromptShape = MustShape("refined_prompt", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"prompt"},
	})

	// BudgetShape is {min_budget, max_budget}; each may be a number or a numeral string.
	BudgetShape = MustShape("budget", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"min_budget": map[string]any{"type": []any{"number", "string"}},
			"max_budget": map[string]any{"type": []any{"number", "string"}},
		},
		"required": []any{"min_budget", "max_budget"},
	})
)

// ParseStructured requires raw model output to be exactly one JSON object,
// optionally wrapped in a single markdown fence, checks it against shape and
// decodes it into T. Missing required keys are an error,
// never a zero value.
func ParseStructured[T any](raw string, shape *Shape) (T, error) {
	var out T
	malformed := func(reason string) error {
		return &MalformedModelOutputError{Source: shape.Name, Reason: reason, Raw: text.Truncate(raw, 512)}
	}
	block := jsonutil.Unfence(raw)
	if !jsonutil.IsObject(block) {
		return out, malformed("response is not a JSON object")
	}
	if !gjson.Valid(block) {
		return out, malformed("invalid JSON")
	}
	var doc any
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		return out, malformed("invalid JSON: " + err.Error())
	}
	if shape.compiled != nil {
		if err := shape.compiled.Validate(doc); err != nil {
			return out, malformed(schemaReason(err))
		}
	}
	if err := json.Unmarshal([]byte(block), &out); err != nil {
		return out, malformed("decode: " + err.Error())
	}
	return out, nil
}

func schemaReason(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return fmt.Sprintf("%s: %s", loc, leaf.Message)
	}
	return err.Error()
}

type budgetAnswer struct {
	MinBudget json.RawMessage `json:"min_budget"`
	MaxBudget json.RawMessage `json:"max_budget"`
}

var numeralPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

var currencySuffixes = []string{"원", "KRW", "krw", "₩"}

// ParseAmount reads a budget numeral: a JSON number or a string of digits with
// optional thousands separators and a trailing currency token.
func ParseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero, fmt.Errorf("invalid string numeral")
		}
		s = normalizeNumeral(str)
		if !numeralPattern.MatchString(s) {
			return decimal.Zero, fmt.Errorf("not a numeral: %q", str)
		}
	}
	if s == "" || s == "null" {
		return decimal.Zero, fmt.Errorf("missing value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a numeral: %s", s)
	}
	return d, nil
}

func normalizeNumeral(s string) string {
	s = strings.TrimSpace(s)
	for _, suffix := range currencySuffixes {
		if strings.HasPrefix(s, suffix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, suffix))
		}
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
		}
	}
	return strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
}

// ParseBudget parses one ensemble member's raw answer. maxPlausible <= 0
// disables the upper bound.
func ParseBudget(raw string, maxPlausible decimal.Decimal) (BudgetEstimate, error) {
	ans, err := ParseStructured[budgetAnswer](raw, BudgetShape)
	if err != nil {
		return BudgetEstimate{}, err
	}
	bad := func(reason string) error {
		return &MalformedModelOutputError{Source: BudgetShape.Name, Reason: reason, Raw: text.Truncate(raw, 512)}
	}
	minV, err := ParseAmount(ans.MinBudget)
	if err != nil {
		return BudgetEstimate{}, bad("min_budget " + err.Error())
	}
	maxV, err := ParseAmount(ans.MaxBudget)
	if err != nil {
		return BudgetEstimate{}, bad("max_budget " + err.Error())
	}
	switch {
	case minV.IsNegative() || maxV.IsNegative():
		return BudgetEstimate{}, bad("negative budget")
	case minV.GreaterThan(maxV):
		return BudgetEstimate{}, bad(fmt.Sprintf("min_budget %s exceeds max_budget %s", minV, maxV))
	case maxPlausible.IsPositive() && maxV.GreaterThan(maxPlausible):
		return BudgetEstimate{}, bad(fmt.Sprintf("max_budget %s above plausible limit %s", maxV, maxPlausible))
	}
	return BudgetEstimate{Min: minV, Max: maxV}, nil
}
