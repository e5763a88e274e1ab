package synthesis

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"kcourse/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// PromptSet holds the instruction text for every model call in the pipeline.
// Fields ending in a template are rendered with text/template against
// promptData.
type PromptSet struct {
	Vision        string `yaml:"vision"`
	PhotoNote     string `yaml:"photo_note"`
	RefineSystem  string `yaml:"refine_system"`
	RefineUser    string `yaml:"refine_user"`
	PlanSystem    string `yaml:"plan_system"`
	BudgetSystem  string `yaml:"budget_system"`
	ImagePrompt   string `yaml:"image_prompt"`
	PlanMaxTokens int    `yaml:"plan_max_tokens"`
}

type promptFile struct {
	Prompts PromptSet `yaml:"prompts"`
}

type promptData struct {
	Destination string
	Purpose     string
	PeopleCount int
	StartDate   string
	EndDate     string
	Description string
}

// DefaultPromptSet is used when no prompt file is configured and fills any
// field a prompt file leaves empty.
func DefaultPromptSet() PromptSet {
	return PromptSet{
		Vision:       "제공 받은 여행 관련 이미지를 분석하여, 어떠한 장소인지 어떠한 목적을 기대할 수 있는지를 한국어로 200자 이내로 적어주세요.",
		PhotoNote:    "\n뒤는 목적과 관련된 사진에 대한 설명입니다. {{.Description}}",
		RefineSystem: `제공받은 정보를 바탕으로 최적의 여행 계획을 세우기 위한 프롬프트를 작성해줘. 응답은 JSON 형식으로 {"prompt": "프롬프트 내용"} 형식으로 작성해줘.`,
		RefineUser: "[장소] {{.Destination}}\n" +
			"[목적] {{.Purpose}}\n" +
			"[인원수] {{.PeopleCount}}\n" +
			"[시작일] {{.StartDate}}\n" +
			"[종료일] {{.EndDate}}",
		PlanSystem:   "프롬프트에 따라 작성하되, 300자 이내 plain text(no markdown or rich text)로.",
		BudgetSystem: `여행 경비 산출 전문가로, 주어진 여행 계획을 바탕으로 '원화 기준'의 숫자로만 작성된 예산을 작성하기. 응답은 JSON 형식으로 {"min_budget":"최소 예산", "max_budget": "최대 예산"}`,
		ImagePrompt:  "{{.Destination}}의 아름다운 풍경 사진, {{.Purpose}}를 목적으로 한 여행. {{.PeopleCount}}명의 여행. 사실적인 사진 스타일",
	}
}

// Prompts is a compiled, immutable PromptSet.
type Prompts struct {
	set       PromptSet
	photoNote *template.Template
	refine    *template.Template
	image     *template.Template
}

// CompilePrompts fills empty fields from the defaults and parses the templates.
func CompilePrompts(set PromptSet) (*Prompts, error) {
	def := DefaultPromptSet()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&set.Vision, def.Vision)
	fill(&set.PhotoNote, def.PhotoNote)
	fill(&set.RefineSystem, def.RefineSystem)
	fill(&set.RefineUser, def.RefineUser)
	fill(&set.PlanSystem, def.PlanSystem)
	fill(&set.BudgetSystem, def.BudgetSystem)
	fill(&set.ImagePrompt, def.ImagePrompt)

	p := &Prompts{set: set}
	var err error
	if p.photoNote, err = parsePrompt("photo_note", set.PhotoNote); err != nil {
		return nil, err
	}
	if p.refine, err = parsePrompt("refine_user", set.RefineUser); err != nil {
		return nil, err
	}
	if p.image, err = parsePrompt("image_prompt", set.ImagePrompt); err != nil {
		return nil, err
	}
	sample := promptData{Destination: "서울", Purpose: "관광", PeopleCount: 2, StartDate: "2025-01-01", EndDate: "2025-01-02", Description: "설명"}
	for _, tpl := range []*template.Template{p.photoNote, p.refine, p.image} {
		if err := tpl.Execute(new(bytes.Buffer), sample); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", tpl.Name(), err)
		}
	}
	return p, nil
}

var (
	defaultPromptsOnce sync.Once
	defaultPrompts     *Prompts
)

// DefaultPrompts returns the compiled built-in prompt set.
func DefaultPrompts() *Prompts {
	defaultPromptsOnce.Do(func() {
		p, err := CompilePrompts(DefaultPromptSet())
		if err != nil {
			panic(fmt.Sprintf("built-in prompts: %v", err))
		}
		defaultPrompts = p
	})
	return defaultPrompts
}

func parsePrompt(name, text string) (*template.Template, error) {
	tpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", name, err)
	}
	return tpl, nil
}

func (p *Prompts) Set() PromptSet { return p.set }

func (p *Prompts) render(tpl *template.Template, data promptData) string {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		// templates were test-executed at compile time; fall back to the built-ins
		logger.Errorf("render prompt %s failed: %v", tpl.Name(), err)
		if p != DefaultPrompts() {
			return DefaultPrompts().render(DefaultPrompts().lookup(tpl.Name()), data)
		}
		return ""
	}
	return buf.String()
}

func (p *Prompts) lookup(name string) *template.Template {
	switch name {
	case "photo_note":
		return p.photoNote
	case "refine_user":
		return p.refine
	default:
		return p.image
	}
}

func tripData(req *TripRequest) promptData {
	return promptData{
		Destination: req.Destination,
		Purpose:     req.Purpose,
		PeopleCount: req.PeopleCount,
		StartDate:   req.StartDate.String(),
		EndDate:     req.EndDate.String(),
	}
}

// CompileGenerationPrompt renders the refine stage instructions for req.
func (p *Prompts) CompileGenerationPrompt(req *TripRequest) GenerationPrompt {
	return GenerationPrompt{
		System: p.set.RefineSystem,
		User:   p.render(p.refine, tripData(req)),
	}
}

// PhotoNote renders the text appended to the purpose for one photo description.
func (p *Prompts) PhotoNote(description string) string {
	return p.render(p.photoNote, promptData{Description: description})
}

// ImagePrompt renders the image synthesis prompt for req.
func (p *Prompts) ImagePrompt(req *TripRequest) string {
	return p.render(p.image, tripData(req))
}

// CompileGenerationPrompt renders the refine stage instructions with the built-in prompts.
func CompileGenerationPrompt(req *TripRequest) GenerationPrompt {
	return DefaultPrompts().CompileGenerationPrompt(req)
}

// PromptSource yields the prompt set to use for the next call.
type PromptSource interface {
	Prompts() *Prompts
}

// StaticPrompts is a PromptSource that never changes.
type StaticPrompts struct {
	P *Prompts
}

func (s StaticPrompts) Prompts() *Prompts {
	if s.P == nil {
		return DefaultPrompts()
	}
	return s.P
}

// PromptRegistry loads a prompt file and reloads it when the file changes.
// A file that fails to load leaves the previous prompts in place.
type PromptRegistry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	current  *Prompts
	version  int64
	loadedAt time.Time
}

func NewPromptRegistry(path string) (*PromptRegistry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("prompt registry requires path")
	}
	r := &PromptRegistry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prompt file failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("prompt reload failed: %v", err)
		}
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

func (r *PromptRegistry) Prompts() *Prompts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Version increments on every successful load.
func (r *PromptRegistry) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *PromptRegistry) reload() error {
	set, err := readPromptFile(r.path)
	if err != nil {
		return err
	}
	compiled, err := CompilePrompts(set)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.current = compiled
	r.version++
	r.loadedAt = time.Now()
	version := r.version
	r.mu.Unlock()
	logger.Infof("prompt registry loaded %s (v%s)", filepath.Base(r.path), strconv.FormatInt(version, 10))
	return nil
}

func readPromptFile(path string) (PromptSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PromptSet{}, fmt.Errorf("read prompt file failed: %w", err)
	}
	var file promptFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return PromptSet{}, fmt.Errorf("parse prompt file failed: %w", err)
	}
	return file.Prompts, nil
}
