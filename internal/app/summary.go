package app

import (
	"fmt"
	"strings"

	"kcourse/internal/config"
)

// StartupSummary is printed once before the API starts serving.
type StartupSummary struct {
	Env     string
	Addr    string
	Models  []string
	Roles   config.RolesConfig
	Objects string
	Records string
	Prompts string
}

func newStartupSummary(cfg *config.Config, models []string) *StartupSummary {
	prompts := "built-in"
	if p := strings.TrimSpace(cfg.AI.PromptsPath); p != "" {
		prompts = p
	}
	objects := cfg.Storage.Objects.Backend + " bucket=" + cfg.Storage.Objects.Bucket
	if cfg.Storage.Objects.Backend == "sqlite" {
		objects += " path=" + cfg.Storage.Objects.SQLitePath
	}
	records := cfg.Storage.Records.Backend + " table=" + cfg.Storage.Records.Table
	if cfg.Storage.Records.Backend == "sqlite" {
		records += " path=" + cfg.Storage.Records.SQLitePath
	}
	return &StartupSummary{
		Env:     cfg.App.Env,
		Addr:    cfg.App.HTTPAddr,
		Models:  models,
		Roles:   cfg.AI.Roles,
		Objects: objects,
		Records: records,
		Prompts: prompts,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[service]")
	fmt.Printf("  env:     %s\n", s.Env)
	fmt.Printf("  listen:  %s\n", s.Addr)
	fmt.Printf("  prompts: %s\n", s.Prompts)
	fmt.Println()

	fmt.Println("[models]")
	fmt.Printf("  registered: %s\n", formatList(s.Models))
	fmt.Printf("  vision:     %s\n", formatList(s.Roles.Vision))
	fmt.Printf("  image:      %s\n", orDash(s.Roles.Image))
	fmt.Printf("  refine:     %s\n", orDash(s.Roles.RefinePrompt))
	fmt.Printf("  plan text:  %s\n", orDash(s.Roles.PlanText))
	fmt.Printf("  budget:     %s\n", formatList(s.Roles.Budget))
	fmt.Printf("  itinerary:  %s\n", orDash(s.Roles.Itinerary))
	fmt.Println()

	fmt.Println("[storage]")
	fmt.Printf("  objects: %s\n", s.Objects)
	fmt.Printf("  records: %s\n", s.Records)
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
