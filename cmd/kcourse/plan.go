package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"kcourse/internal/app"
	"kcourse/internal/synthesis"
	"kcourse/internal/types"

	"github.com/spf13/cobra"
)

type planOptions struct {
	UserID      string
	Destination string
	Purpose     string
	People      int
	StartDate   string
	EndDate     string
	ImagePath   string
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := planOptions{People: 1}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Synthesize one trip plan and print the stored record as JSON",
		Example: `  kcourse plan --destination 경주 --purpose "역사 탐방" --people 2 --start 2025-10-03 --end 2025-10-05
  kcourse plan --destination 부산 --purpose "드라마 촬영지" --start 2025-11-01 --end 2025-11-02 --image ./haeundae.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.tripRequest()
			if err != nil {
				return err
			}
			cfg, cleanup, err := loadConfig(root)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.NewApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			plan, err := a.Orchestrator().SynthesizeTripPlan(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(plan)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.UserID, "user", "", "Owner user id stored with the plan")
	f.StringVarP(&opts.Destination, "destination", "d", "", "Destination (required)")
	f.StringVarP(&opts.Purpose, "purpose", "p", "", "Trip purpose (required)")
	f.IntVarP(&opts.People, "people", "n", 1, "Party size")
	f.StringVar(&opts.StartDate, "start", "", "Start date YYYY-MM-DD (required)")
	f.StringVar(&opts.EndDate, "end", "", "End date YYYY-MM-DD (required)")
	f.StringVar(&opts.ImagePath, "image", "", "Optional photo describing the trip mood")
	_ = cmd.MarkFlagRequired("destination")
	_ = cmd.MarkFlagRequired("purpose")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func (o planOptions) tripRequest() (*synthesis.TripRequest, error) {
	start, err := types.ParseDate(o.StartDate)
	if err != nil {
		return nil, fmt.Errorf("--start: %w", err)
	}
	end, err := types.ParseDate(o.EndDate)
	if err != nil {
		return nil, fmt.Errorf("--end: %w", err)
	}
	req := &synthesis.TripRequest{
		UserID:      o.UserID,
		Destination: o.Destination,
		Purpose:     o.Purpose,
		PeopleCount: o.People,
		StartDate:   start,
		EndDate:     end,
	}
	if strings.TrimSpace(o.ImagePath) != "" {
		data, err := os.ReadFile(o.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("--image: %w", err)
		}
		ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(o.ImagePath)))
		if ct == "" {
			ct = http.DetectContentType(data)
		}
		req.Photo = &synthesis.Photo{Filename: filepath.Base(o.ImagePath), MIMEType: ct, Data: data}
	}
	return req, nil
}
