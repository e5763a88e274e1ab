package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kcourse/internal/logger"
	"kcourse/internal/types"
)

const cleanupTimeout = 10 * time.Second

// Orchestrator runs one trip plan synthesis: visual context, plan text,
// budget, then a single insert. Any stage failure aborts the run and nothing
// is persisted.
type Orchestrator struct {
	Visual    *VisualExtractor
	Generator *PlanGenerator
	Budget    *BudgetEstimator
	Objects   ObjectStore
	Records   RecordStore
	Prompts   PromptSource
	Now       func() time.Time
}

func NewOrchestrator(visual *VisualExtractor, gen *PlanGenerator, budget *BudgetEstimator, objects ObjectStore, records RecordStore, prompts PromptSource) *Orchestrator {
	return &Orchestrator{
		Visual:    visual,
		Generator: gen,
		Budget:    budget,
		Objects:   objects,
		Records:   records,
		Prompts:   prompts,
		Now:       time.Now,
	}
}

// SynthesizeTripPlan validates req and runs the pipeline. Validation
// failures are returned as *ValidationError; every later failure is a
// *PipelineError naming the stage. req.Purpose is extended with the photo
// descriptions.
func (o *Orchestrator) SynthesizeTripPlan(ctx context.Context, req *TripRequest) (plan *types.TripPlan, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := o.now()
	var storedKey string
	defer func() {
		if err == nil {
			runsTotal.WithLabelValues("ok", "").Inc()
			logger.Infof("trip plan %s synthesized destination=%s elapsed=%s", plan.ID, plan.Destination, time.Since(started).Truncate(time.Millisecond))
			return
		}
		runsTotal.WithLabelValues("error", string(StageOf(err))).Inc()
		logger.Warnf("trip plan synthesis failed destination=%s: %v", req.Destination, err)
		if storedKey != "" {
			o.discardObject(ctx, storedKey)
		}
	}()

	var imageURL string
	if req.HasPhoto() {
		key := PhotoKey(o.now(), req.Photo.Filename)
		url, err := runTyped(StageUpload, func() (string, error) {
			u, err := o.Objects.Upload(ctx, key, req.Photo.Data, req.Photo.MIMEType)
			if err != nil {
				return "", &StorageError{Op: "upload", Key: key, Err: err}
			}
			return u, nil
		})
		if err != nil {
			return nil, err
		}
		storedKey, imageURL = key, url

		start := time.Now()
		a, b, verr := o.Visual.DescribePhoto(ctx, req.Photo)
		observeStage(StageVision, start, verr)
		if verr != nil {
			return nil, &PipelineError{Stage: StageVision, Err: verr}
		}
		prompts := o.prompts()
		req.Purpose += prompts.PhotoNote(a)
		req.Purpose += prompts.PhotoNote(b)
	} else {
		start := time.Now()
		url, key, ierr := o.Visual.SynthesizeImage(ctx, req)
		observeStage(StageImage, start, ierr)
		if ierr != nil {
			stage := StageImage
			var serr *StorageError
			if errors.As(ierr, &serr) {
				stage = StageUpload
			}
			return nil, &PipelineError{Stage: stage, Err: ierr}
		}
		storedKey, imageURL = key, url
	}

	refined, err := runTyped(StageRefine, func() (RefinedPrompt, error) {
		return o.Generator.GenerateRefinedPrompt(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	planText, err := runTyped(StagePlan, func() (string, error) {
		return o.Generator.GeneratePlanText(ctx, refined)
	})
	if err != nil {
		return nil, err
	}
	budget, err := runTyped(StageBudget, func() (BudgetRange, error) {
		return o.Budget.EstimateBudget(ctx, planText)
	})
	if err != nil {
		return nil, err
	}

	record := &types.TripPlan{
		UserID:       req.UserID,
		Destination:  req.Destination,
		Purpose:      req.Purpose,
		PeopleCount:  req.PeopleCount,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		ImageURL:     imageURL,
		AISuggestion: planText,
		AIMinBudget:  budget.Min,
		AIMaxBudget:  budget.Max,
	}
	if _, err := runTyped(StagePersist, func() (struct{}, error) {
		if err := o.Records.Insert(ctx, record); err != nil {
			return struct{}{}, &PersistenceError{Err: err}
		}
		return struct{}{}, nil
	}); err != nil {
		return nil, err
	}
	return record, nil
}

func runTyped[T any](stage Stage, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	observeStage(stage, start, err)
	if err != nil {
		return out, &PipelineError{Stage: stage, Err: err}
	}
	return out, nil
}

// discardObject removes an image stored by a run that did not persist a record.
func (o *Orchestrator) discardObject(ctx context.Context, key string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := o.Objects.Remove(cctx, key); err != nil {
		logger.Warnf("remove orphaned object %s: %v", key, err)
	}
}

func (o *Orchestrator) prompts() *Prompts {
	if o.Prompts == nil {
		return DefaultPrompts()
	}
	return o.Prompts.Prompts()
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// String describes the configured models, for startup logs.
func (o *Orchestrator) String() string {
	ids := func(n int, id func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = id(i)
		}
		return out
	}
	return fmt.Sprintf("vision=%v image=%s refine=%s plan=%s budget=%v",
		ids(len(o.Visual.Vision), func(i int) string { return o.Visual.Vision[i].ID() }),
		o.Visual.Images.ID(), o.Generator.Refiner.ID(), o.Generator.Writer.ID(),
		ids(len(o.Budget.Panel), func(i int) string { return o.Budget.Panel[i].ID() }))
}
