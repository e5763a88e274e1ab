package planshttp

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"kcourse/internal/gateway/objectstore"
	"kcourse/internal/itinerary"
	"kcourse/internal/logger"
	"kcourse/internal/store"
	"kcourse/internal/synthesis"
	"kcourse/internal/types"

	"github.com/gin-gonic/gin"
)

type handler struct {
	synth     Synthesizer
	plans     store.PlanRepository
	objects   ObjectRemover
	blobs     objectstore.Getter
	drafter   Drafter
	maxUpload int64
}

func (h *handler) register(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/plans", h.handleCreatePlan)
	api.GET("/plans", h.handleListPlans)
	api.GET("/plans/:id", h.handleGetPlan)
	api.DELETE("/plans/:id", h.handleDeletePlan)
	if h.drafter != nil {
		api.POST("/itinerary", h.handleItinerary)
	}
	if h.blobs != nil {
		router.GET("/objects/*key", h.handleObject)
	}
}

func (h *handler) handleCreatePlan(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	req, problems := h.bindTripRequest(c)
	if len(problems) > 0 {
		var verr *synthesis.ValidationError
		if errors.As(req.Validate(), &verr) {
			problems = mergeProblems(problems, verr.Problems)
		}
		writeError(c, &synthesis.ValidationError{Problems: problems})
		return
	}
	plan, err := h.synth.SynthesizeTripPlan(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *handler) bindTripRequest(c *gin.Context) (*synthesis.TripRequest, []synthesis.FieldProblem) {
	var problems []synthesis.FieldProblem
	req := &synthesis.TripRequest{
		UserID:      c.PostForm("user_id"),
		Destination: c.PostForm("destination"),
		Purpose:     c.PostForm("purpose"),
	}
	if raw := strings.TrimSpace(c.PostForm("people_count")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			problems = append(problems, synthesis.FieldProblem{Field: "people_count", Reason: "must be an integer"})
		}
		req.PeopleCount = n
	}
	for _, f := range []struct {
		name string
		dst  *types.Date
	}{{"start_date", &req.StartDate}, {"end_date", &req.EndDate}} {
		raw := strings.TrimSpace(c.PostForm(f.name))
		if raw == "" {
			continue
		}
		d, err := types.ParseDate(raw)
		if err != nil {
			problems = append(problems, synthesis.FieldProblem{Field: f.name, Reason: "must be a date (YYYY-MM-DD)"})
			continue
		}
		*f.dst = d
	}

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		problems = append(problems, synthesis.FieldProblem{Field: "image", Reason: "could not be read"})
	case fh.Size > h.maxUpload:
		problems = append(problems, synthesis.FieldProblem{Field: "image", Reason: "exceeds " + strconv.FormatInt(h.maxUpload>>20, 10) + " MB"})
	default:
		photo, err := readPhoto(fh)
		if err != nil {
			problems = append(problems, synthesis.FieldProblem{Field: "image", Reason: "could not be read"})
			break
		}
		req.Photo = photo
	}
	return req, problems
}

func readPhoto(fh *multipart.FileHeader) (*synthesis.Photo, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	mime := fh.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return &synthesis.Photo{Filename: fh.Filename, MIMEType: mime, Data: data}, nil
}

func mergeProblems(a, b []synthesis.FieldProblem) []synthesis.FieldProblem {
	seen := make(map[string]bool, len(a))
	for _, p := range a {
		seen[p.Field] = true
	}
	for _, p := range b {
		if !seen[p.Field] {
			a = append(a, p)
		}
	}
	return a
}

func (h *handler) handleListPlans(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	plans, err := h.plans.List(c.Request.Context(), store.ListFilter{
		UserID: strings.TrimSpace(c.Query("user_id")),
		Limit:  limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if plans == nil {
		plans = []types.TripPlan{}
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *handler) handleGetPlan(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *handler) handleDeletePlan(c *gin.Context) {
	ctx := c.Request.Context()
	plan, err := h.plans.Delete(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if h.objects != nil && plan.ImageURL != "" {
		if key := objectstore.KeyFromURL(plan.ImageURL); key != "" {
			if err := h.objects.Remove(ctx, key); err != nil {
				logger.Warnf("plan %s deleted but image %s was not removed: %v", plan.ID, key, err)
			}
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) handleItinerary(c *gin.Context) {
	var req itinerary.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid itinerary request", "detail": err.Error()})
		return
	}
	plan, err := h.drafter.Draft(c.Request.Context(), req)
	if err != nil {
		logger.Warnf("itinerary draft failed rid=%s: %v", c.GetString(requestIDKey), err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "itinerary generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *handler) handleObject(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	obj, err := h.blobs.Get(c.Request.Context(), key)
	if errors.Is(err, objectstore.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

func writeError(c *gin.Context, err error) {
	var (
		verr *synthesis.ValidationError
		perr *synthesis.PipelineError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trip request", "problems": verr.Problems})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "trip plan not found"})
	case errors.As(err, &perr):
		logger.Errorf("trip plan pipeline failed rid=%s stage=%s: %v", c.GetString(requestIDKey), perr.Stage, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "trip plan generation failed", "stage": perr.Stage})
	default:
		logger.Errorf("request failed rid=%s %s %s: %v", c.GetString(requestIDKey), c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
