package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kcourse/internal/store"
	"kcourse/internal/types"
)

// PlanTable stores trip plans in a PostgREST table.
type PlanTable struct {
	client *Client
	table  string
	now    func() time.Time
}

var _ store.PlanRepository = (*PlanTable)(nil)

func NewPlanTable(client *Client, table string) *PlanTable {
	table = strings.TrimSpace(table)
	if table == "" {
		table = "tour_plan"
	}
	return &PlanTable{client: client, table: table, now: time.Now}
}

func (t *PlanTable) path() string {
	return "/rest/v1/" + url.PathEscape(t.table)
}

func (t *PlanTable) Insert(ctx context.Context, plan *types.TripPlan) error {
	store.PrepareInsert(plan, t.now())
	body, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	_, err = t.client.do(ctx, reqConfig{
		Method:  http.MethodPost,
		Path:    t.path(),
		Body:    body,
		Headers: map[string]string{"Prefer": "return=minimal"},
	}, http.StatusCreated, http.StatusNoContent)
	return err
}

func (t *PlanTable) List(ctx context.Context, filter store.ListFilter) ([]types.TripPlan, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc,id.desc")
	q.Set("limit", strconv.Itoa(filter.EffectiveLimit()))
	if uid := strings.TrimSpace(filter.UserID); uid != "" {
		q.Set("user_id", "eq."+uid)
	}
	plans, err := request[[]types.TripPlan](ctx, t.client, reqConfig{Method: http.MethodGet, Path: t.path(), Query: q}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return *plans, nil
}

func (t *PlanTable) Get(ctx context.Context, id string) (*types.TripPlan, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)
	plans, err := request[[]types.TripPlan](ctx, t.client, reqConfig{Method: http.MethodGet, Path: t.path(), Query: q}, http.StatusOK)
	if err != nil {
		return nil, err
	}
	if len(*plans) == 0 {
		return nil, store.ErrNotFound
	}
	return &(*plans)[0], nil
}

func (t *PlanTable) Delete(ctx context.Context, id string) (*types.TripPlan, error) {
	q := url.Values{}
	q.Set("id", "eq."+id)
	plans, err := request[[]types.TripPlan](ctx, t.client, reqConfig{
		Method:  http.MethodDelete,
		Path:    t.path(),
		Query:   q,
		Headers: map[string]string{"Prefer": "return=representation"},
	}, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("delete trip plan %s: %w", id, err)
	}
	if len(*plans) == 0 {
		return nil, store.ErrNotFound
	}
	return &(*plans)[0], nil
}

// Close is a no-op; the client holds no connection state.
func (t *PlanTable) Close() error { return nil }
