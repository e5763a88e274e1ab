package synthesis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"kcourse/internal/gateway/provider"
	"kcourse/internal/types"

	"github.com/stretchr/testify/mock"
)

type fakeModel struct {
	id     string
	vision bool
	delay  time.Duration
	reply  string
	err    error

	calls    atomic.Int32
	mu       sync.Mutex
	payloads []provider.ChatPayload
}

func (m *fakeModel) ID() string           { return m.id }
func (m *fakeModel) SupportsVision() bool { return m.vision }

func (m *fakeModel) Call(ctx context.Context, payload provider.ChatPayload) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *fakeModel) lastPayload() provider.ChatPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.payloads) == 0 {
		return provider.ChatPayload{}
	}
	return m.payloads[len(m.payloads)-1]
}

type fakeImages struct {
	id    string
	parts []provider.Part
	err   error
	calls atomic.Int32
}

func (f *fakeImages) ID() string { return f.id }

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) ([]provider.Part, error) {
	f.calls.Add(1)
	return f.parts, f.err
}

type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removed   []string
	uploadErr error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.PublicURL(key), nil
}

func (m *memObjects) PublicURL(key string) string {
	return "https://cdn.test/tour-images/" + key
}

func (m *memObjects) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memObjects) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Insert(ctx context.Context, plan *types.TripPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

var errUpstream = errors.New("upstream exploded")

func pngPart(data ...byte) provider.ImagePart {
	return provider.ImagePart{MIMEType: "image/png", Data: data}
}
