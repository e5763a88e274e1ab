package synthesis

import (
	"context"
	"fmt"
	"time"

	"kcourse/internal/gateway/provider"
	"kcourse/internal/logger"
)

// invoke runs one model call with request/response logging.
func invoke(ctx context.Context, p provider.ModelProvider, stage Stage, payload provider.ChatPayload) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("model %s panic in %s: %v", p.ID(), stage, r)
			err = &ProviderError{Provider: p.ID(), Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	logger.LogLLMRequest(p.ID(), string(stage), payload.System, payload.User, provider.SummarizeImages(payload.Images))
	start := time.Now()
	raw, err = p.Call(ctx, payload)
	elapsed := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		logger.Warnf("model %s %s failed elapsed=%s err=%v", p.ID(), stage, elapsed, err)
		return "", err
	}
	logger.LogLLMResponse(p.ID(), string(stage), raw)
	logger.Debugf("model %s %s ok elapsed=%s chars=%d", p.ID(), stage, elapsed, len([]rune(raw)))
	return raw, nil
}
