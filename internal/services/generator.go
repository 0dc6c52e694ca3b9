package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/genx/internal/shared"
)

var _ Producer = (*GeneratorService)(nil)

// GeneratorService is the HTTP client for the generation producer endpoints.
//
// Provider-specific adapters live behind the backend; this client only sees the
// normalized job contract.
type GeneratorService struct {
	api *APIService
}

// NewGeneratorService creates a GeneratorService backed by api.
func NewGeneratorService(api *APIService) *GeneratorService {
	return &GeneratorService{api: api}
}

// StartJob implements [Producer] against POST /api/generations.
func (g *GeneratorService) StartJob(ctx context.Context, req GenerationRequest) (*JobState, error) {
	if g.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(req.Prompt) == "" && len(req.References) == 0 {
		return nil, fmt.Errorf("%w: prompt or reference required", shared.ErrInvalidInput)
	}

	var state JobState
	if err := g.api.PostJSON(ctx, "/api/generations", req, &state); err != nil {
		return nil, err
	}
	if state.JobID == "" {
		state.JobID = req.ClientJobID
	}
	return &state, nil
}

// JobStatus implements [Producer] against GET /api/generations/{id}.
func (g *GeneratorService) JobStatus(ctx context.Context, jobID string) (*JobState, error) {
	if g.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}
	if strings.TrimSpace(jobID) == "" {
		return nil, fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}

	var state JobState
	if err := g.api.GetJSON(ctx, "/api/generations/"+url.PathEscape(jobID), &state); err != nil {
		return nil, err
	}
	if state.JobID == "" {
		state.JobID = jobID
	}
	return &state, nil
}
