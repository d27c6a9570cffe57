// ABOUTME: Twin domain service: CRUD over the store plus image processing
// ABOUTME: Processing runs as a simulated async job that enriches the twin

package twins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/twinspace/twinchat/internal/store"
)

// ErrNoImage is returned when processing is requested for a twin that has no
// image to analyze.
var ErrNoImage = errors.New("twin has no image url")

// DefaultProcessingDelay is how long a simulated processing job takes when the
// config does not override it.
const DefaultProcessingDelay = 5 * time.Second

// Canned analysis output written by the simulated processing pipeline.
const (
	processedFeatures = `{"colors":["#3A6EA5","#FF6B6B","#C0C0C0"],"dimensions":{"width":800,"height":600},"detectedObjects":["person","chair","desk"],"confidence":0.89}`

	processedModelData = `{"vertices":1204,"faces":2048,"textureResolution":"2048x2048","format":"glTF","renderingProperties":{"materials":["diffuse","normal","roughness"],"shadingModel":"PBR","lightingModel":"IBL"}}`
)

// Service owns twin lifecycle operations.
type Service struct {
	store     store.Store
	templates *TemplateLibrary
	logger    *slog.Logger
	delay     time.Duration
}

// NewService creates the twin service. delay <= 0 uses DefaultProcessingDelay.
func NewService(st store.Store, templates *TemplateLibrary, delay time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if delay <= 0 {
		delay = DefaultProcessingDelay
	}
	return &Service{
		store:     st,
		templates: templates,
		logger:    logger.With("component", "twins"),
		delay:     delay,
	}
}

// CreateParams carries the caller-supplied fields for a new twin.
type CreateParams struct {
	Name        string
	Description string
	ImageURL    string
	OwnerID     string
	Tags        []string
	Template    string
}

// Create stores a new twin in draft status. When Template names a builtin
// template, unset fields are filled from it.
func (s *Service) Create(ctx context.Context, params CreateParams) (*store.Twin, error) {
	if params.Template != "" && s.templates != nil {
		if tmpl, ok := s.templates.Get(params.Template); ok {
			if params.Name == "" {
				params.Name = tmpl.Name
			}
			if params.Description == "" {
				params.Description = tmpl.Description
			}
			if len(params.Tags) == 0 {
				params.Tags = tmpl.Tags
			}
		}
	}
	if params.Name == "" {
		return nil, errors.New("twin name is required")
	}

	now := time.Now().UTC()
	twin := &store.Twin{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Description: params.Description,
		ImageURL:    params.ImageURL,
		OwnerID:     params.OwnerID,
		Status:      store.TwinStatusDraft,
		Tags:        params.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTwin(ctx, twin); err != nil {
		return nil, fmt.Errorf("saving twin: %w", err)
	}

	s.logger.Info("twin created", "twin_id", twin.ID, "name", twin.Name)
	return twin, nil
}

// Get fetches a twin by id.
func (s *Service) Get(ctx context.Context, id string) (*store.Twin, error) {
	return s.store.GetTwin(ctx, id)
}

// List returns up to limit twins, most recently updated first. A
// non-positive limit uses the store default.
func (s *Service) List(ctx context.Context, limit int) ([]*store.Twin, error) {
	return s.store.ListTwins(ctx, limit)
}

// Delete removes a twin and, through the schema's cascades, its conversations.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteTwin(ctx, id)
}

// StartProcessing kicks off the simulated image analysis pipeline for a twin.
// It creates a processing job, flips the twin to processing status, and
// completes the job asynchronously after the configured delay. The returned
// job carries the id clients poll with.
func (s *Service) StartProcessing(ctx context.Context, twinID string) (*store.ProcessingJob, error) {
	twin, err := s.store.GetTwin(ctx, twinID)
	if err != nil {
		return nil, err
	}
	if twin.ImageURL == "" {
		return nil, ErrNoImage
	}

	now := time.Now().UTC()
	job := &store.ProcessingJob{
		ID:        uuid.NewString(),
		TwinID:    twin.ID,
		Status:    store.JobStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateProcessingJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating processing job: %w", err)
	}

	twin.Status = store.TwinStatusProcessing
	if err := s.store.UpdateTwin(ctx, twin); err != nil {
		return nil, fmt.Errorf("marking twin as processing: %w", err)
	}

	s.logger.Info("processing started", "twin_id", twin.ID, "job_id", job.ID)
	go s.completeJob(job.ID, twin.ID)

	return job, nil
}

// GetJob fetches a processing job by id.
func (s *Service) GetJob(ctx context.Context, id string) (*store.ProcessingJob, error) {
	return s.store.GetProcessingJob(ctx, id)
}

// completeJob finishes the simulated pipeline after the configured delay.
// Runs on its own goroutine with a background context so shutdown of the
// request that started it does not abandon the job mid-write.
func (s *Service) completeJob(jobID, twinID string) {
	time.Sleep(s.delay)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job, err := s.store.GetProcessingJob(ctx, jobID)
	if err != nil {
		s.logger.Error("processing job vanished", "job_id", jobID, "error", err)
		return
	}

	twin, err := s.store.GetTwin(ctx, twinID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("twin lookup failed: %v", err))
		return
	}

	twin.Features = processedFeatures
	twin.ModelData = processedModelData
	twin.Status = store.TwinStatusActive
	if err := s.store.UpdateTwin(ctx, twin); err != nil {
		s.failJob(ctx, job, fmt.Sprintf("twin update failed: %v", err))
		return
	}

	job.Status = store.JobStatusCompleted
	job.Result = processedFeatures
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateProcessingJob(ctx, job); err != nil {
		s.logger.Error("failed to record job completion", "job_id", jobID, "error", err)
		return
	}

	s.logger.Info("processing completed", "twin_id", twinID, "job_id", jobID)
}

func (s *Service) failJob(ctx context.Context, job *store.ProcessingJob, msg string) {
	job.Status = store.JobStatusError
	job.ErrorMessage = msg
	job.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateProcessingJob(ctx, job); err != nil {
		s.logger.Error("failed to record job error", "job_id", job.ID, "error", err)
		return
	}

	twin, err := s.store.GetTwin(ctx, job.TwinID)
	if err == nil {
		twin.Status = store.TwinStatusError
		if err := s.store.UpdateTwin(ctx, twin); err != nil {
			s.logger.Error("failed to mark twin errored", "twin_id", twin.ID, "error", err)
		}
	}

	s.logger.Warn("processing failed", "twin_id", job.TwinID, "job_id", job.ID, "reason", msg)
}
