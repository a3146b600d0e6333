package jobs

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/repair-jobsheets/constants"
	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/entity"
	"github.com/joseph-ayodele/repair-jobsheets/internal/repository"
	"github.com/joseph-ayodele/repair-jobsheets/internal/validate"
)

const recentJobsLimit = 5

// Service handles job business logic. Every write goes through
// sanitize, then validate, then the repository.
type Service struct {
	jobRepo repository.JobRepository
	logger  *slog.Logger
}

// NewService creates a new job service.
func NewService(jobRepo repository.JobRepository, logger *slog.Logger) *Service {
	return &Service{
		jobRepo: jobRepo,
		logger:  logger,
	}
}

// prepare sanitises rec and canonicalises its status so the enum rule
// accepts any casing.
func prepare(rec validate.Record) validate.Record {
	clean := validate.Sanitize(rec)
	if s, ok := clean["status"].(string); ok && s != "" {
		clean["status"] = constants.NormalizeStatus(s)
	}
	return clean
}

// Create validates a full job record and appends it.
func (s *Service) Create(ctx context.Context, rec validate.Record) (*entity.Job, error) {
	clean := prepare(rec)
	if err := validate.Validate(clean, validate.JobSchema).Err(); err != nil {
		s.logger.Info("jobs.create.invalid", "request_id", common.RequestIDFromContext(ctx), "error", err)
		return nil, err
	}

	completion := clean.String("completionDate")
	if completion == "" {
		completion = clean.String("expectedDate")
	}
	job := &entity.Job{
		ID:             clean.String("uid"),
		CustomerName:   clean.String("customerName"),
		MobileNumber:   clean.String("mobileNumber"),
		MobileModel:    clean.String("mobileModel"),
		Issue:          clean.String("issue"),
		CustomIssue:    clean.String("customIssue"),
		Components:     clean.String("components"),
		Status:         clean.String("status"),
		EntryDate:      clean.String("entryDate"),
		CompletionDate: completion,
		TotalAmount:    clean.String("totalAmount"),
		Notes:          clean.String("notes"),
	}
	return s.jobRepo.Create(ctx, job)
}

// Update validates the fields present in rec and applies them to job id.
func (s *Service) Update(ctx context.Context, id string, rec validate.Record) (*entity.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewAppError("INVALID_INPUT", "job id is required", common.ErrInvalidInput)
	}
	clean := prepare(rec)
	if err := validate.Validate(clean, validate.JobSchema.Partial()).Err(); err != nil {
		s.logger.Info("jobs.update.invalid", "id", id, "error", err)
		return nil, err
	}

	patch := repository.JobPatch{}
	for _, field := range repository.PatchFields() {
		if clean.Has(field) {
			patch[field] = clean.String(field)
		}
	}
	if status, ok := patch["status"]; ok && status == "" {
		delete(patch, "status")
	}
	if issue, ok := patch["issue"]; ok {
		if custom := clean.String("customIssue"); custom != "" {
			patch["issue"] = strings.TrimSpace(issue + " - " + custom)
		}
	}
	if len(patch) == 0 {
		return nil, common.NewAppError("INVALID_INPUT", "no updatable fields supplied", common.ErrInvalidInput)
	}
	return s.jobRepo.Update(ctx, id, patch)
}

// UpdateStatus changes only the status. Completing a job stamps today's
// completion date unless one is already stored.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*entity.Job, error) {
	clean := prepare(validate.Record{"status": status})
	if err := validate.Validate(clean, validate.StatusSchema).Err(); err != nil {
		return nil, err
	}
	return s.jobRepo.Update(ctx, id, repository.JobPatch{"status": clean.String("status")})
}

func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	return s.jobRepo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Job, error) {
	return s.jobRepo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*entity.Job, error) {
	return s.jobRepo.ListAll(ctx)
}

// Search looks jobs up by ID, customer name or mobile number.
func (s *Service) Search(ctx context.Context, query string) ([]*entity.Job, error) {
	q, _ := validate.Sanitize(validate.Record{"q": query})["q"].(string)
	if q == "" {
		return nil, common.NewAppError("INVALID_INPUT", "Search query is required", common.ErrInvalidInput)
	}
	return s.jobRepo.Search(ctx, q)
}

// Stats counts jobs per canonical status and returns the last five rows,
// newest first.
func (s *Service) Stats(ctx context.Context) (*entity.Stats, error) {
	all, err := s.jobRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &entity.Stats{Total: len(all), RecentJobs: make([]*entity.Job, 0, recentJobsLimit)}
	for _, j := range all {
		switch constants.JobStatus(j.Status) {
		case constants.JobStatusPending:
			stats.Pending++
		case constants.JobStatusInProgress:
			stats.InProgress++
		case constants.JobStatusCompleted:
			stats.Completed++
		}
	}
	for i := len(all) - 1; i >= 0 && len(stats.RecentJobs) < recentJobsLimit; i-- {
		stats.RecentJobs = append(stats.RecentJobs, all[i])
	}
	return stats, nil
}
