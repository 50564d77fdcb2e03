package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"credverse/internal/bulk/models"
	credmodels "credverse/internal/credential/models"
	credservice "credverse/internal/credential/service"
	"credverse/internal/platform/metrics"
	dErrors "credverse/pkg/domain-errors"
	"credverse/pkg/platform/audit"
	"credverse/pkg/platform/sentinel"
)

const (
	defaultMaxBatch    = 1000
	defaultConcurrency = 5
	maxRetries         = 3
	dequeueWait        = 5 * time.Second
)

// Store persists bulk jobs.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// Queue hands job ids to the background worker. When no queue is
// configured jobs run in a detached goroutine instead, non-durable.
type Queue interface {
	Enqueue(ctx context.Context, id uuid.UUID) error
	Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error)
}

// Issuer is the slice of the credential orchestrator the worker drives.
type Issuer interface {
	Issue(ctx context.Context, req credservice.IssueRequest) (*credmodels.Credential, error)
}

// Config bounds batch size, worker parallelism and retry pacing.
type Config struct {
	MaxBatch    int
	Concurrency int
	RetryBase   time.Duration
}

// Service accepts bulk issuance jobs and processes them with a bounded
// worker pool. Result slots are fixed at submission so output order always
// matches input order.
type Service struct {
	store   Store
	queue   Queue
	issuer  Issuer
	cfg     Config
	audit   audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

func WithQueue(q Queue) Option {
	return func(s *Service) {
		s.queue = q
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(p audit.Publisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store Store, issuer Issuer, cfg Config, opts ...Option) *Service {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	s := &Service{
		store:  store,
		issuer: issuer,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and registers a bulk job. The job is queued for the
// worker when a queue is configured, otherwise processed in a detached
// goroutine that does not survive a restart.
func (s *Service) Submit(ctx context.Context, issuerID uuid.UUID, items []models.Item) (*models.Job, error) {
	if len(items) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "bulk job needs at least one item")
	}
	if len(items) > s.cfg.MaxBatch {
		return nil, dErrors.New(dErrors.CodeBatchTooLarge,
			fmt.Sprintf("batch of %d exceeds the %d item limit", len(items), s.cfg.MaxBatch))
	}

	job := &models.Job{
		ID:        uuid.New(),
		IssuerID:  issuerID,
		Status:    models.StatusPending,
		Items:     items,
		Results:   make([]models.ItemResult, len(items)),
		Total:     len(items),
		CreatedAt: time.Now().UTC(),
	}
	for i := range job.Results {
		job.Results[i].Index = i
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist bulk job")
	}

	s.emit(ctx, audit.NewEvent(audit.ActionBulkJobSubmitted, issuerID.String(), "", "success").
		WithDetail("job_id", job.ID.String()).
		WithDetail("total", fmt.Sprintf("%d", job.Total)))

	if s.queue != nil {
		err := s.queue.Enqueue(ctx, job.ID)
		if err == nil {
			return job, nil
		}
		s.logger.WarnContext(ctx, "bulk enqueue failed, processing in-process",
			"job_id", job.ID,
			"error", err,
		)
	}
	go s.Process(context.WithoutCancel(ctx), job.ID)
	return job, nil
}

// Get returns a bulk job with its current progress.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "bulk job not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load bulk job")
	}
	return job, nil
}

// Run is the worker loop. It blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.queue == nil {
		return fmt.Errorf("bulk worker needs a queue")
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		id, err := s.queue.Dequeue(ctx, dequeueWait)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WarnContext(ctx, "bulk dequeue failed", "error", err)
			continue
		}
		s.Process(ctx, id)
	}
}

// Process runs one job to completion. Once processing starts the job always
// ends completed; per-item failures are recorded, not fatal.
func (s *Service) Process(ctx context.Context, id uuid.UUID) {
	job, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "bulk job vanished before processing", "job_id", id, "error", err)
		return
	}
	if job.Status != models.StatusPending {
		return
	}

	now := time.Now().UTC()
	job.Status = models.StatusProcessing
	job.StartedAt = &now
	if err := s.store.Update(ctx, job); err != nil {
		job.Status = models.StatusFailed
		s.logger.ErrorContext(ctx, "bulk job could not start", "job_id", id, "error", err)
		s.finish(ctx, job)
		return
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range job.Items {
		g.Go(func() error {
			cred, err := s.issueWithRetry(gctx, job.IssuerID, job.Items[i])

			mu.Lock()
			defer mu.Unlock()
			job.Processed++
			if err != nil {
				job.Failed++
				job.Results[i].Error = err.Error()
				job.Errors = append(job.Errors, fmt.Sprintf("item %d: %s", i, err.Error()))
			} else {
				job.Succeeded++
				job.Results[i].CredentialID = cred.ID.String()
			}
			if uerr := s.store.Update(ctx, job); uerr != nil {
				s.logger.WarnContext(ctx, "bulk progress update failed", "job_id", job.ID, "error", uerr)
			}
			return nil
		})
	}
	_ = g.Wait()

	job.Status = models.StatusCompleted
	s.finish(ctx, job)
}

func (s *Service) finish(ctx context.Context, job *models.Job) {
	done := time.Now().UTC()
	job.CompletedAt = &done
	if err := s.store.Update(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "bulk completion update failed", "job_id", job.ID, "error", err)
	}

	s.emit(ctx, audit.NewEvent(audit.ActionBulkJobCompleted, job.IssuerID.String(), "", string(job.Status)).
		WithDetail("job_id", job.ID.String()).
		WithDetail("succeeded", fmt.Sprintf("%d", job.Succeeded)).
		WithDetail("failed", fmt.Sprintf("%d", job.Failed)))
	if s.metrics != nil {
		s.metrics.ObserveBulkJob(string(job.Status))
	}
}

// issueWithRetry retries transient issuance failures with exponential
// backoff, 1x 2x 4x the base delay capped at sixty times the base.
func (s *Service) issueWithRetry(ctx context.Context, issuerID uuid.UUID, item models.Item) (*credmodels.Credential, error) {
	req := credservice.IssueRequest{
		IssuerID:       issuerID,
		TemplateID:     item.TemplateID,
		Recipient:      item.Recipient,
		RecipientEmail: item.RecipientEmail,
		Payload:        item.Payload,
		ExpiresIn:      item.ExpiresIn,
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := s.backoff(ctx, attempt); err != nil {
				return nil, lastErr
			}
		}
		cred, err := s.issuer.Issue(ctx, req)
		if err == nil {
			return cred, nil
		}
		lastErr = err
		if !transient(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (s *Service) backoff(ctx context.Context, attempt int) error {
	delay := s.cfg.RetryBase << (attempt - 1)
	if maxDelay := 60 * s.cfg.RetryBase; delay > maxDelay {
		delay = maxDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func transient(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeTimeout) || dErrors.HasCode(err, dErrors.CodeUnavailable)
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Publish(ctx, event)
	}
}
