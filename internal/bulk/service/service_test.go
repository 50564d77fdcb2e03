package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"credverse/internal/bulk/models"
	"credverse/internal/bulk/service"
	bulkstore "credverse/internal/bulk/store"
	credmodels "credverse/internal/credential/models"
	credservice "credverse/internal/credential/service"
	credstore "credverse/internal/credential/store"
	issuerservice "credverse/internal/issuer/service"
	issuerstore "credverse/internal/issuer/store"
	"credverse/internal/ledger"
	"credverse/internal/ledger/hash"
	"credverse/internal/ledger/registry"
	"credverse/internal/token"
	dErrors "credverse/pkg/domain-errors"
	"credverse/pkg/platform/sentinel"
)

var adminIdentity = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type ServiceSuite struct {
	suite.Suite
	svc      *service.Service
	issuerID uuid.UUID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.New(adminIdentity)
	adapter := ledger.New(ledger.NewSimulated(reg, adminIdentity), 0, logger)
	signer := token.NewSigner(token.NewInMemoryKeyProvider(), "credverse")

	issuers := issuerservice.New(issuerstore.NewInMemoryStore(), adapter,
		issuerservice.WithLogger(logger))
	issuer, _, err := issuers.Register(context.Background(), issuerservice.RegisterRequest{
		Name:   "National University",
		DID:    "did:web:nu.example.edu",
		Domain: "nu.example.edu",
	})
	s.Require().NoError(err)
	s.issuerID = issuer.ID

	creds := credservice.New(credstore.NewInMemoryStore(), issuers, adapter, signer,
		credservice.WithLogger(logger))

	s.svc = service.New(bulkstore.NewInMemoryStore(), creds,
		service.Config{MaxBatch: 10, Concurrency: 3, RetryBase: time.Millisecond},
		service.WithLogger(logger),
	)
}

func item(recipient, degree string) models.Item {
	return models.Item{
		TemplateID: "degree-2026",
		Recipient:  recipient,
		Payload:    hash.Payload{"degree": degree},
	}
}

func (s *ServiceSuite) waitDone(id uuid.UUID) *models.Job {
	var job *models.Job
	s.Eventually(func() bool {
		var err error
		job, err = s.svc.Get(context.Background(), id)
		return err == nil && job.Status == models.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func (s *ServiceSuite) TestSubmitRejectsOversizedBatch() {
	items := make([]models.Item, 11)
	for i := range items {
		items[i] = item("Recipient", "BSc")
	}
	_, err := s.svc.Submit(context.Background(), s.issuerID, items)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBatchTooLarge))
}

func (s *ServiceSuite) TestSubmitRejectsEmptyBatch() {
	_, err := s.svc.Submit(context.Background(), s.issuerID, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestPartialFailuresStillComplete() {
	items := make([]models.Item, 10)
	for i := range items {
		items[i] = item("Student", fmt.Sprintf("BSc-%d", i))
	}
	// slots 3 and 7 fail validation inside the orchestrator
	items[3].Recipient = ""
	items[7].Payload = nil

	job, err := s.svc.Submit(context.Background(), s.issuerID, items)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, job.Status)

	done := s.waitDone(job.ID)
	s.Equal(10, done.Processed)
	s.Equal(8, done.Succeeded)
	s.Equal(2, done.Failed)
	s.Len(done.Errors, 2)

	for i, res := range done.Results {
		s.Equal(i, res.Index)
		if i == 3 || i == 7 {
			s.NotEmpty(res.Error)
			s.Empty(res.CredentialID)
		} else {
			s.Empty(res.Error)
			s.NotEmpty(res.CredentialID)
		}
	}
}

// flakyIssuer fails each item with a transient error until its counter
// runs out.
type flakyIssuer struct {
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyIssuer) Issue(_ context.Context, _ credservice.IssueRequest) (*credmodels.Credential, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return nil, dErrors.New(dErrors.CodeUnavailable, "ledger briefly down")
	}
	return &credmodels.Credential{ID: uuid.New()}, nil
}

func (s *ServiceSuite) TestTransientFailuresRetry() {
	issuer := &flakyIssuer{}
	issuer.failures.Store(2)

	svc := service.New(bulkstore.NewInMemoryStore(), issuer,
		service.Config{MaxBatch: 10, Concurrency: 1, RetryBase: time.Millisecond},
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	job, err := svc.Submit(context.Background(), s.issuerID, []models.Item{item("Student", "BSc")})
	s.Require().NoError(err)

	s.Eventually(func() bool {
		got, err := svc.Get(context.Background(), job.ID)
		return err == nil && got.Status == models.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	done, err := svc.Get(context.Background(), job.ID)
	s.Require().NoError(err)
	s.Equal(1, done.Succeeded)
	s.Equal(int32(3), issuer.calls.Load())
}

// chanQueue is an in-process Queue for exercising the worker loop.
type chanQueue struct {
	ids chan uuid.UUID
}

func (q *chanQueue) Enqueue(_ context.Context, id uuid.UUID) error {
	q.ids <- id
	return nil
}

func (q *chanQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	select {
	case id := <-q.ids:
		return id, nil
	case <-time.After(timeout):
		return uuid.Nil, sentinel.ErrNotFound
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

func (s *ServiceSuite) TestWorkerDrainsQueue() {
	issuer := &flakyIssuer{}
	queue := &chanQueue{ids: make(chan uuid.UUID, 1)}

	svc := service.New(bulkstore.NewInMemoryStore(), issuer,
		service.Config{MaxBatch: 10, Concurrency: 2, RetryBase: time.Millisecond},
		service.WithQueue(queue),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	job, err := svc.Submit(context.Background(), s.issuerID, []models.Item{
		item("A", "BSc"), item("B", "MSc"),
	})
	s.Require().NoError(err)

	s.Eventually(func() bool {
		got, err := svc.Get(context.Background(), job.ID)
		return err == nil && got.Status == models.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	done, err := svc.Get(context.Background(), job.ID)
	s.Require().NoError(err)
	s.Equal(2, done.Succeeded)
	s.Equal(0, done.Failed)
}
