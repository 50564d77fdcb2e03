package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,IssuerDirectory,Ledger,TokenSigner,Notifier

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"credverse/internal/credential/models"
	"credverse/internal/credential/service"
	"credverse/internal/credential/service/mocks"
	credstore "credverse/internal/credential/store"
	issuermodels "credverse/internal/issuer/models"
	issuerservice "credverse/internal/issuer/service"
	issuerstore "credverse/internal/issuer/store"
	"credverse/internal/ledger"
	"credverse/internal/ledger/hash"
	"credverse/internal/ledger/registry"
	"credverse/internal/token"
	dErrors "credverse/pkg/domain-errors"
)

var adminIdentity = common.HexToAddress("0x00000000000000000000000000000000000000aa")

type ServiceSuite struct {
	suite.Suite
	svc     *service.Service
	issuers *issuerservice.Service
	issuer  *issuermodels.Issuer
	signer  *token.Signer
	adapter *ledger.Adapter
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reg := registry.New(adminIdentity)
	s.adapter = ledger.New(ledger.NewSimulated(reg, adminIdentity), 0, logger)
	s.signer = token.NewSigner(token.NewInMemoryKeyProvider(), "credverse")

	s.issuers = issuerservice.New(issuerstore.NewInMemoryStore(), s.adapter,
		issuerservice.WithLogger(logger))

	var err error
	s.issuer, _, err = s.issuers.Register(context.Background(), issuerservice.RegisterRequest{
		Name:   "National University",
		DID:    "did:web:nu.example.edu",
		Domain: "nu.example.edu",
	})
	s.Require().NoError(err)

	s.svc = service.New(credstore.NewInMemoryStore(), s.issuers, s.adapter, s.signer,
		service.WithLogger(logger))
}

func (s *ServiceSuite) issueRequest() service.IssueRequest {
	return service.IssueRequest{
		IssuerID:   s.issuer.ID,
		TemplateID: "degree-2026",
		Recipient:  "Asha Patel",
		Payload: hash.Payload{
			"degree": "BSc Computer Science",
			"year":   2026,
		},
	}
}

func (s *ServiceSuite) TestIssueAnchorsCredential() {
	cred, err := s.svc.Issue(context.Background(), s.issueRequest())
	s.Require().NoError(err)

	s.Equal(models.StatusAnchored, cred.Status)
	s.True(strings.HasPrefix(cred.LedgerRef, "sim-0x"))
	s.NotNil(cred.AnchoredAt)
	s.NotEqual(common.Hash{}, cred.ContentHash)

	claims, err := s.signer.Decode(context.Background(), cred.Token)
	s.Require().NoError(err)
	s.Equal(cred.ID.String(), claims.CredentialID)
	s.Equal(cred.ContentHash.Hex(), claims.ContentHash)
	s.Equal("Asha Patel", claims.Recipient)

	res, err := s.adapter.Verify(context.Background(), cred.ContentHash)
	s.Require().NoError(err)
	s.True(res.Exists)
	s.False(res.Revoked)
}

func (s *ServiceSuite) TestIssueValidatesRequest() {
	req := s.issueRequest()
	req.Recipient = ""
	_, err := s.svc.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	req = s.issueRequest()
	req.Payload = nil
	_, err = s.svc.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestIssueRejectsRevokedIssuer() {
	_, err := s.issuers.Revoke(context.Background(), s.issuer.ID)
	s.Require().NoError(err)

	_, err = s.svc.Issue(context.Background(), s.issueRequest())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeIssuerRevoked))
}

func (s *ServiceSuite) TestIssueSurvivesAnchorFailure() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedger(ctrl)
	digest := common.HexToHash("0x01")
	mockLedger.EXPECT().HashPayload(gomock.Any()).Return(digest, nil)
	mockLedger.EXPECT().Anchor(gomock.Any(), s.issuer.Identity, digest).
		Return(ledger.TxResult{Success: false, Err: context.DeadlineExceeded})

	svc := service.New(credstore.NewInMemoryStore(), s.issuers, mockLedger, s.signer,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	cred, err := svc.Issue(context.Background(), s.issueRequest())
	s.Require().NoError(err)
	s.Equal(models.StatusPending, cred.Status)
	s.Empty(cred.LedgerRef)
	s.NotEmpty(cred.Token)
}

func (s *ServiceSuite) TestIssueNotifiesWebhook() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	hooked, _, err := s.issuers.Register(context.Background(), issuerservice.RegisterRequest{
		Name:       "Hooked Issuer",
		DID:        "did:web:hooked.example.com",
		Domain:     "hooked.example.com",
		WebhookURL: "https://hooked.example.com/events",
	})
	s.Require().NoError(err)

	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify("https://hooked.example.com/events", "credential.issued", gomock.Any())

	svc := service.New(credstore.NewInMemoryStore(), s.issuers, s.adapter, s.signer,
		service.WithNotifier(notifier))

	req := s.issueRequest()
	req.IssuerID = hooked.ID
	_, err = svc.Issue(context.Background(), req)
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestRevokeRequiresOwnership() {
	cred, err := s.svc.Issue(context.Background(), s.issueRequest())
	s.Require().NoError(err)

	other, _, err := s.issuers.Register(context.Background(), issuerservice.RegisterRequest{
		Name:   "Other Org",
		DID:    "did:web:other.example.com",
		Domain: "other.example.com",
	})
	s.Require().NoError(err)

	_, err = s.svc.Revoke(context.Background(), cred.ID, other.ID, "not mine")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorizedRevocation))
}

func (s *ServiceSuite) TestRevokeIsPermanent() {
	cred, err := s.svc.Issue(context.Background(), s.issueRequest())
	s.Require().NoError(err)

	revoked, err := s.svc.Revoke(context.Background(), cred.ID, s.issuer.ID, "data entry error")
	s.Require().NoError(err)
	s.True(revoked.Revoked)
	s.True(revoked.LedgerRevoked)
	s.Equal("data entry error", revoked.RevocationReason)
	s.NotNil(revoked.RevokedAt)

	_, err = s.svc.Revoke(context.Background(), cred.ID, s.issuer.ID, "again")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRevoked))

	isRevoked, err := s.adapter.IsRevoked(context.Background(), cred.ContentHash)
	s.Require().NoError(err)
	s.True(isRevoked)
}

func (s *ServiceSuite) TestRevokeFlipsLocalFlagWhenLedgerFails() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	store := credstore.NewInMemoryStore()
	mockLedger := mocks.NewMockLedger(ctrl)
	digest := common.HexToHash("0x02")
	mockLedger.EXPECT().HashPayload(gomock.Any()).Return(digest, nil)
	mockLedger.EXPECT().Anchor(gomock.Any(), gomock.Any(), digest).
		Return(ledger.TxResult{Success: true, Reference: "sim-0xdead"})
	mockLedger.EXPECT().Revoke(gomock.Any(), gomock.Any(), digest, "compromised").
		Return(ledger.TxResult{Success: false, Err: context.DeadlineExceeded})

	svc := service.New(store, s.issuers, mockLedger, s.signer,
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	cred, err := svc.Issue(context.Background(), s.issueRequest())
	s.Require().NoError(err)

	revoked, err := svc.Revoke(context.Background(), cred.ID, s.issuer.ID, "compromised")
	s.Require().NoError(err)
	s.True(revoked.Revoked)
	s.False(revoked.LedgerRevoked)
}

func (s *ServiceSuite) TestTouchUsage() {
	cred, err := s.svc.Issue(context.Background(), s.issueRequest())
	s.Require().NoError(err)

	s.svc.TouchUsage(context.Background(), cred.ID)
	s.svc.TouchUsage(context.Background(), cred.ID)

	got, err := s.svc.Get(context.Background(), cred.ID)
	s.Require().NoError(err)
	s.Equal(2, got.UsageCount)
}

func (s *ServiceSuite) TestListByIssuer() {
	first, err := s.svc.Issue(context.Background(), s.issueRequest())
	s.Require().NoError(err)

	req := s.issueRequest()
	req.Payload = hash.Payload{"degree": "MSc Physics", "year": 2026}
	req.ExpiresIn = time.Hour
	second, err := s.svc.Issue(context.Background(), req)
	s.Require().NoError(err)
	s.NotNil(second.ExpiresAt)

	creds, err := s.svc.List(context.Background(), s.issuer.ID)
	s.Require().NoError(err)
	s.Require().Len(creds, 2)
	s.Equal(first.ID, creds[0].ID)
	s.Equal(second.ID, creds[1].ID)
}
