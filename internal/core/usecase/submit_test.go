package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/plumclaims/opd-adjudicator/internal/core/domain"
	"github.com/plumclaims/opd-adjudicator/internal/core/ports"
)

type submitRepoFake struct {
	created   *domain.Claim
	createErr error
}

func (f *submitRepoFake) Create(_ context.Context, claim *domain.Claim) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = claim
	return nil
}

func (f *submitRepoFake) GetByClaimID(context.Context, string) (*domain.Claim, error) {
	return nil, domain.ErrClaimNotFound
}

func (f *submitRepoFake) UpdateStatus(context.Context, string, domain.ClaimStatus, string) error {
	return nil
}

func (f *submitRepoFake) SaveDecision(context.Context, *domain.Claim) error { return nil }

func (f *submitRepoFake) List(context.Context, domain.ClaimFilter) ([]domain.Claim, error) {
	return nil, nil
}

func (f *submitRepoFake) YTDApproved(context.Context, string, string, time.Time) (float64, error) {
	return 0, nil
}

func (f *submitRepoFake) CountOtherClaimsOnDay(context.Context, string, string, time.Time) (int, error) {
	return 0, nil
}

func (f *submitRepoFake) Stats(context.Context) (domain.ClaimStats, error) {
	return domain.ClaimStats{}, nil
}

type storageFake struct {
	keys    []string
	saveErr error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, err := io.Copy(io.Discard, data); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishClaimSubmitted(_ context.Context, claimID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, claimID)
	return nil
}

func (f *queueFake) SubscribeClaimSubmitted(context.Context, func(context.Context, string) error) error {
	return nil
}

func validSubmission() ports.ClaimSubmission {
	return ports.ClaimSubmission{
		EmployeeID:    "EMP001",
		PolicyID:      "PLUM_OPD_2024",
		Category:      "consultation",
		PatientName:   "Rahul Sharma",
		ClaimAmount:   1500,
		TreatmentDate: "2024-06-01",
		HospitalName:  "City Care Clinic",
	}
}

func TestSubmitCreatesClaimAndPublishes(t *testing.T) {
	repo := &submitRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewSubmitClaimUseCase(repo, storage, queue)

	uploads := []ports.ClaimUpload{
		{Filename: "doctor bill.pdf", MimeType: "application/pdf", Body: bytes.NewBufferString("%PDF-1.4")},
	}

	claim, err := uc.Submit(context.Background(), validSubmission(), uploads)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !strings.HasPrefix(claim.ClaimID, "CLM_") || len(claim.ClaimID) != 12 {
		t.Fatalf("unexpected claim id: %s", claim.ClaimID)
	}
	if claim.Status != domain.StatusPending {
		t.Fatalf("status = %s", claim.Status)
	}
	if len(storage.keys) != 1 || !strings.HasSuffix(storage.keys[0], "/doctor_bill.pdf") {
		t.Fatalf("unexpected storage keys: %v", storage.keys)
	}
	if repo.created == nil || repo.created.ClaimID != claim.ClaimID {
		t.Fatal("claim record not created")
	}
	if len(queue.published) != 1 || queue.published[0] != claim.ClaimID {
		t.Fatalf("unexpected publishes: %v", queue.published)
	}
}

func TestSubmitRejectsUnknownCategory(t *testing.T) {
	uc := NewSubmitClaimUseCase(&submitRepoFake{}, &storageFake{}, &queueFake{})
	sub := validSubmission()
	sub.Category = "cosmetology"

	if _, err := uc.Submit(context.Background(), sub, nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSubmitRejectsBadTreatmentDate(t *testing.T) {
	uc := NewSubmitClaimUseCase(&submitRepoFake{}, &storageFake{}, &queueFake{})
	sub := validSubmission()
	sub.TreatmentDate = "01-06-2024"

	if _, err := uc.Submit(context.Background(), sub, nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSubmitRejectsUnsupportedDocumentType(t *testing.T) {
	uc := NewSubmitClaimUseCase(&submitRepoFake{}, &storageFake{}, &queueFake{})
	uploads := []ports.ClaimUpload{
		{Filename: "notes.docx", Body: bytes.NewBufferString("x")},
	}

	if _, err := uc.Submit(context.Background(), validSubmission(), uploads); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSubmitStorageFailure(t *testing.T) {
	uc := NewSubmitClaimUseCase(&submitRepoFake{}, &storageFake{saveErr: errors.New("disk full")}, &queueFake{})
	uploads := []ports.ClaimUpload{
		{Filename: "bill.pdf", Body: bytes.NewBufferString("%PDF-1.4")},
	}

	if _, err := uc.Submit(context.Background(), validSubmission(), uploads); err == nil {
		t.Fatal("expected storage error")
	}
}
