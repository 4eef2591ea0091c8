package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/notify"
	"github.com/tbourn/notice-escalator/internal/repo"
)

// RequestInput is an officer-filled legal request.
type RequestInput struct {
	OfficerName       string `json:"officer_name"       validate:"required,max=255"`
	Designation       string `json:"designation"        validate:"required,max=255"`
	PoliceStation     string `json:"police_station"     validate:"required,max=255"`
	ContactInfo       string `json:"contact_info"       validate:"required,max=255"`
	CaseNumber        string `json:"case_number"        validate:"required,max=64"`
	Recipient         string `json:"recipient"          validate:"required,max=255"`
	RecipientEmail    string `json:"recipient_email"    validate:"required,email,max=320"`
	SuspectIdentifier string `json:"suspect_identifier" validate:"required,max=255"`
	DateRange         string `json:"date_range"         validate:"required,max=128"`
	DataRequested     string `json:"data_requested"     validate:"required"`
	CasePurpose       string `json:"case_purpose"       validate:"required"`
}

// RequestSender renders, stores and emails a legal request.
type RequestSender interface {
	SendLegalRequest(ctx context.Context, r *domain.LegalRequest) (notify.Receipt, error)
}

// RequestService generates manual legal requests and records the ones
// produced by escalation.
type RequestService struct {
	DB     *gorm.DB
	Sender RequestSender
	Log    zerolog.Logger

	validate *validator.Validate
}

func (s *RequestService) checker() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s.validate
}

// Generate validates in, sends the rendered request to its recipient and
// stores it. Delivery failures wrap notify.ErrDeliveryFailed and nothing is
// stored.
func (s *RequestService) Generate(ctx context.Context, in RequestInput) (*domain.LegalRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(attribute.String("request.case_number", in.CaseNumber)),
	)
	defer span.End()

	in = trimInput(in)
	if err := s.checker().Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: field %s failed %q", ErrInvalidRequest, verrs[0].Field(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	r := &domain.LegalRequest{
		OfficerName:       in.OfficerName,
		Designation:       in.Designation,
		PoliceStation:     in.PoliceStation,
		ContactInfo:       in.ContactInfo,
		CaseNumber:        in.CaseNumber,
		Recipient:         in.Recipient,
		RecipientEmail:    in.RecipientEmail,
		SuspectIdentifier: in.SuspectIdentifier,
		DateRange:         in.DateRange,
		DataRequested:     in.DataRequested,
		CasePurpose:       in.CasePurpose,
	}
	if _, err := s.Sender.SendLegalRequest(ctx, r); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := repo.CreateLegalRequest(ctx, s.DB, r); err != nil {
		span.RecordError(err)
		s.Log.Error().Err(err).Str("document_ref", r.DocumentRef).Msg("store legal request after delivery")
		return nil, err
	}
	s.Log.Info().Str("request_id", r.ID).Str("document_ref", r.DocumentRef).Msg("legal request sent")
	return r, nil
}

// RecordLegalRequest persists a request generated elsewhere (escalation).
func (s *RequestService) RecordLegalRequest(ctx context.Context, r *domain.LegalRequest) error {
	return repo.CreateLegalRequest(ctx, s.DB, r)
}

// List returns stored requests newest first, optionally for one case.
func (s *RequestService) List(ctx context.Context, caseID string, page, pageSize int) ([]domain.LegalRequest, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return repo.ListLegalRequests(ctx, s.DB, caseID, (page-1)*pageSize, pageSize)
}

func trimInput(in RequestInput) RequestInput {
	for _, p := range []*string{
		&in.OfficerName, &in.Designation, &in.PoliceStation, &in.ContactInfo,
		&in.CaseNumber, &in.Recipient, &in.RecipientEmail, &in.SuspectIdentifier,
		&in.DateRange, &in.DataRequested, &in.CasePurpose,
	} {
		*p = strings.TrimSpace(*p)
	}
	return in
}
