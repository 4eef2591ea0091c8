package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/flagger"
	"github.com/tbourn/notice-escalator/internal/observability"
)

// Record is one inbound content record offered for flagging.
type Record struct {
	SourceID string `json:"id"       validate:"required,max=128"`
	Username string `json:"username" validate:"max=255"`
	Email    string `json:"email"    validate:"required,email,max=320"`
	Text     string `json:"text"`
}

// IngestSummary aggregates one ingestion batch.
type IngestSummary struct {
	Received       int `json:"received"`
	Flagged        int `json:"flagged"`
	Duplicates     int `json:"duplicates"`
	BelowThreshold int `json:"below_threshold"`
	Invalid        int `json:"invalid"`
	Failed         int `json:"failed"`
}

// CaseCreator inserts a case unless its source id is already known.
type CaseCreator interface {
	Create(ctx context.Context, c *domain.Case) (bool, error)
}

// IngestService scores records and opens a pending case for every record at
// or above the threshold.
type IngestService struct {
	Store     CaseCreator
	Scorer    flagger.Scorer
	Threshold int

	Now func() time.Time
	Log zerolog.Logger

	validate *validator.Validate
}

// NewIngestService wires an IngestService with its validator.
func NewIngestService(store CaseCreator, scorer flagger.Scorer, threshold int, log zerolog.Logger) *IngestService {
	return &IngestService{
		Store:     store,
		Scorer:    scorer,
		Threshold: threshold,
		Log:       log,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *IngestService) checker() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return s.validate
}

func (s *IngestService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Check validates r and returns an error wrapping ErrIngestion when it cannot
// become a case.
func (s *IngestService) Check(r Record) error {
	r.SourceID = strings.TrimSpace(r.SourceID)
	r.Email = strings.TrimSpace(r.Email)
	if err := s.checker().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", ErrIngestion, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrIngestion, err)
	}
	return nil
}

// Ingest scores every record and creates a case for each flagged one. Bad
// records are skipped and counted; only context cancellation stops the batch.
func (s *IngestService) Ingest(ctx context.Context, recs []Record) (IngestSummary, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "Ingest",
		trace.WithAttributes(attribute.Int("records", len(recs))),
	)
	defer span.End()

	sum := IngestSummary{Received: len(recs)}
	for i, r := range recs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		score := 0
		if s.Scorer != nil {
			score = s.Scorer.Score(r.Text)
		}
		if !flagger.Flag(score, s.Threshold) {
			sum.BelowThreshold++
			continue
		}
		if err := s.Check(r); err != nil {
			sum.Invalid++
			s.Log.Warn().Err(err).Int("record", i).Str("source_id", r.SourceID).Msg("skip malformed record")
			continue
		}

		c := &domain.Case{
			SourceID:          strings.TrimSpace(r.SourceID),
			SubjectIdentifier: strings.TrimSpace(r.Username),
			ContactAddress:    r.Email,
			ContentSnapshot:   r.Text,
			SuspicionScore:    score,
			State:             domain.StatePending,
			FlaggedAt:         s.now(),
		}
		created, err := s.Store.Create(ctx, c)
		switch {
		case err != nil:
			sum.Failed++
			s.Log.Error().Err(err).Str("source_id", c.SourceID).Msg("create case")
		case !created:
			sum.Duplicates++
		default:
			sum.Flagged++
			s.Log.Info().Str("case_id", c.ID).Int("score", score).Msg("case flagged")
		}
	}
	observability.ObserveFlagged(sum.Flagged)
	span.SetAttributes(attribute.Int("cases.flagged", sum.Flagged))
	return sum, nil
}

// RejectedRecord is one input element that could not be decoded into a
// Record. Position is the array index for JSON and the line number for CSV.
type RejectedRecord struct {
	Position int
	Err      error
}

// Batch is a decoded upload: the records that parsed and the elements that
// did not. A malformed element never hides its well-formed neighbours.
type Batch struct {
	Records  []Record
	Rejected []RejectedRecord
}

// csvColumns maps accepted CSV headers to Record fields.
var csvColumns = map[string]string{
	"id":       "id",
	"_id":      "id",
	"username": "username",
	"email":    "email",
	"text":     "text",
}

// DecodeCSV reads records from CSV with a header row. Columns are matched
// case-insensitively; unknown columns are ignored. A file without an id and a
// text column is rejected. A row the CSV reader cannot parse is recorded in
// Batch.Rejected and reading continues with the next line.
func DecodeCSV(r io.Reader) (Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Batch{Records: []Record{}}, nil
	}
	if err != nil {
		return Batch{}, fmt.Errorf("%w: csv header: %v", ErrIngestion, err)
	}
	idx := map[string]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if f, ok := csvColumns[h]; ok {
			if _, seen := idx[f]; !seen {
				idx[f] = i
			}
		}
	}
	if _, ok := idx["id"]; !ok {
		return Batch{}, fmt.Errorf("%w: csv has no id column", ErrIngestion)
	}
	if _, ok := idx["text"]; !ok {
		return Batch{}, fmt.Errorf("%w: csv has no text column", ErrIngestion)
	}

	col := func(row []string, f string) string {
		i, ok := idx[f]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	var b Batch
	last, _ := cr.FieldPos(0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				b.Rejected = append(b.Rejected, RejectedRecord{
					Position: perr.Line,
					Err:      fmt.Errorf("%w: csv row: %v", ErrIngestion, err),
				})
				last = perr.Line
				continue
			}
			// The reader itself failed; keep what was parsed so far.
			b.Rejected = append(b.Rejected, RejectedRecord{
				Position: last + 1,
				Err:      fmt.Errorf("%w: csv read: %v", ErrIngestion, err),
			})
			break
		}
		last, _ = cr.FieldPos(0)
		b.Records = append(b.Records, Record{
			SourceID: col(row, "id"),
			Username: col(row, "username"),
			Email:    col(row, "email"),
			Text:     col(row, "text"),
		})
	}
	return b, nil
}

// flexString accepts a JSON string, number or boolean. Numbers and booleans
// keep their literal text; null decodes to "".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("want a string, got %c...%c", data[0], data[len(data)-1])
	default:
		*f = flexString(data)
	}
	return nil
}

// wireRecord is the JSON shape of one uploaded element.
type wireRecord struct {
	ID       flexString `json:"id"`
	AltID    flexString `json:"_id"`
	Username flexString `json:"username"`
	Email    flexString `json:"email"`
	Text     flexString `json:"text"`
}

// DecodeJSON reads a JSON array of records. The source id may be given as
// "id" or "_id". Only a body that is not an array fails the call; an element
// that cannot be read as a record is recorded in Batch.Rejected.
func DecodeJSON(r io.Reader) (Batch, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Batch{}, fmt.Errorf("%w: json: %v", ErrIngestion, err)
	}
	b := Batch{Records: make([]Record, 0, len(raw))}
	for i, el := range raw {
		if bytes.Equal(bytes.TrimSpace(el), []byte("null")) {
			b.Rejected = append(b.Rejected, RejectedRecord{Position: i, Err: fmt.Errorf("%w: json: null element", ErrIngestion)})
			continue
		}
		var w wireRecord
		if err := json.Unmarshal(el, &w); err != nil {
			b.Rejected = append(b.Rejected, RejectedRecord{Position: i, Err: fmt.Errorf("%w: json: %v", ErrIngestion, err)})
			continue
		}
		rec := Record{
			SourceID: string(w.ID),
			Username: string(w.Username),
			Email:    string(w.Email),
			Text:     string(w.Text),
		}
		if rec.SourceID == "" {
			rec.SourceID = string(w.AltID)
		}
		b.Records = append(b.Records, rec)
	}
	return b, nil
}

// IngestBatch ingests the decoded records of b and counts every rejected
// element as received and invalid.
func (s *IngestService) IngestBatch(ctx context.Context, b Batch) (IngestSummary, error) {
	for _, rj := range b.Rejected {
		s.Log.Warn().Err(rj.Err).Int("position", rj.Position).Msg("skip undecodable record")
	}
	sum, err := s.Ingest(ctx, b.Records)
	sum.Received += len(b.Rejected)
	sum.Invalid += len(b.Rejected)
	return sum, err
}

// IngestCSV decodes and ingests a CSV upload.
func (s *IngestService) IngestCSV(ctx context.Context, r io.Reader) (IngestSummary, error) {
	b, err := DecodeCSV(r)
	if err != nil {
		return IngestSummary{}, err
	}
	return s.IngestBatch(ctx, b)
}
