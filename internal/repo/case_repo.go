// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Case model,
// including the compare-and-set update that every lifecycle writer goes
// through.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Error semantics:
//   - GetCase returns ErrNotFound when the case does not exist.
//   - ConditionalUpdate returns (false, nil) when the case is no longer in the
//     expected state: another writer got there first. This is not an error.
//   - ConditionalUpdate refuses edges outside the lifecycle graph with
//     domain.ErrIllegalTransition before touching storage.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/notice-escalator/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across layers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInvalidUpdate is returned when a CaseUpdate is internally inconsistent
// (for example an escalation without a document reference).
var ErrInvalidUpdate = errors.New("invalid case update")

// CaseOrder selects the ordering of FindCases results.
type CaseOrder int

const (
	// OldestFirst orders by state_entered_at ascending (scan order).
	OldestFirst CaseOrder = iota
	// NewestFirst orders by state_entered_at descending, ties by id
	// descending (correlation tie-break).
	NewestFirst
)

// CaseFilter is the predicate accepted by FindCases and CountCases. Zero
// fields do not constrain the query.
type CaseFilter struct {
	States            []domain.State
	EnteredAtOrBefore *time.Time
	Responded         *bool
	ContactAddress    string
	Order             CaseOrder
	Offset            int
	Limit             int
}

// CaseUpdate carries the fields written by a lifecycle transition.
type CaseUpdate struct {
	State                 domain.State
	EnteredAt             time.Time
	ReplyExcerpt          string     // responded only
	RespondedAt           *time.Time // responded only
	EscalationDocumentRef string     // escalated only
}

// Bool returns a pointer to b, for CaseFilter.Responded.
func Bool(b bool) *bool { return &b }

// NormalizeAddress lower-cases and trims an email address so stored contact
// addresses and inbound senders compare equal.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// CreateCase inserts c unless a case with the same SourceID already exists.
// It fills in ID, FlaggedAt and StateEnteredAt when empty. The returned bool
// is false when the insert was skipped as a duplicate.
func CreateCase(ctx context.Context, db *gorm.DB, c *domain.Case) (bool, error) {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.State == "" {
		c.State = domain.StatePending
	}
	if c.FlaggedAt.IsZero() {
		c.FlaggedAt = now
	}
	if c.StateEnteredAt.IsZero() {
		c.StateEnteredAt = c.FlaggedAt
	}
	c.FlaggedAt = c.FlaggedAt.UTC()
	c.StateEnteredAt = c.StateEnteredAt.UTC()
	c.ContactAddress = NormalizeAddress(c.ContactAddress)

	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "source_id"}}, DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// GetCase fetches a case by ID, or ErrNotFound.
func GetCase(ctx context.Context, db *gorm.DB, id string) (*domain.Case, error) {
	var c domain.Case
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCases returns the cases matching f.
func FindCases(ctx context.Context, db *gorm.DB, f CaseFilter) ([]domain.Case, error) {
	q := applyFilter(db.WithContext(ctx).Model(&domain.Case{}), f)
	switch f.Order {
	case NewestFirst:
		q = q.Order("state_entered_at desc").Order("id desc")
	default:
		q = q.Order("state_entered_at asc").Order("id asc")
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []domain.Case
	err := q.Find(&out).Error
	return out, err
}

// CountCases returns the number of cases matching f (ordering and paging
// fields are ignored).
func CountCases(ctx context.Context, db *gorm.DB, f CaseFilter) (int64, error) {
	var total int64
	err := applyFilter(db.WithContext(ctx).Model(&domain.Case{}), f).Count(&total).Error
	return total, err
}

func applyFilter(q *gorm.DB, f CaseFilter) *gorm.DB {
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if f.EnteredAtOrBefore != nil {
		q = q.Where("state_entered_at <= ?", f.EnteredAtOrBefore.UTC())
	}
	if f.Responded != nil {
		q = q.Where("responded = ?", *f.Responded)
	}
	if f.ContactAddress != "" {
		q = q.Where("contact_address = ?", NormalizeAddress(f.ContactAddress))
	}
	return q
}

// ConditionalUpdate moves case id from expected to u.State in a single
// UPDATE guarded by the expected state. state and state_entered_at are
// written together and state_entered_at never moves backwards.
//
// It returns true when this call performed the transition and false when the
// case was no longer in the expected state (or no longer exists).
func ConditionalUpdate(ctx context.Context, db *gorm.DB, id string, expected domain.State, u CaseUpdate) (bool, error) {
	if err := domain.CheckTransition(expected, u.State); err != nil {
		return false, err
	}
	if u.EnteredAt.IsZero() {
		return false, fmt.Errorf("%w: missing transition time", ErrInvalidUpdate)
	}
	if (u.State == domain.StateEscalated) != (u.EscalationDocumentRef != "") {
		return false, fmt.Errorf("%w: document reference is set exactly on escalation", ErrInvalidUpdate)
	}

	at := u.EnteredAt.UTC()
	fields := map[string]any{
		"state":            u.State,
		"state_entered_at": at,
		"updated_at":       time.Now().UTC(),
	}
	switch u.State {
	case domain.StateResponded:
		respondedAt := at
		if u.RespondedAt != nil {
			respondedAt = u.RespondedAt.UTC()
		}
		fields["responded"] = true
		fields["responded_at"] = respondedAt
		fields["reply_excerpt"] = u.ReplyExcerpt
	case domain.StateEscalated:
		fields["escalation_document_ref"] = u.EscalationDocumentRef
	}

	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ? AND state = ? AND responded = ? AND state_entered_at <= ?", id, expected, false, at).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CaseStore adapts the free functions above to the store contract consumed
// by the lifecycle services.
type CaseStore struct {
	DB *gorm.DB
}

// Create proxies CreateCase.
func (s CaseStore) Create(ctx context.Context, c *domain.Case) (bool, error) {
	return CreateCase(ctx, s.DB, c)
}

// Get proxies GetCase.
func (s CaseStore) Get(ctx context.Context, id string) (*domain.Case, error) {
	return GetCase(ctx, s.DB, id)
}

// Find proxies FindCases.
func (s CaseStore) Find(ctx context.Context, f CaseFilter) ([]domain.Case, error) {
	return FindCases(ctx, s.DB, f)
}

// Count proxies CountCases.
func (s CaseStore) Count(ctx context.Context, f CaseFilter) (int64, error) {
	return CountCases(ctx, s.DB, f)
}

// ConditionalUpdate proxies ConditionalUpdate.
func (s CaseStore) ConditionalUpdate(ctx context.Context, id string, expected domain.State, u CaseUpdate) (bool, error) {
	return ConditionalUpdate(ctx, s.DB, id, expected, u)
}
