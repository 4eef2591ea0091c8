// Package domain defines the persistence models for flagged cases and legal
// requests, together with the case lifecycle graph. These types are mapped
// with GORM and shared across the repository and service layers.
package domain

import "time"

// Case is a flagged content record tracked through the notice lifecycle.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), immutable.
//   - SourceID: identifier of the originating content record. Unique, so
//     re-ingesting the same record never creates a second case.
//   - SubjectIdentifier: account or username tied to the flagged content.
//   - ContactAddress: lower-cased email used for notices and reply correlation.
//   - ContentSnapshot: the text that triggered flagging.
//   - SuspicionScore: keyword match count at flagging time.
//   - State / StateEnteredAt: current lifecycle state and when it was entered.
//     Both are only ever written together.
//   - Responded / RespondedAt / ReplyExcerpt: set once by reply correlation.
//   - EscalationDocumentRef: set only on entering StateEscalated.
type Case struct {
	ID                    string     `json:"id"                       gorm:"type:char(36);primaryKey"`
	SourceID              string     `json:"source_id"                gorm:"type:varchar(128);not null;uniqueIndex:ux_cases_source"`
	SubjectIdentifier     string     `json:"subject_identifier"       gorm:"type:varchar(255);not null;default:''"`
	ContactAddress        string     `json:"contact_address"          gorm:"type:varchar(320);not null;index:idx_cases_contact"`
	ContentSnapshot       string     `json:"content_snapshot"         gorm:"type:text;not null"`
	SuspicionScore        int        `json:"suspicion_score"          gorm:"not null;check:suspicion_score >= 0"`
	State                 State      `json:"state"                    gorm:"type:varchar(16);not null;index:idx_cases_state_entered,priority:1;check:state IN ('pending','warned','followed_up','escalated','responded')"`
	StateEnteredAt        time.Time  `json:"state_entered_at"         gorm:"not null;index:idx_cases_state_entered,priority:2"`
	Responded             bool       `json:"responded"                gorm:"not null;default:false"`
	RespondedAt           *time.Time `json:"responded_at,omitempty"`
	ReplyExcerpt          string     `json:"reply_excerpt,omitempty"  gorm:"type:text;not null;default:''"`
	EscalationDocumentRef string     `json:"escalation_document_ref,omitempty" gorm:"type:varchar(255);not null;default:''"`
	FlaggedAt             time.Time  `json:"flagged_at"               gorm:"not null"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Case.
func (Case) TableName() string { return "cases" }

// Open reports whether the case can still receive a reply or a time-triggered
// transition.
func (c Case) Open() bool { return !c.Responded && c.State.Open() }

// LegalRequest is a generated legal-document request, either filled in by an
// officer or produced automatically when a case escalates (CaseID set).
type LegalRequest struct {
	ID                string     `json:"id"                   gorm:"type:char(36);primaryKey"`
	CaseID            *string    `json:"case_id,omitempty"    gorm:"type:char(36);index"`
	OfficerName       string     `json:"officer_name"         gorm:"type:varchar(255);not null"`
	Designation       string     `json:"designation"          gorm:"type:varchar(255);not null"`
	PoliceStation     string     `json:"police_station"       gorm:"type:varchar(255);not null"`
	ContactInfo       string     `json:"contact_info"         gorm:"type:varchar(255);not null"`
	CaseNumber        string     `json:"case_number"          gorm:"type:varchar(64);not null;index"`
	Recipient         string     `json:"recipient"            gorm:"type:varchar(255);not null"`
	RecipientEmail    string     `json:"recipient_email"      gorm:"type:varchar(320);not null"`
	SuspectIdentifier string     `json:"suspect_identifier"   gorm:"type:varchar(255);not null"`
	DateRange         string     `json:"date_range"           gorm:"type:varchar(128);not null"`
	DataRequested     string     `json:"data_requested"       gorm:"type:text;not null"`
	CasePurpose       string     `json:"case_purpose"         gorm:"type:text;not null"`
	DocumentRef       string     `json:"document_ref"         gorm:"type:varchar(255);not null"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TableName returns the database table name for LegalRequest.
func (LegalRequest) TableName() string { return "legal_requests" }
