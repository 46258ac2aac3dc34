// Package domain holds the core entities shared across the announcement
// processing pipeline: work items, extraction fields, persisted records and
// processing statuses.
package domain

import "time"

// Processing status values as persisted in the announcements table.
// The Korean values are kept verbatim because downstream reporting queries
// filter on them.
const (
	StatusExcluded  = "제외"
	StatusPending   = "ollama"
	StatusSuccess   = "성공"
	StatusCompleted = "completed"
	StatusDuplicate = "중복"
	StatusFailed    = "실패"
)

// Sentinel strings used by the LLM extractor to mean "field not found".
// They are recognized on ingest and written back only at the storage
// boundary; inside the pipeline absence is represented by Field.Valid.
const (
	SentinelNone          = "정보 없음"
	SentinelNotApplicable = "해당없음"
)

// DateUnparseable marks an announcement date that matched no known format.
const DateUnparseable = "날짜없음"

// Field is an optional extraction value. Valid is false when the extractor
// returned nothing or one of the sentinel strings.
type Field struct {
	Value string
	Valid bool
}

// Some returns a valid Field, unless the value is empty or a sentinel.
func Some(value string) Field {
	if value == "" || value == SentinelNone || value == SentinelNotApplicable {
		return Field{}
	}

	return Field{Value: value, Valid: true}
}

// None returns an absent Field.
func None() Field {
	return Field{}
}

// Serialize returns the stored representation: the value when present,
// the "no information" sentinel otherwise.
func (f Field) Serialize() string {
	if !f.Valid {
		return SentinelNone
	}

	return f.Value
}

// WorkItem is one announcement folder queued for processing.
type WorkItem struct {
	SiteCode      string
	FolderName    string
	DirectoryPath string
	Force         bool
	AttachForce   bool
}

// ProcessingResult is the per-item outcome reported to the orchestrator.
type ProcessingResult struct {
	Item         WorkItem
	Success      bool
	Status       string
	ErrorMessage string
	Elapsed      time.Duration
}

// ExtractedFields is the structured output of one LLM extraction pass.
type ExtractedFields struct {
	Title            Field
	Target           Field
	TargetType       Field
	Amount           Field
	Period           Field
	Schedule         Field
	Content          Field
	AnnouncementDate Field
	SourceURL        Field
}

// Valid reports whether the pass produced a usable target-audience value,
// which is the criterion for treating the pass as final.
func (f *ExtractedFields) Valid() bool {
	return f != nil && f.Target.Valid
}

// AnnouncementRecord is the persisted entity, uniquely identified by
// (FolderName, SiteCode). All writes are upserts on that pair.
type AnnouncementRecord struct {
	ID                  string
	FolderName          string
	SiteCode            string
	PrimaryText         string
	CombinedText        string
	Title               Field
	Target              Field
	TargetType          Field
	Amount              Field
	Period              Field
	Schedule            Field
	Content             Field
	AnnouncementDate    Field
	AnnouncementDateISO string
	SourceURL           Field
	AttachmentFiles     []string
	ExclusionKeyword    string
	ExclusionReason     string
	Category            string
	SubCategories       []string
	Confidence          float64
	MatchedKeywords     []string
	Status              string
	ErrorMessage        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RunStats aggregates a whole run; updated under the orchestrator's mutex.
type RunStats struct {
	Processed  int
	Succeeded  int
	Failed     int
	Skipped    int
	Excluded   int
	Duplicates int
	Elapsed    time.Duration
}
