package store

import (
	"context"
	"time"
)

// MemoryTier classifies how durable a memory record is.
// Profile and fact records are stable; project and episodic records decay.
type MemoryTier string

const (
	MemoryTierProfile  MemoryTier = "profile"
	MemoryTierFact     MemoryTier = "fact"
	MemoryTierProject  MemoryTier = "project"
	MemoryTierEpisodic MemoryTier = "episodic"
)

// IsStable returns true for tiers that do not decay with age.
func (t MemoryTier) IsStable() bool {
	return t == MemoryTierProfile || t == MemoryTierFact
}

// Valid reports whether t is a known tier.
func (t MemoryTier) Valid() bool {
	switch t {
	case MemoryTierProfile, MemoryTierFact, MemoryTierProject, MemoryTierEpisodic:
		return true
	}
	return false
}

// MemoryRecord is a fact the assistant has learned about a company/user.
// Records are owned by the memory store; the engine only reads them and
// touches LastUsedAt as a side effect of selection.
type MemoryRecord struct {
	ID         string
	UserID     int32
	CompanyID  string
	Tier       MemoryTier
	Content    string
	Importance float64 // [0,1]; values outside the range are treated as unset
	Confidence float64 // [0,1]; values outside the range are treated as unset
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
}

// Expired reports whether the record is past its expiry at the given time.
func (m *MemoryRecord) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && m.ExpiresAt.Before(now)
}

// FindMemoryRecord specifies the conditions for listing memory records.
type FindMemoryRecord struct {
	UserID    *int32
	CompanyID *string
	Tier      *MemoryTier
	Limit     int
	Offset    int
}

// MemoryRecordStore defines memory record persistence.
type MemoryRecordStore interface {
	// ListMemoryRecords returns records matching the filter, newest first.
	ListMemoryRecords(ctx context.Context, find *FindMemoryRecord) ([]*MemoryRecord, error)

	// CreateMemoryRecord inserts a new record.
	CreateMemoryRecord(ctx context.Context, record *MemoryRecord) (*MemoryRecord, error)

	// TouchMemoryRecords updates LastUsedAt for the given ids.
	// Advisory telemetry: last-writer-wins, no locking.
	TouchMemoryRecords(ctx context.Context, ids []string, usedAt time.Time) error

	// DeleteMemoryRecord removes a record by id.
	DeleteMemoryRecord(ctx context.Context, id string) error
}
