package versions

import (
	"fmt"
	"strings"
	"time"
)

// Type classifies a chapter version by the pipeline stage that produced it.
type Type string

const (
	TypeOriginal    Type = "original"
	TypeAIDraft     Type = "ai_draft"
	TypeHumanEdited Type = "human_edited"
	TypeFinalDraft  Type = "final_draft"
	TypeSummary     Type = "summary"
)

var allTypes = []Type{
	TypeOriginal,
	TypeAIDraft,
	TypeHumanEdited,
	TypeFinalDraft,
	TypeSummary,
}

var typeSet = func() map[Type]struct{} {
	set := make(map[Type]struct{}, len(allTypes))
	for _, t := range allTypes {
		set[t] = struct{}{}
	}
	return set
}()

// AllTypes returns the ordered list of known version types.
func AllTypes() []Type {
	cp := make([]Type, len(allTypes))
	copy(cp, allTypes)
	return cp
}

// ParseType converts a string into a known Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := typeSet[normalized]
	return normalized, ok
}

// Key identifies a version across the ledger and the semantic index.
type Key struct {
	ChapterID string
	Sequence  int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.ChapterID, k.Sequence)
}

// Version is one immutable snapshot of a chapter's content.
type Version struct {
	ID           int64
	ChapterID    string
	Type         Type
	Sequence     int64
	Content      string
	AuxReference string
	CreatedAt    time.Time
}

// Key returns the ledger identity shared with the semantic index.
func (v *Version) Key() Key {
	return Key{ChapterID: v.ChapterID, Sequence: v.Sequence}
}

// DatabaseHealth captures diagnostic information about the ledger database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	TotalVersions    int
	IntegrityCheck   bool
	Error            string
}
