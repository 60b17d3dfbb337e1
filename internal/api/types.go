package api

// VersionPayload is the wire form of a stored version.
type VersionPayload struct {
	ChapterID    string `json:"chapter_id"`
	Type         string `json:"version_type"`
	Sequence     int64  `json:"sequence"`
	Content      string `json:"content"`
	AuxReference string `json:"aux_reference,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// StartChapterRequest asks the daemon to scrape a locator and start a
// chapter from it.
type StartChapterRequest struct {
	Locator string `json:"locator"`
}

// VersionResponse wraps a single version result.
type VersionResponse struct {
	Version VersionPayload `json:"version"`
}

// VersionListResponse is a chapter's ordered history.
type VersionListResponse struct {
	ChapterID string           `json:"chapter_id"`
	Versions  []VersionPayload `json:"versions"`
}

// DraftResponse pairs the appended draft with advisory review feedback.
type DraftResponse struct {
	Version        VersionPayload `json:"version"`
	ReviewFeedback string         `json:"review_feedback,omitempty"`
}

// DecisionRequest carries the human decision text.
type DecisionRequest struct {
	Decision string `json:"decision"`
}

// SearchRequest is a similarity query over indexed versions.
type SearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// SearchMatch is one similarity result, closest first.
type SearchMatch struct {
	ChapterID   string  `json:"chapter_id"`
	Sequence    int64   `json:"sequence"`
	Distance    float64 `json:"distance"`
	VersionType string  `json:"version_type"`
	Snippet     string  `json:"snippet,omitempty"`
}

// SearchResponse lists matches in ascending distance order.
type SearchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// ScoreRequest carries the feedback text to score a chapter's latest draft.
type ScoreRequest struct {
	Feedback string `json:"feedback"`
}

// ScoreResponse breaks the reward down into its terms.
type ScoreResponse struct {
	Score      float64 `json:"score"`
	Sentiment  string  `json:"sentiment"`
	Feedback   float64 `json:"feedback_term"`
	Similarity float64 `json:"similarity_term"`
	Penalty    float64 `json:"length_penalty"`
}

// StageResponse reports a chapter's derived workflow stage.
type StageResponse struct {
	ChapterID string `json:"chapter_id"`
	Stage     string `json:"stage"`
}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	DatabasePath   string         `json:"database_path"`
	IndexPath      string         `json:"index_path"`
	LockFilePath   string         `json:"lock_file_path"`
	VersionCounts  map[string]int `json:"version_counts"`
	IndexedVectors int64          `json:"indexed_vectors"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
