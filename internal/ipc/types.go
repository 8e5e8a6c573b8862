package ipc

import (
	"time"

	"loom/internal/prd"
	"loom/internal/session"
)

// Document is the wire representation of a stored document.
type Document struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Content   string `json:"content,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Archived  bool   `json:"archived"`
}

// FromDocument converts a stored document to its wire form.
func FromDocument(doc *prd.Document) Document {
	return Document{
		ID:        doc.ID,
		Title:     doc.Title,
		Status:    string(doc.Status),
		Content:   doc.Content,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: doc.UpdatedAt.Format(time.RFC3339),
		Archived:  doc.Archived,
	}
}

// StageState is the wire representation of one resolved stage.
type StageState struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	State string `json:"state"`
}

// SessionInfo is the wire representation of an active execution session.
type SessionInfo struct {
	ID         string `json:"id"`
	DocumentID int64  `json:"document_id"`
	StageID    string `json:"stage_id"`
	PID        int    `json:"pid"`
	StartedAt  string `json:"started_at"`
}

// FromSession converts a tracker session to its wire form.
func FromSession(sess *session.Session) SessionInfo {
	info := SessionInfo{
		ID:         sess.ID,
		DocumentID: sess.DocumentID,
		StageID:    sess.StageID,
		StartedAt:  sess.StartedAt.Format(time.RFC3339),
	}
	if sess.Handle != nil {
		info.PID = sess.Handle.PID()
	}
	return info
}

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	DocumentDBPath string         `json:"document_db_path"`
	LockPath       string         `json:"lock_path"`
	DocumentCounts map[string]int `json:"document_counts"`
	TotalDocuments int            `json:"total_documents"`
	ActiveSessions int            `json:"active_sessions"`
}

// DocCreateRequest inserts a new draft document.
type DocCreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocCreateResponse returns the created document.
type DocCreateResponse struct {
	Document Document `json:"document"`
}

// DocListRequest filters document listing by status.
type DocListRequest struct {
	Statuses []string `json:"statuses"`
}

// DocListResponse contains the matching documents.
type DocListResponse struct {
	Documents []Document `json:"documents"`
}

// DocShowRequest fetches a single document by id.
type DocShowRequest struct {
	ID int64 `json:"id"`
}

// DocShowResponse contains a single document with its stage states.
type DocShowResponse struct {
	Document Document     `json:"document"`
	Stages   []StageState `json:"stages"`
}

// DocUpdateRequest replaces a document's content. A blank Title keeps the
// stored title.
type DocUpdateRequest struct {
	ID      int64  `json:"id"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// DocUpdateResponse acknowledges the update.
type DocUpdateResponse struct{}

// DocArchiveRequest archives a document.
type DocArchiveRequest struct {
	ID int64 `json:"id"`
}

// DocArchiveResponse acknowledges the archive.
type DocArchiveResponse struct{}

// DocSetStatusRequest applies an administrative status override.
type DocSetStatusRequest struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// DocSetStatusResponse acknowledges the override.
type DocSetStatusResponse struct{}

// StageListRequest resolves the stage catalog for a document.
type StageListRequest struct {
	ID int64 `json:"id"`
}

// StageListResponse contains resolved stage states in catalog order.
type StageListResponse struct {
	Stages []StageState `json:"stages"`
}

// StageRunRequest starts a stage execution session.
type StageRunRequest struct {
	ID      int64  `json:"id"`
	StageID string `json:"stage_id"`
}

// StageRunResponse returns the started session.
type StageRunResponse struct {
	Session SessionInfo `json:"session"`
}

// StageDoneRequest completes a document's active session.
type StageDoneRequest struct {
	ID int64 `json:"id"`
}

// StageDoneResponse returns the committed status.
type StageDoneResponse struct {
	Status string `json:"status"`
}

// StageCancelRequest ends a document's active session.
type StageCancelRequest struct {
	ID int64 `json:"id"`
}

// StageCancelResponse acknowledges the cancel.
type StageCancelResponse struct{}

// SessionListRequest lists active sessions.
type SessionListRequest struct{}

// SessionListResponse contains the active sessions.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionResetRequest force-clears all sessions.
type SessionResetRequest struct{}

// SessionResetResponse reports the number of cleared sessions.
type SessionResetResponse struct {
	Cleared int `json:"cleared"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
