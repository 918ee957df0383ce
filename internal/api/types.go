package api

import "askdb/internal/pipeline"

// ==========================================
// 1. STANDARD ENVELOPE
// ==========================================

// StandardResponse wraps all API responses to ensure consistency.
// Clients check "success" first. If false, display "error".
type StandardResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ==========================================
// 2. ASK
// ==========================================

// AskRequest carries one question. The host supplies pending_clarification
// exactly when the previous reply for this conversation was a clarification
// request, with the verbatim original question.
type AskRequest struct {
	Question string                         `json:"question"`
	Pending  *pipeline.PendingClarification `json:"pending_clarification,omitempty"`
}

// AskResponse mirrors pipeline.Response on the wire.
type AskResponse struct {
	Kind    string `json:"kind"` // "answer", "clarification", "guidance"
	Text    string `json:"text"`
	StoreID string `json:"store_id,omitempty"`
	SQL     string `json:"sql,omitempty"`
}

// ==========================================
// 3. STORE LISTING
// ==========================================

// StoreInfo is one registry entry in a listing.
type StoreInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Rel           string   `json:"rel"`
	TablesPreview []string `json:"tables_preview"`
}

// StoreListResponse is the payload of GET /api/v1/dbs.
type StoreListResponse struct {
	Stores []StoreInfo `json:"stores"`
}
