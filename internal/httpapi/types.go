package httpapi

// ErrorResponse matches the teacher's error envelope shape: every
// failed request returns success=false plus a short machine-readable
// code alongside the human-readable message.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

func errResponse(code, msg string) ErrorResponse {
	return ErrorResponse{Success: false, Code: code, Error: msg}
}

// ScanOptionsInput mirrors spec.md §6's POST /api/scans options object.
type ScanOptionsInput struct {
	SiteDepth        int    `json:"siteDepth,omitempty"`
	MaxPages         int    `json:"maxPages,omitempty"`
	UserAgent        string `json:"userAgent,omitempty"`
	RequestTimeoutMs int    `json:"requestTimeoutMs,omitempty"`
}

// CreateScanRequest is the POST /api/scans request body.
type CreateScanRequest struct {
	TargetURL string            `json:"targetUrl"`
	Mode      string            `json:"mode"`
	Options   *ScanOptionsInput `json:"options,omitempty"`
}

// ActionResponse is the envelope for cancel/retry actions.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// QueueStateResponse is the GET /api/scans/queue/state body.
type QueueStateResponse struct {
	Queue           []string `json:"queue"`
	Running         []string `json:"running"`
	CancelRequested []string `json:"cancelRequested"`
}
