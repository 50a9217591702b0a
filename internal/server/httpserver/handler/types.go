package handler

import "time"

// Response is the standard API response envelope.
// All JSON responses use this format; blob bodies and /metrics do not.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Details:   details,
	}
}

// PutBlobResponse is the response body for PUT /v1/blobs/{key}.
type PutBlobResponse struct {
	Key    string `json:"key"`
	Size   int    `json:"size"`
	Memory bool   `json:"memory"`
}

// CopyBlobResponse is the response body for POST /v1/blobs/{key}/copy.
type CopyBlobResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Memory bool   `json:"memory"`
}

// PurgeVariantsResponse is the response body for DELETE /v1/blobs/{key}/variants.
type PurgeVariantsResponse struct {
	Key     string `json:"key"`
	Removed int    `json:"removed"`
}

// StatusResponse is the response body for GET /admin/v1/status.
type StatusResponse struct {
	Namespace   string `json:"namespace"`
	StoragePath string `json:"storage_path"`
	Quality     int    `json:"quality"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Uptime      string `json:"uptime"`
}

// SetQualityRequest is the request body for PUT /admin/v1/quality.
type SetQualityRequest struct {
	Quality int `json:"quality"`
}

// SetQualityResponse is the response body for PUT /admin/v1/quality.
type SetQualityResponse struct {
	Previous int `json:"previous"`
	Quality  int `json:"quality"`
}
