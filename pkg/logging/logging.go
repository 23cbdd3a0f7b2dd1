// Package logging emits one JSON record per line on the standard logger.
// Expected business-rule failures are not logged; callers log Internal and
// Conflict failures with full detail before returning a generic response.
package logging

import (
	"encoding/json"
	"log"
	"time"
)

type Fields struct {
	Service    string `json:"service"`
	RequestID  string `json:"request_id,omitempty"`
	UserID     int    `json:"user_id,omitempty"`
	OrderID    int    `json:"order_id,omitempty"`
	Step       string `json:"step,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
}

func Log(fields Fields) {
	payload := map[string]any{
		"service":   fields.Service,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if fields.RequestID != "" {
		payload["request_id"] = fields.RequestID
	}
	if fields.UserID != 0 {
		payload["user_id"] = fields.UserID
	}
	if fields.OrderID != 0 {
		payload["order_id"] = fields.OrderID
	}
	if fields.Step != "" {
		payload["step"] = fields.Step
	}
	if fields.Status != "" {
		payload["status"] = fields.Status
	}
	if fields.DurationMS != 0 {
		payload["duration_ms"] = fields.DurationMS
	}
	if fields.Message != "" {
		payload["message"] = fields.Message
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", fields.Service, err.Error())
		return
	}
	log.Print(string(data))
}
