package common

import (
	"encoding/json"
	"io"
	"time"
)

// CIResult is the single JSON document a tool prints in --ci mode.
type CIResult struct {
	OK         bool     `json:"ok"`
	Title      string   `json:"title"`
	DurationMS int64    `json:"duration_ms"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func NewCIResult(title string, details []string, elapsed time.Duration, err error) CIResult {
	res := CIResult{OK: err == nil, Title: title, DurationMS: elapsed.Milliseconds(), Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func WriteCIResult(w io.Writer, res CIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
