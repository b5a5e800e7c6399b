package main

import (
	"encoding/json"
	"fmt"
	"io"

	"auditgraph/internal/review"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reviewFailure turns a pipeline error into the message shown to users,
// keeping the detailed chain for the log.
func reviewFailure(err error) error {
	return fmt.Errorf("%s", review.UserMessage(err))
}
