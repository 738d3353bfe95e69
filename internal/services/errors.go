package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProviderExhausted = errors.New("provider chain exhausted")
	ErrUnknownStyle      = errors.New("unknown style")
	ErrTimingInfeasible  = errors.New("timing infeasible")
	ErrRenderFailed      = errors.New("render failed")
	ErrNotCancellable    = errors.New("not cancellable")
	ErrNotFound          = errors.New("not found")
	ErrExternalTool      = errors.New("external tool error")
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrTimeout           = errors.New("timeout")
	ErrTransient         = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorDetails carries the classification and user-facing message of a stage error.
type ErrorDetails struct {
	Kind    string
	Message string
}

var markerKinds = []struct {
	marker error
	kind   string
}{
	{ErrProviderExhausted, "provider_exhausted"},
	{ErrUnknownStyle, "unknown_style"},
	{ErrTimingInfeasible, "timing_infeasible"},
	{ErrRenderFailed, "render_failed"},
	{ErrNotCancellable, "not_cancellable"},
	{ErrNotFound, "not_found"},
	{ErrExternalTool, "external_tool"},
	{ErrValidation, "validation"},
	{ErrConfiguration, "configuration"},
	{ErrTimeout, "timeout"},
	{ErrTransient, "transient"},
}

// Details extracts the classification kind and a message with the marker prefix
// stripped, suitable for persisting on a job record or returning to callers.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "transient", Message: strings.TrimSpace(err.Error())}
	for _, entry := range markerKinds {
		if errors.Is(err, entry.marker) {
			details.Kind = entry.kind
			prefix := entry.marker.Error() + ": "
			details.Message = strings.TrimSpace(strings.TrimPrefix(details.Message, prefix))
			break
		}
	}
	return details
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
