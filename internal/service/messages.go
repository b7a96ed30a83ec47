// File: backend/services/audit-service/internal/service/messages.go

package service

import (
	"fmt"
	"strings"
)

// joinName joins the non-empty name parts with single spaces.
func joinName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// displayName is the stored projection name: first and last only.
func displayName(first, last string) string {
	return truncateDisplayName(strings.TrimSpace(first + " " + last))
}

func nameCreatedMessage(username, email, first string, middle *string, last string) string {
	return fmt.Sprintf("Person name created for user %s (%s). Name: %s",
		username, email, joinName(first, optional(middle), last))
}

func nameChangedMessage(username, email, oldFull, newFull string) string {
	return fmt.Sprintf("Person name changed for user %s (%s). Changed from '%s' to '%s'",
		username, email, oldFull, newFull)
}

func activityMessage(eventType, message, severity string) string {
	return fmt.Sprintf("%s: %s (Severity: %s)", eventType, message, severity)
}
