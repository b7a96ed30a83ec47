// File: backend/services/audit-service/internal/events/kafka/topics.go
package kafka

import "github.com/wizarding-anonymous/gaming_platform/backend/services/audit-service/internal/events/models"

// Topics returns every topic the service reads or dead-letters to.
func Topics() []string {
	topics := make([]string, 0, 2*len(models.EventTypes))
	for _, t := range models.EventTypes {
		topics = append(topics, t.Channel(), t.DeadLetterChannel())
	}
	return topics
}
