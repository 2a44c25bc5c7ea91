package core

import "github.com/google/uuid"

// generateUUID generates a new UUID string
func generateUUID() string {
	return uuid.New().String()
}

func generateContextID(name string) string {
	return name + "." + generateUUID()
}

// NewStreamID returns a unique identifier for a stream of the given kind,
// used to label its log lines
func NewStreamID(kind string) string {
	return kind + "." + generateUUID()
}
