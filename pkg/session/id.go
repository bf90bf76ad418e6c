package session

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateID() string {
	return uuid.New().String()
}

// ShortID is the compact form used in log lines.
func ShortID(sessionID string) string {
	cleaned := strings.ReplaceAll(sessionID, "-", "")
	if len(cleaned) >= 8 {
		return cleaned[:8]
	}
	return cleaned
}
