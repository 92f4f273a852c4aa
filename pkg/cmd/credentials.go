package cmd

import (
	"github.com/dukex/flowcanvas/pkg/credentials"
)

// NewCredentialStore keeps credentials in Redis when redisURL is set and in
// memory otherwise.
func NewCredentialStore(redisURL, owner string) credentials.Store {
	if redisURL == "" {
		return credentials.NewMemoryStore()
	}

	return credentials.NewRedisStore(NewRedisClient(redisURL), owner)
}
