package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamDefinitionKey returns the cache key for an exam's question list.
func (r *CacheKeyStruct) ExamDefinitionKey(examSlug string) string {
	return fmt.Sprintf("exam:%s:definition", examSlug)
}

// SessionEventChannel returns the Redis PubSub channel for a session's
// mutation stream.
func (r *CacheKeyStruct) SessionEventChannel(sessionID string) string {
	return fmt.Sprintf("session:%s:events", sessionID)
}

var CacheKey = NewCacheKeyStruct()
