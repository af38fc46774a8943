package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AssignmentDefinitionKey returns the cache key for an assignment's full definition,
// including the answer key
func (r *CacheKeyStruct) AssignmentDefinitionKey(assignmentID string) string {
	return fmt.Sprintf("assignment:%s:definition", assignmentID)
}

// AssignmentGradingChannel returns the Redis PubSub channel for grading events of an assignment
func (r *CacheKeyStruct) AssignmentGradingChannel(assignmentID string) string {
	return fmt.Sprintf("assignment:%s:grading", assignmentID)
}

var CacheKey = NewCacheKeyStruct()
