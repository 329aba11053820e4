package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key for a candidate's session snapshot
func (r *CacheKeyStruct) CandidateSessionKey(assessmentID string, candidateID int64) string {
	return fmt.Sprintf("candidate:%d:assessment:%s:session", candidateID, assessmentID)
}

// CandidateDraftsKey returns the cache key for a candidate's answer drafts
func (r *CacheKeyStruct) CandidateDraftsKey(assessmentID string, candidateID int64) string {
	return fmt.Sprintf("candidate:%d:assessment:%s:drafts", candidateID, assessmentID)
}

// CandidateActiveAssessmentKey returns the cache key for a candidate's currently active assessment
func (r *CacheKeyStruct) CandidateActiveAssessmentKey(candidateID int64) string {
	return fmt.Sprintf("candidate:%d:active_assessment", candidateID)
}

// AssessmentQuestionsKey returns the cache key for an assessment's question payload
func (r *CacheKeyStruct) AssessmentQuestionsKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:questions", assessmentID)
}

// AssessmentProctorChannel returns the Redis PubSub channel name for an assessment's live proctoring feed
func (r *CacheKeyStruct) AssessmentProctorChannel(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:proctor", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
