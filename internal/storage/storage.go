package storage

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is the key-value persistence every component depends on instead of
// a concrete backend. Adapters live in the subpackages; tests use the
// in-memory one.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys. Each key is written by exactly one component.
const (
	KeyIdentity             = "locallife_identity"
	KeyConversationID       = "locallife_conversation_id"
	KeyTranscript           = "locallife_transcript"
	KeyUsageStats           = "locallife_usage_stats"
	KeyRegistrationPrompted = "locallife_registration_prompted"
	KeyPreserveConversation = "locallife_preserve_conversation"
)
