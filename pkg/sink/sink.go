package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/convogen/pkg/conversation"
)

// Sink persists completed conversations. Implementations receive the record
// by value semantics: the caller never mutates it afterwards.
type Sink interface {
	Write(conv *conversation.Conversation) error
}

// SinkError wraps a failed persist of one conversation. It never affects
// sibling conversations.
type SinkError struct {
	ConversationID string
	Err            error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink: conversation %s: %v", e.ConversationID, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Marshal serializes a conversation the way the sink persists it. Struct
// field order is fixed by the type definitions and map keys are sorted by
// encoding/json, so re-serializing the same record is byte-identical.
func Marshal(conv *conversation.Conversation) ([]byte, error) {
	buf, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal conversation")
	}
	return append(buf, '\n'), nil
}

// FileSink writes one JSON document per conversation into a directory,
// named by conversation id.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, errors.New("empty sink directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create sink directory %s", dir)
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Write(conv *conversation.Conversation) error {
	buf, err := Marshal(conv)
	if err != nil {
		return &SinkError{ConversationID: conv.ID, Err: err}
	}

	path := filepath.Join(s.dir, conv.ID+".json")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return &SinkError{ConversationID: conv.ID, Err: errors.Wrapf(err, "write %s", path)}
	}

	log.Info().
		Str("conversation_id", conv.ID).
		Str("path", path).
		Msg("conversation persisted")
	return nil
}

// Path returns where a conversation with the given id would be written.
func (s *FileSink) Path(conversationID string) string {
	return filepath.Join(s.dir, conversationID+".json")
}

var _ Sink = (*FileSink)(nil)
