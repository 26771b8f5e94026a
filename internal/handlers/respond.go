package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/chatd/chatd/internal/protocol"
	"github.com/chatd/chatd/internal/session"
	"github.com/chatd/chatd/internal/wire"
)

// nowMs returns the current time as a millisecond Unix timestamp, the wire
// time unit throughout spec.md.
func nowMs() int64 {
	return time.Now().UnixMilli()
}

// reply marshals v and queues it as command on s. Marshal failure can only
// happen for a handler-authoring bug (unsupported type), so it's logged
// rather than surfaced on the wire.
func reply(s *session.Session, command string, v interface{}, logger *log.Logger) {
	b, err := json.Marshal(v)
	if err != nil {
		if logger != nil {
			logger.Printf("handlers: marshal %s response: %v", command, err)
		}
		return
	}
	s.QueueOut(protocol.Encode(command, string(b)))
}

// fail builds and sends a failure envelope on the given response command.
func fail(s *session.Session, command, code, msg string, logger *log.Logger) {
	reply(s, command, wire.Fail(code, msg), logger)
}

// decode unmarshals payload into dst and runs struct validation. On failure
// it sends the INVALID_JSON or validation-derived INVALID_PARAM response
// itself and returns false so the caller can return early.
func decode(s *session.Session, command, payload string, dst interface{}, d *Deps) bool {
	if err := json.Unmarshal([]byte(payload), dst); err != nil {
		fail(s, command, wire.ErrInvalidJSON, "malformed JSON payload", d.Logger)
		return false
	}
	if d.Validate != nil {
		if err := d.Validate.Struct(dst); err != nil {
			fail(s, command, wire.ErrInvalidParam, err.Error(), d.Logger)
			return false
		}
	}
	return true
}
