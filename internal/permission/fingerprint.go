package permission

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Cyclone1070/agentgate/internal/provider"
)

// Fingerprint identifies a tool call by name and arguments. Argument objects
// are canonicalized first, so key order and whitespace do not matter.
func Fingerprint(call provider.ToolCall) string {
	h := sha256.New()
	h.Write([]byte(call.Name))
	h.Write([]byte{0})
	h.Write(canonical(call.Arguments))
	return hex.EncodeToString(h.Sum(nil))
}

func canonical(raw json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return trimmed
	}
	// encoding/json sorts map keys on output.
	out, err := json.Marshal(v)
	if err != nil {
		return trimmed
	}
	return out
}
