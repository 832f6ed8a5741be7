package mailbox

import "encoding/json"

// Envelope is the wire shape pushed into the inbox list and stored in the
// pipeline hash. CorrelationID is empty for fire-and-forget posts;
// non-empty means the producer is awaiting a result keyed by it.
type Envelope struct {
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// ErrorEnvelope is appended to the errors list (and forwarded to the
// error-handler actor, if bound) on any computation failure.
type ErrorEnvelope struct {
	ActorID string          `json:"actor_id"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

// Encode marshals e to its wire form.
func (e Envelope) Encode() ([]byte, error) { return json.Marshal(e) }

// DecodeEnvelope unmarshals the wire form produced by Encode.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}

// Encode marshals e to its wire form.
func (e ErrorEnvelope) Encode() ([]byte, error) { return json.Marshal(e) }

// DecodeErrorEnvelope unmarshals the wire form produced by Encode.
func DecodeErrorEnvelope(b []byte) (ErrorEnvelope, error) {
	var e ErrorEnvelope
	err := json.Unmarshal(b, &e)
	return e, err
}
