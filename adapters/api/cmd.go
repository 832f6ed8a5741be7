// Package api provides the HTTP request/response envelopes cmd/gateway
// decodes and encodes around an actor's mailbox.
package api

// PostRequestBody is the JSON body accepted by a POST-to-mailbox endpoint.
// Data is decoded into the target actor's In type by the gateway handler.
type PostRequestBody[In any] struct {
	Data          In     `json:"data"`
	CorrelationID string `json:"correlation_id,omitempty"`
	HighPriority  bool   `json:"high_priority,omitempty"`
}

// PostReplyBody is the JSON body a synchronous POST-and-reply endpoint
// returns once the actor's computation completes.
type PostReplyBody[Out any] struct {
	Data Out `json:"data"`
}

// QueueLengthBody is the JSON body a queue-length endpoint returns.
type QueueLengthBody struct {
	Length int `json:"length"`
}

// ErrorBody is the JSON body an error response returns.
type ErrorBody struct {
	Error string `json:"error"`
}
