// Package mailbox implements the durable intake/commit/ack protocol on
// top of a store.Store: key layout, envelope shapes, and the
// claim/commit/append operations the dispatcher and coordinator drive.
package mailbox

// Keys names the store keys for one actor's mailbox, all under the
// "<id>:Mailbox:" prefix.
type Keys struct {
	Inbox    string // list: pending envelopes
	Pipeline string // hash: pipeline id -> in-flight envelope
	Results  string // hash: correlation id -> output payload
	Errors   string // list: error envelopes
	Channel  string // pub/sub topic
}

// KeysFor builds the Keys for actor identity id.
func KeysFor(id string) Keys {
	p := id + ":Mailbox:"
	return Keys{
		Inbox:    p + "inbox",
		Pipeline: p + "pipeline",
		Results:  p + "results",
		Errors:   p + "errors",
		Channel:  p + "channel",
	}
}
