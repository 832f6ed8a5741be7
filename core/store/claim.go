package store

import "context"

import "encoding/json"

// Claim runs the ScriptClaim atomic operation against s: it pops the next
// envelope from inboxKey and, if one exists, records it in pipelineKey
// under pipelineID. It returns the popped envelope, or nil if the inbox
// was empty.
func Claim(ctx context.Context, s Store, inboxKey, pipelineKey, pipelineID string) ([]byte, error) {
	args, err := json.Marshal(ClaimArgs{
		InboxKey:    inboxKey,
		PipelineKey: pipelineKey,
		PipelineID:  pipelineID,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.Eval(ctx, ScriptClaim, args)
	if err != nil {
		return nil, err
	}

	var res ClaimResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return res.Envelope, nil
}
