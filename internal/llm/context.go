package llm

import "context"

// PurposeCoachNote labels the post-session coach note.
const PurposeCoachNote = "coach-note"

// RequestTag labels a generation in the request log.
type RequestTag struct {
	Purpose   string
	SessionID string
}

type tagKey struct{}

// Tag returns ctx carrying tag. Empty fields keep what ctx already carries,
// so the session and the purpose can be set at different layers.
func Tag(ctx context.Context, tag RequestTag) context.Context {
	cur, _ := ctx.Value(tagKey{}).(RequestTag)
	if tag.Purpose == "" {
		tag.Purpose = cur.Purpose
	}
	if tag.SessionID == "" {
		tag.SessionID = cur.SessionID
	}
	return context.WithValue(ctx, tagKey{}, tag)
}

// TagFrom returns the tag on ctx. A missing purpose reads "unknown".
func TagFrom(ctx context.Context) RequestTag {
	tag, _ := ctx.Value(tagKey{}).(RequestTag)
	if tag.Purpose == "" {
		tag.Purpose = "unknown"
	}
	return tag
}
