package ws

import "time"

// envelope wraps an event payload the way every consumer expects it: the
// payload fields at the top level plus the event name and an ISO-8601
// timestamp. Payload keys never override the two reserved fields.
func envelope(event string, data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data)+2)
	for k, v := range data {
		out[k] = v
	}
	out["event"] = event
	out["timestamp"] = now.UTC().Format(time.RFC3339)
	return out
}
