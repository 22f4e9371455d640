package elm

import "strings"

// StatusText reshapes an interpreter status reply for relay: every sentinel
// delimiter becomes a space, and the message is otherwise passed through
// whole, ready prompt included.
func StatusText(reply string) string {
	return strings.ReplaceAll(reply, string(SentinelDelimiter), " ")
}

// DataPayload cuts the echoed request header off an ECU data reply and
// returns everything after the first sentinel delimiter. ok is false when
// the reply has no content beyond the echo, in which case nothing should be
// relayed for the cycle.
func DataPayload(reply string) (payload string, ok bool) {
	_, rest, found := strings.Cut(reply, string(SentinelDelimiter))
	if !found || rest == "" {
		return "", false
	}
	return rest, true
}
