package core

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"jarvis/internal/config"
)

// Network reports whether the remote model is reachable
type Network interface {
	Online(ctx context.Context) bool
}

// StaticNetwork is a fixed connectivity answer
type StaticNetwork bool

func (s StaticNetwork) Online(context.Context) bool { return bool(s) }

// DialProbe treats a successful TCP connect to Addr as online
type DialProbe struct {
	Addr    string
	Timeout time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// OfflineResponder produces canned replies while the model is unreachable
type OfflineResponder struct {
	replies config.OfflineReplies
	now     func() time.Time
}

// NewOfflineResponder creates a responder using the persona's replies
func NewOfflineResponder(replies config.OfflineReplies, now func() time.Time) *OfflineResponder {
	return &OfflineResponder{replies: replies, now: now}
}

// Respond picks the reply for input: tasks hint, local time, or the
// limited-capability notice
func (o *OfflineResponder) Respond(input string) string {
	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, o.replies.TaskKeywords):
		return o.replies.TaskReply
	case containsAny(lower, o.replies.TimeKeywords):
		return fmt.Sprintf(o.replies.TimeReply, o.now().Format("15:04:05"))
	default:
		return o.replies.DefaultReply
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, w) {
			return true
		}
	}
	return false
}
