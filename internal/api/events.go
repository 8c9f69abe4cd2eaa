package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// StreamEvents opens the session event stream and delivers each decoded
// "session" event to handle, in arrival order, until the connection drops
// or ctx is cancelled. It covers exactly one connection: the caller owns
// the reconnect-with-backoff loop and decides when the session is no
// longer of interest.
//
// A context cancellation returns ctx.Err(); any transport or protocol
// failure returns a non-nil error the caller may retry on.
func (c *Client) StreamEvents(ctx context.Context, sessionID string, handle func(*session.CookSession)) error {
	path := c.baseURL + "/cook/session/" + url.PathEscape(sessionID) + "/events"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.setScope(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: event stream returned %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	c.logger.Debug("event stream connected", "session", sessionID)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventName string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line terminates one event.
			if eventName == "session" && data.Len() > 0 {
				var snap session.CookSession
				if err := json.Unmarshal([]byte(data.String()), &snap); err != nil {
					c.logger.Warn("dropping undecodable session event", "session", sessionID, "err", err)
				} else {
					handle(&snap)
				}
			}
			eventName = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case strings.HasPrefix(line, ":"):
			// Comment/keepalive line, ignored.
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading event stream: %v", shared.ErrAPIRequest, err)
	}
	// Server closed the stream cleanly; callers treat this like a drop
	// and reconnect while the session remains of interest.
	return fmt.Errorf("%w: event stream closed", shared.ErrAPIRequest)
}
