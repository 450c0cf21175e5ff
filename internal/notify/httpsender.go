package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HTTPSender is the default out-of-the-box Sender: it delivers a
// notification by POSTing the payload to target, treated as a URL.
// Multicast notifications are not fanned out to multiple addresses —
// target already names the single collaborator (a load balancer, queue,
// or broadcast relay) responsible for onward fan-out; unicast vs.
// multicast is conveyed to it via the x-filecached-multicast header.
type HTTPSender struct {
	client *http.Client
}

// NewHTTPSender returns a Sender backed by an http.Client with no
// per-request deadline of its own; every Send call supplies its own
// timeout via context.
func NewHTTPSender() *HTTPSender {
	return &HTTPSender{client: &http.Client{}}
}

func (s *HTTPSender) Send(target string, multicast bool, payload []byte, timeout time.Duration, priority int) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: building request for %q: %w", target, err)
	}
	req.Header.Set("x-filecached-multicast", strconv.FormatBool(multicast))
	req.Header.Set("x-filecached-priority", strconv.Itoa(priority))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sending to %q: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: %q responded with status %d", target, resp.StatusCode)
	}
	return nil
}
