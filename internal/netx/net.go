// Package netx holds small HTTP helpers shared by MailProof clients.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/mailproof/internal/common"
)

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 4 << 10

// StatusError is returned for responses outside the accepted status codes.
type StatusError struct {
	Status string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: %s; body: %s", e.Status, e.Body)
}

// DoJSON sends in as a JSON body (GET and nil in send no body), and decodes
// the response into out when the status code is one of accept (default 200).
// A non-empty token is sent as a bearer Authorization header.
func DoJSON(ctx context.Context, client *http.Client, method, url, token string, in, out any, accept ...int) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", common.BearerPrefix+token)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if len(accept) == 0 {
		accept = []int{http.StatusOK}
	}
	ok := false
	for _, code := range accept {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.Status, Code: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
