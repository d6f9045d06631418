package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AshwinPathi/claude-api-go/transport"
)

// loadMsg resolves file:// and http(s):// messages to their content. URLs
// are fetched with t.
func loadMsg(ctx context.Context, t *transport.Transport, msg string) (string, error) {
	switch {
	case strings.HasPrefix(msg, "https://"), strings.HasPrefix(msg, "http://"):
		resp := t.Get(ctx, msg, nil)
		if !resp.OK {
			return "", fmt.Errorf("load %s: %w", msg, resp.Err)
		}
		return string(resp.Data), nil
	case strings.HasPrefix(msg, "file://"):
		bts, err := os.ReadFile(strings.TrimPrefix(msg, "file://"))
		if err != nil {
			return "", err //nolint:wrapcheck
		}
		return string(bts), nil
	default:
		return msg, nil
	}
}
