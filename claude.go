// Package claude is a client for the private HTTP API behind the claude.ai
// web chat. It authenticates with the sessionKey cookie of a logged in
// browser and sends the same headers a browser would.
package claude

import (
	"strings"

	"github.com/AshwinPathi/claude-api-go/transport"
)

// BaseURL is where the web chat API lives.
const BaseURL = "https://claude.ai"

// DefaultUserAgent is sent when the config does not name one. Using the
// user agent of the browser the session key came from works best.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0"

const (
	organizationsPath   = "/api/organizations"
	generateTitlePath   = "/api/generate_chat_title"
	appendMessagePath   = "/api/append_message"
	renameChatPath      = "/api/rename_chat"
	convertDocumentPath = "/api/convert_document"
)

func conversationsPath(org string) string {
	return organizationsPath + "/" + org + "/chat_conversations"
}

func conversationPath(org, convo string) string {
	return conversationsPath(org) + "/" + convo
}

// Model is a model the web chat can answer with.
type Model string

// Known models.
const (
	Claude20        Model = "claude-2.0"
	Claude21        Model = "claude-2.1"
	ClaudeInstant12 Model = "claude-instant-1.2"
	Claude3Sonnet   Model = "claude-3-sonnet-20240229"
	Claude3Opus     Model = "claude-3-opus-20240229"
)

// DefaultModel is used when the config names none.
const DefaultModel = Claude21

// Models lists every known model.
var Models = []Model{Claude20, Claude21, ClaudeInstant12, Claude3Sonnet, Claude3Opus}

func (m Model) String() string { return string(m) }

// Timezone is the IANA zone the completion is rendered for.
type Timezone string

// Known timezones.
const (
	NewYork    Timezone = "America/New_York"
	LosAngeles Timezone = "America/Los_Angeles"
)

// DefaultTimezone is used when the config names none.
const DefaultTimezone = LosAngeles

func (t Timezone) String() string { return string(t) }

// SpoofedHeaders returns the browser-like headers the API expects. It does
// not contain the user agent or the session cookie.
func SpoofedHeaders() transport.Header {
	return transport.Header{
		"content-type":              "application/json",
		"authority":                 "claude.ai",
		"accept":                    "*/*",
		"accept-language":           "en-US,en;q=0.9",
		"dnt":                       "1",
		"sec-fetch-dest":            "empty",
		"sec-fetch-mode":            "navigate",
		"sec-fetch-site":            "same-origin",
		"upgrade-insecure-requests": "1",
		"connection":                "keep-alive",
	}
}

// Config is everything a [Client] needs.
type Config struct {
	SessionKey string
	BaseURL    string
	UserAgent  string

	// Headers replaces the spoofed header set when not nil.
	Headers transport.Header

	Model    Model
	Timezone Timezone
}

// DefaultConfig returns the config of a client that talks to claude.ai with
// the given session key.
func DefaultConfig(sessionKey string) Config {
	return Config{
		SessionKey: sessionKey,
		BaseURL:    BaseURL,
		UserAgent:  DefaultUserAgent,
		Headers:    SpoofedHeaders(),
		Model:      DefaultModel,
		Timezone:   DefaultTimezone,
	}
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = BaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Headers == nil {
		c.Headers = SpoofedHeaders()
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	return c
}
