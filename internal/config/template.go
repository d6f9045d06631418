package config

const configTemplate = `# {{ index .Help "session-key" }}
# It can also be set with the CLAUDE_SESSION_KEY environment variable.
session-key:
# {{ index .Help "base-url" }}
base-url: {{ .Config.BaseURL }}
# {{ index .Help "user-agent" }}
user-agent: {{ .Config.UserAgent }}
# {{ index .Help "organization" }}
organization:
# {{ index .Help "model" }}
model: {{ .Config.Model }}
# {{ index .Help "timezone" }}
timezone: {{ .Config.Timezone }}
# {{ index .Help "timeout" }}
timeout: {{ .Config.Timeout }}
# {{ index .Help "org-cache-ttl" }}
org-cache-ttl: {{ .Config.OrgCacheTTL }}
# {{ index .Help "raw" }}
raw: false
# {{ index .Help "quiet" }}
quiet: false
# {{ index .Help "word-wrap" }}
word-wrap: {{ .Config.WordWrap }}
# {{ index .Help "no-cache" }}
no-cache: false
# {{ index .Help "cache-path" }}
# cache-path:
# {{ index .Help "verbose" }}
verbose: false
`
