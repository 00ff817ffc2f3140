package webhook

// defaultMention is the token that addresses the agent in comment text.
const defaultMention = "@agent"

// Provider-specific signature headers.
const (
	headerGitHubSignature = "X-Hub-Signature-256"
	headerGitHubEvent     = "X-GitHub-Event"
	headerSlackSignature  = "X-Slack-Signature"
	headerSlackTimestamp  = "X-Slack-Request-Timestamp"
	headerJiraSignature   = "X-Hub-Signature"
	headerSentrySignature = "Sentry-Hook-Signature"
	headerSentryResource  = "Sentry-Hook-Resource"
)
