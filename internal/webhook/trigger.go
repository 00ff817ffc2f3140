package webhook

import (
	"regexp"
	"strings"
	"sync"

	"agent-gateway/internal/model"
)

// TriggerPolicy decides whether an event warrants automated work. Any one of
// three signals is sufficient: an explicit mention with an instruction, an
// allow-listed label, or a provider default-trigger event type.
type TriggerPolicy struct {
	Mention       string   // mention token, e.g. "@agent"
	AllowedLabels []string // label allow-list; any overlap triggers
	DefaultEvents []string // event types that always trigger

	once       sync.Once
	mentionRe  *regexp.Regexp
	labelIndex map[string]struct{}
}

func (p *TriggerPolicy) compile() {
	if p.Mention != "" {
		p.mentionRe = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p.Mention) + `[ \t:,]+([^\r\n]+)`)
	}
	p.labelIndex = make(map[string]struct{}, len(p.AllowedLabels))
	for _, label := range p.AllowedLabels {
		p.labelIndex[strings.ToLower(label)] = struct{}{}
	}
}

// ExtractMention returns the instruction following the first mention token in
// text. Only the first match counts.
func (p *TriggerPolicy) ExtractMention(text string) (string, bool) {
	p.once.Do(p.compile)
	if p.mentionRe == nil || text == "" {
		return "", false
	}
	m := p.mentionRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Evaluate applies the three trigger signals to an event. On accept the
// second return is the task instruction; on decline it is the skip reason.
func (p *TriggerPolicy) Evaluate(event *model.WebhookEvent) (bool, string) {
	p.once.Do(p.compile)

	if instruction, ok := p.ExtractMention(event.Meta("comment_body")); ok {
		return true, instruction
	}
	if instruction, ok := p.ExtractMention(event.Meta("body")); ok {
		return true, instruction
	}

	if labels := event.Meta("labels"); labels != "" {
		for _, label := range strings.Split(labels, ",") {
			if _, ok := p.labelIndex[strings.ToLower(strings.TrimSpace(label))]; ok {
				return true, ""
			}
		}
	}

	for _, eventType := range p.DefaultEvents {
		if event.EventType == eventType {
			return true, ""
		}
	}

	return false, "no trigger signal matched"
}
