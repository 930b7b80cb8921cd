package telemetry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// phaseRegex matches inline phase markers in message text.
var phaseRegex = regexp.MustCompile(`(?i)\bPHASE:\s*([A-Za-z][A-Za-z0-9_-]*)`)

// phaseFields are the mapping keys whose text is searched for phase markers.
var phaseFields = []string{"content", "text", "message", "input", "output", "prompt"}

// sessionKeys are accepted spellings of the session identifier.
var sessionKeys = []string{"sessionID", "session_id", "sessionId"}

// timestampKeys are accepted spellings of an event timestamp.
var timestampKeys = []string{"timestamp", "time", "created_at", "createdAt", "started_at"}

// PhaseMark is one phase transition on the timeline.
type PhaseMark struct {
	Phase       string `json:"phase"`
	TimestampMS int64  `json:"timestamp_ms"`
}

// collector accumulates facts across all events of a session.
type collector struct {
	sessionID        string
	variant          string
	models           map[string]struct{}
	tools            map[string]struct{}
	subagents        map[string]struct{}
	skills           map[string]struct{}
	slashCommands    map[string]struct{}
	tokensPrompt     int64
	tokensCompletion int64
	tokensTotal      int64
	timeline         []PhaseMark
}

// handler processes one mapping node. Keys declares which fields the handler
// reads; it only fires when at least one is present.
type handler struct {
	keys  []string
	visit func(c *collector, m map[string]*Node)
}

// stringSetHandler accumulates string values from any of the given keys into
// one named set.
func stringSetHandler(pick func(c *collector) map[string]struct{}, keys ...string) handler {
	return handler{
		keys: keys,
		visit: func(c *collector, m map[string]*Node) {
			set := pick(c)
			for _, key := range keys {
				node, ok := m[key]
				if !ok {
					continue
				}
				switch node.Kind {
				case KindScalar:
					if s := node.String(); s != "" {
						set[s] = struct{}{}
					}
				case KindSequence:
					for _, item := range node.Sequence {
						if s := item.String(); s != "" {
							set[s] = struct{}{}
						}
					}
				}
			}
		},
	}
}

var handlers = []handler{
	stringSetHandler(func(c *collector) map[string]struct{} { return c.tools },
		"tool", "tool_name", "toolName"),
	stringSetHandler(func(c *collector) map[string]struct{} { return c.subagents },
		"agent", "agent_name", "agentName", "subagent_type"),
	stringSetHandler(func(c *collector) map[string]struct{} { return c.skills },
		"skill", "skills"),
	stringSetHandler(func(c *collector) map[string]struct{} { return c.slashCommands },
		"command", "slash_command", "slashCommand"),
	{
		keys:  sessionKeys,
		visit: (*collector).takeSessionID,
	},
	{
		keys:  []string{"model", "modelID", "modelId", "variant"},
		visit: (*collector).takeModel,
	},
	{
		keys:  []string{"tokens", "usage", "token_usage", "prompt_tokens", "input_tokens", "completion_tokens", "output_tokens", "total_tokens"},
		visit: (*collector).takeTokens,
	},
	{
		keys:  phaseFields,
		visit: (*collector).takePhaseMarks,
	},
}

func newCollector() *collector {
	return &collector{
		models:        map[string]struct{}{},
		tools:         map[string]struct{}{},
		subagents:     map[string]struct{}{},
		skills:        map[string]struct{}{},
		slashCommands: map[string]struct{}{},
	}
}

func (c *collector) visit(m map[string]*Node) {
	for _, h := range handlers {
		for _, key := range h.keys {
			if _, ok := m[key]; ok {
				h.visit(c, m)
				break
			}
		}
	}
}

func (c *collector) takeSessionID(m map[string]*Node) {
	if c.sessionID != "" {
		return
	}
	for _, key := range sessionKeys {
		if s := m[key].String(); s != "" {
			c.sessionID = s
			return
		}
	}
}

func (c *collector) takeModel(m map[string]*Node) {
	if node, ok := m["model"]; ok {
		name, variant := parseModelNode(node)
		if name != "" {
			c.models[name] = struct{}{}
		}
		if variant != "" && c.variant == "" {
			c.variant = variant
		}
	}
	modelID := m["modelID"].String()
	if modelID == "" {
		modelID = m["modelId"].String()
	}
	if modelID != "" {
		provider := m["providerID"].String()
		if provider == "" {
			provider = m["providerId"].String()
		}
		if provider != "" {
			c.models[provider+"/"+modelID] = struct{}{}
		} else {
			c.models[modelID] = struct{}{}
		}
	}
	if c.variant == "" {
		if v := m["variant"].String(); v != "" {
			c.variant = v
		}
	}
}

// parseModelNode handles both the plain-string and structured model fields.
func parseModelNode(node *Node) (name, variant string) {
	if node == nil {
		return "", ""
	}
	if node.Kind == KindScalar {
		return node.String(), ""
	}
	if node.Kind != KindMapping {
		return "", ""
	}
	m := node.Mapping
	provider := firstString(m, "providerID", "provider", "providerId")
	modelID := firstString(m, "modelID", "modelId", "model")
	variant = firstString(m, "variant", "modelVariant")
	switch {
	case provider != "" && modelID != "":
		return provider + "/" + modelID, variant
	case modelID != "":
		return modelID, variant
	}
	return "", variant
}

func firstString(m map[string]*Node, keys ...string) string {
	for _, key := range keys {
		if s := m[key].String(); s != "" {
			return s
		}
	}
	return ""
}

func (c *collector) takeTokens(m map[string]*Node) {
	for _, key := range []string{"tokens", "usage", "token_usage"} {
		if node, ok := m[key]; ok && node.Kind == KindMapping {
			c.addTokenGroup(node.Mapping)
		}
	}
	c.addFlat(m, &c.tokensPrompt, "prompt_tokens", "input_tokens")
	c.addFlat(m, &c.tokensCompletion, "completion_tokens", "output_tokens")
	c.addFlat(m, &c.tokensTotal, "total_tokens")
}

func (c *collector) addTokenGroup(m map[string]*Node) {
	if v, ok := firstInt(m, "prompt", "input", "prompt_tokens", "input_tokens"); ok {
		c.tokensPrompt += v
	}
	if v, ok := firstInt(m, "completion", "output", "completion_tokens", "output_tokens"); ok {
		c.tokensCompletion += v
	}
	if v, ok := firstInt(m, "total", "total_tokens"); ok {
		c.tokensTotal += v
	}
}

func (c *collector) addFlat(m map[string]*Node, dst *int64, keys ...string) {
	for _, key := range keys {
		if v, ok := m[key].Int(); ok {
			*dst += v
		}
	}
}

func firstInt(m map[string]*Node, keys ...string) (int64, bool) {
	for _, key := range keys {
		if v, ok := m[key].Int(); ok {
			return v, true
		}
	}
	return 0, false
}

func (c *collector) takePhaseMarks(m map[string]*Node) {
	ts, ok := eventTimestamp(m)
	if !ok {
		return
	}
	for _, field := range phaseFields {
		text := m[field].String()
		if text == "" {
			continue
		}
		if match := phaseRegex.FindStringSubmatch(text); match != nil {
			c.timeline = append(c.timeline, PhaseMark{
				Phase:       strings.ToUpper(match[1]),
				TimestampMS: ts,
			})
		}
	}
}

// eventTimestamp normalizes a timestamp field to epoch milliseconds. Numeric
// values above 1e12 are already milliseconds, above 1e9 are seconds; strings
// are parsed as RFC 3339.
func eventTimestamp(m map[string]*Node) (int64, bool) {
	for _, key := range timestampKeys {
		node, ok := m[key]
		if !ok {
			continue
		}
		if f, isNum := node.Float(); isNum {
			ts := int64(f)
			switch {
			case ts > 1_000_000_000_000:
				return ts, true
			case ts > 1_000_000_000:
				return ts * 1000, true
			default:
				return ts, true
			}
		}
		if s := node.String(); s != "" {
			if ts, err := parseISOTimestamp(s); err == nil {
				return ts, true
			}
		}
	}
	return 0, false
}

func parseISOTimestamp(value string) (int64, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unparseable timestamp %q", value)
}

func sortedSet(set map[string]struct{}) []string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}
