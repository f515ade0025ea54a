package alarms

import "fmt"

// Warning describes configuration that generates without error but probably
// not the way the author meant.
type Warning struct {
	Queue   string
	Index   int
	Message string
}

func (w Warning) String() string {
	if w.Index < 0 {
		return fmt.Sprintf("%s: %s", w.Queue, w.Message)
	}
	return fmt.Sprintf("%s: thresholds[%d]: %s", w.Queue, w.Index, w.Message)
}

// Lint reports silently dropped treatMissingData tokens, thresholds without a
// value and resource names that overwrite one another.
func Lint(groups []GroupSpec) []Warning {
	var out []Warning
	seen := map[string]string{}
	for _, g := range groups {
		if g.Queue == "" {
			out = append(out, Warning{Queue: g.Queue, Index: -1, Message: "queue is empty"})
		}
		if g.Topic == "" {
			out = append(out, Warning{Queue: g.Queue, Index: -1, Message: "topic is empty"})
		}
		tokens := g.TreatMissingData.Tokens()
		for i, tok := range tokens {
			if _, ok := ClassifyMissingData(tok); !ok {
				out = append(out, Warning{Queue: g.Queue, Index: i,
					Message: fmt.Sprintf("treatMissingData %q is not recognized and will be omitted", tok)})
			}
		}
		if g.TreatMissingData != nil && g.TreatMissingData.isList && len(tokens) < len(g.Thresholds) {
			out = append(out, Warning{Queue: g.Queue, Index: -1,
				Message: fmt.Sprintf("treatMissingData lists %d tokens for %d thresholds", len(tokens), len(g.Thresholds))})
		}
		for i, t := range g.Thresholds {
			if t.noValue {
				out = append(out, Warning{Queue: g.Queue, Index: i, Message: "threshold has no value"})
			}
			name := ResourceName(g.Queue, t.Value)
			if prev, ok := seen[name]; ok {
				out = append(out, Warning{Queue: g.Queue, Index: i,
					Message: fmt.Sprintf("resource %s overwrites the alarm generated for %s", name, prev)})
			}
			seen[name] = g.Queue
		}
	}
	return out
}
