package alarms

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// NameSuffix separates the queue part of a resource name from the value.
	NameSuffix = "MessageAlarm"

	// undefined is what the description shows for an unset field.
	undefined = "undefined"
)

var missingDataTokens = map[string]struct{}{
	"missing":      {},
	"ignore":       {},
	"breaching":    {},
	"notBreaching": {},
}

// ClassifyMissingData accepts the four treatMissingData tokens CloudWatch
// knows and rejects everything else.
func ClassifyMissingData(token string) (string, bool) {
	if _, ok := missingDataTokens[token]; !ok {
		return "", false
	}
	return token, true
}

// FormatValue renders a threshold value the way it appears in names and
// descriptions: shortest round-trip digits, plain decimal between 1e-6 and
// 1e21 and exponent notation (1e+21, 1.5e-7) outside that range.
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}
	if abs := math.Abs(v); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Alphanumeric drops every rune outside [0-9A-Za-z].
func Alphanumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResourceName derives the logical ID of the alarm for value on queue.
// CloudFormation logical IDs are alphanumeric, so everything else is dropped
// from the queue name.
func ResourceName(queue string, value float64) string {
	return Alphanumeric(queue) + NameSuffix + FormatValue(value)
}

// Generate builds one alarm resource per threshold of g, in threshold order.
func Generate(g GroupSpec, region string) []NamedResource {
	out := make([]NamedResource, 0, len(g.Thresholds))
	for i, t := range g.Thresholds {
		out = append(out, NamedResource{
			Name:     ResourceName(g.Queue, t.Value),
			Resource: g.resource(i, t, region),
		})
	}
	return out
}

func (g GroupSpec) resource(i int, t Threshold, region string) Resource {
	topic := TopicARN(region, g.Topic)
	props := AlarmProperties{
		AlarmDescription:   g.description(t),
		Namespace:          orString(t.Namespace, DefaultNamespace),
		MetricName:         g.MetricName,
		Dimensions:         []Dimension{{Name: DimensionQueueName, Value: g.Queue}},
		Statistic:          Statistic,
		Period:             orNumber(t.Period, DefaultPeriod),
		EvaluationPeriods:  orNumber(t.EvaluationPeriods, DefaultEvaluationPeriods),
		DatapointsToAlarm:  orNumber(t.DatapointsToAlarm, DefaultDatapointsToAlarm),
		Threshold:          t.Value,
		ComparisonOperator: ComparisonOperator,
		AlarmActions:       []Join{topic},
		OKActions:          []Join{topic},
	}
	if g.Name != "" {
		props.AlarmName = fmt.Sprintf("%s-%s-%s", g.Name, g.Queue, FormatValue(t.Value))
	}
	if token, ok := g.TreatMissingData.Resolve(i); ok {
		props.TreatMissingData = token
	}
	return Resource{Type: ResourceType, Properties: props}
}

// description prefers the threshold's own text. The synthesized text prints
// the configured fields as they are, so unset ones read "undefined".
func (g GroupSpec) description(t Threshold) string {
	if t.Description != "" {
		return t.Description
	}
	metric := undefined
	if g.MetricName != nil {
		metric = *g.MetricName
	}
	periods := undefined
	if t.EvaluationPeriods != nil {
		periods = FormatValue(*t.EvaluationPeriods)
	}
	return fmt.Sprintf("Alarm if %s is %s %s within %s minutes",
		metric, ComparisonOperator, FormatValue(t.Value), periods)
}

func orString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orNumber(v *float64, def float64) float64 {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}
