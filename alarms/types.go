package alarms

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied to detailed thresholds. A zero value counts as absent.
const (
	DefaultNamespace         = "AWS/SQS"
	DefaultPeriod            = 60
	DefaultEvaluationPeriods = 1
	DefaultDatapointsToAlarm = 1
)

// GroupSpec is one queue's set of threshold alarms.
type GroupSpec struct {
	Queue string `yaml:"queue" json:"queue"`
	Topic string `yaml:"topic" json:"topic"`

	// MetricName is nil when the group does not name a metric. The alarm then
	// carries no MetricName and the synthesized description says "undefined".
	MetricName *string `yaml:"metricName" json:"metricName"`

	// Name, when set, gives every alarm a display name "<name>-<queue>-<value>".
	Name string `yaml:"name" json:"name"`

	TreatMissingData *MissingData `yaml:"treatMissingData" json:"treatMissingData"`

	Thresholds []Threshold `yaml:"thresholds" json:"thresholds"`
}

// Threshold is a single trigger point. A bare number in the configuration
// decodes as Threshold{Value: n} with everything else unset.
type Threshold struct {
	Value             float64  `yaml:"value" json:"value"`
	Period            *float64 `yaml:"period" json:"period"`
	EvaluationPeriods *float64 `yaml:"evaluationPeriods" json:"evaluationPeriods"`
	DatapointsToAlarm *float64 `yaml:"datapointsToAlarm" json:"datapointsToAlarm"`
	Namespace         string   `yaml:"namespace" json:"namespace"`
	Description       string   `yaml:"description" json:"description"`

	scalar  bool
	noValue bool
}

// Scalar reports whether the threshold was written as a bare number.
func (t Threshold) Scalar() bool { return t.scalar }

// NewScalarThreshold returns the threshold a bare number decodes to.
func NewScalarThreshold(value float64) Threshold {
	return Threshold{Value: value, scalar: true}
}

// detailed mirrors Threshold without its methods so decoding does not recurse.
type detailed struct {
	Value             *float64 `yaml:"value" json:"value"`
	Period            *float64 `yaml:"period" json:"period"`
	EvaluationPeriods *float64 `yaml:"evaluationPeriods" json:"evaluationPeriods"`
	DatapointsToAlarm *float64 `yaml:"datapointsToAlarm" json:"datapointsToAlarm"`
	Namespace         string   `yaml:"namespace" json:"namespace"`
	Description       string   `yaml:"description" json:"description"`
}

func (t *Threshold) fromDetailed(d detailed) {
	*t = Threshold{
		Period:            d.Period,
		EvaluationPeriods: d.EvaluationPeriods,
		DatapointsToAlarm: d.DatapointsToAlarm,
		Namespace:         d.Namespace,
		Description:       d.Description,
	}
	if d.Value == nil {
		t.noValue = true
		return
	}
	t.Value = *d.Value
}

// UnmarshalYAML accepts either a number or a mapping.
func (t *Threshold) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return errors.Wrapf(err, "threshold: line %d", node.Line)
		}
		*t = NewScalarThreshold(v)
		return nil
	case yaml.MappingNode:
		var d detailed
		if err := node.Decode(&d); err != nil {
			return err
		}
		t.fromDetailed(d)
		return nil
	default:
		return errors.Errorf("threshold: line %d: expected number or mapping", node.Line)
	}
}

// UnmarshalJSON accepts either a number or an object.
func (t *Threshold) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*t = NewScalarThreshold(v)
		return nil
	}
	var d detailed
	if err := json.Unmarshal(data, &d); err != nil {
		return errors.Wrap(err, "threshold: expected number or object")
	}
	t.fromDetailed(d)
	return nil
}

// MissingData is the group's treatMissingData setting: either one token for
// every threshold or a list indexed like the thresholds.
type MissingData struct {
	uniform      string
	perThreshold []string
	isList       bool
}

// UniformMissingData applies token to every threshold of the group.
func UniformMissingData(token string) *MissingData {
	return &MissingData{uniform: token}
}

// PerThresholdMissingData applies tokens[i] to threshold i.
func PerThresholdMissingData(tokens ...string) *MissingData {
	return &MissingData{perThreshold: tokens, isList: true}
}

// Resolve returns the accepted token for threshold i. ok is false when there
// is no token at that index or the token is not recognized.
func (m *MissingData) Resolve(i int) (token string, ok bool) {
	if m == nil {
		return "", false
	}
	if !m.isList {
		return ClassifyMissingData(m.uniform)
	}
	if i < 0 || i >= len(m.perThreshold) {
		return "", false
	}
	return ClassifyMissingData(m.perThreshold[i])
}

// Tokens returns the raw configured tokens.
func (m *MissingData) Tokens() []string {
	if m == nil {
		return nil
	}
	if m.isList {
		return m.perThreshold
	}
	return []string{m.uniform}
}

// UnmarshalYAML accepts a string or a sequence of strings.
func (m *MissingData) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*m = MissingData{uniform: node.Value}
		return nil
	case yaml.SequenceNode:
		tokens := make([]string, 0, len(node.Content))
		for _, n := range node.Content {
			// non-scalar entries are kept as unrecognized placeholders so
			// indexes stay aligned with the thresholds
			if n.Kind != yaml.ScalarNode {
				tokens = append(tokens, "")
				continue
			}
			tokens = append(tokens, n.Value)
		}
		*m = MissingData{perThreshold: tokens, isList: true}
		return nil
	default:
		return errors.Errorf("treatMissingData: line %d: expected string or list", node.Line)
	}
}

// UnmarshalJSON accepts a string or an array.
func (m *MissingData) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MissingData{uniform: s}
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "treatMissingData: expected string or array")
	}
	tokens := make([]string, len(raw))
	for i, r := range raw {
		// non-string entries stay empty and are rejected by ClassifyMissingData
		_ = json.Unmarshal(r, &tokens[i])
	}
	*m = MissingData{perThreshold: tokens, isList: true}
	return nil
}
