package alarms

import (
	"encoding/json"
)

// Fixed parts of every generated alarm.
const (
	ResourceType       = "AWS::CloudWatch::Alarm"
	Statistic          = "Sum"
	ComparisonOperator = "GreaterThanOrEqualToThreshold"
	DimensionQueueName = "QueueName"
	AccountIDRef       = "AWS::AccountId"
)

// Resource is a CloudFormation AWS::CloudWatch::Alarm resource.
type Resource struct {
	Type       string          `json:"Type"`
	Properties AlarmProperties `json:"Properties"`
}

// AlarmProperties lists the alarm properties in the order they are emitted.
type AlarmProperties struct {
	AlarmDescription   string      `json:"AlarmDescription"`
	Namespace          string      `json:"Namespace"`
	MetricName         *string     `json:"MetricName,omitempty"`
	Dimensions         []Dimension `json:"Dimensions"`
	Statistic          string      `json:"Statistic"`
	Period             float64     `json:"Period"`
	EvaluationPeriods  float64     `json:"EvaluationPeriods"`
	DatapointsToAlarm  float64     `json:"DatapointsToAlarm"`
	Threshold          float64     `json:"Threshold"`
	ComparisonOperator string      `json:"ComparisonOperator"`
	AlarmActions       []Join      `json:"AlarmActions"`
	OKActions          []Join      `json:"OKActions"`
	AlarmName          string      `json:"AlarmName,omitempty"`
	TreatMissingData   string      `json:"TreatMissingData,omitempty"`
}

type Dimension struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// NamedResource pairs a resource with its logical ID in the template.
type NamedResource struct {
	Name     string
	Resource Resource
}

// Map returns the resource as generic JSON values, the shape templates and
// the CDK expect.
func (r Resource) Map() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ref is the CloudFormation Ref intrinsic.
type Ref string

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Ref": string(r)})
}

// Join is the CloudFormation Fn::Join intrinsic.
type Join struct {
	Delimiter string
	Values    []any
}

func (j Join) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]any{
		"Fn::Join": {j.Delimiter, j.Values},
	})
}

// TopicARN builds the ARN of an SNS topic in the deploying account:
//
//	arn:aws:sns:<region>:<AWS::AccountId>:<topic>
func TopicARN(region, topic string) Join {
	return Join{
		Delimiter: "",
		Values: []any{
			"arn:aws:sns:" + region + ":",
			Ref(AccountIDRef),
			":" + topic,
		},
	}
}
