package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/sqs-alarms/alarms"
)

// createManagedTopics creates the SNS topics the alarm groups notify, one per
// distinct topic name, for stacks that own their topics.
func createManagedTopics(resources *AlarmResources) {
	resources.topics = map[string]awssns.ITopic{}
	for _, g := range resources.service.Groups() {
		if g.Topic == "" {
			continue
		}
		if _, ok := resources.topics[g.Topic]; ok {
			continue
		}
		id := alarms.Alphanumeric(g.Topic)
		resources.topics[g.Topic] = awssns.NewTopic(resources.stack, jsii.String(fmt.Sprintf("Topic%s", id)), &awssns.TopicProps{
			TopicName:   jsii.String(g.Topic),
			DisplayName: jsii.String(fmt.Sprintf("SQS alarms (%s)", g.Topic)),
		})
	}
}

// Monitoring resources
func createMonitoringResources(stack awscdk.Stack) awssns.ITopic {
	return awssns.NewTopic(stack, jsii.String("PipelineAlarmTopic"), &awssns.TopicProps{
		TopicName:   jsii.String("sqs-alarms-pipeline"),
		DisplayName: jsii.String("SQS Alarms Pipeline"),
	})
}
