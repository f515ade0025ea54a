package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"

	"github.com/30Piraten/sqs-alarms/config"
)

type AlarmResources struct {
	stack   awscdk.Stack
	service *config.Service
	region  string
	topics  map[string]awssns.ITopic
}

type PipelineResources struct {
	stack          awscdk.Stack
	artifactBucket awss3.IBucket
	alarmTopic     awssns.ITopic
	source         string
}
