package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

type SqsAlarmsStackProps struct {
	awscdk.StackProps
}

func initializeStack(scope constructs.Construct, id string, props *SqsAlarmsStackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}

	// Configure stack synthesizer
	sprops.Synthesizer = awscdk.NewDefaultStackSynthesizer(&awscdk.DefaultStackSynthesizerProps{
		Qualifier: jsii.String("sqsalarms"),
	})

	return awscdk.NewStack(scope, &id, &sprops)
}

func importArtifactBucket(stack awscdk.Stack, name string) awss3.IBucket {
	return awss3.Bucket_FromBucketName(stack, jsii.String("ArtifactBucket"), jsii.String(name))
}
