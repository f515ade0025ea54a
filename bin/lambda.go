package main

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3assets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/sqs-alarms/config"
)

// Merge Lambda resources
func createLambdaResources(resources *PipelineResources, region string) awslambda.Function {
	// Create DLQ
	deadLetterQueue := createDeadLetterQueue(resources.stack)

	// Create Lambda function
	lambdaFunction := createLambdaFunction(resources.stack, deadLetterQueue, resources.source, region)

	// Configure Lambda IAM roles
	configureLambdaIAM(resources, lambdaFunction)

	return lambdaFunction
}

func createDeadLetterQueue(stack awscdk.Stack) awssqs.IQueue {
	return awssqs.NewQueue(stack, jsii.String("MergeDLQ"), &awssqs.QueueProps{
		QueueName:       jsii.String("sqs-alarms-merge-dlq"),
		RetentionPeriod: awscdk.Duration_Days(jsii.Number(7)),
	})
}

func createLambdaFunction(stack awscdk.Stack, dlq awssqs.IQueue, source, region string) awslambda.Function {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		panic("Could not get file name")
	}
	// bin/lambda is built into bin/lambda/dist/bootstrap before synth
	lambdaDir := filepath.Join(filepath.Dir(filename), "lambda", "dist")

	env := map[string]*string{
		config.EnvRegion:       jsii.String(region),
		config.EnvTemplateFile: jsii.String(config.Env(config.EnvTemplateFile, "template.json")),
		config.EnvAlarmsFile:   jsii.String(config.Env(config.EnvAlarmsFile, config.DefaultSource)),
	}
	if source != "" {
		env[config.EnvSource] = jsii.String(source)
	}

	return awslambda.NewFunction(stack, jsii.String("mergeHandler"), &awslambda.FunctionProps{
		Runtime:         awslambda.Runtime_PROVIDED_AL2(),
		Handler:         jsii.String("bootstrap"),
		RetryAttempts:   jsii.Number(2),
		MemorySize:      jsii.Number(256),
		Timeout:         awscdk.Duration_Minutes(jsii.Number(2)),
		Architecture:    awslambda.Architecture_X86_64(),
		DeadLetterQueue: dlq,
		Code:            awslambda.Code_FromAsset(jsii.String(lambdaDir), &awss3assets.AssetOptions{}),
		Environment:     &env,
		Tracing:         awslambda.Tracing_ACTIVE,
	})
}

func createLambdaErrorAlarm(stack awscdk.Stack, lambdaFunction awslambda.Function) awscloudwatch.Alarm {
	return awscloudwatch.NewAlarm(stack, jsii.String("MergeErrorsAlarm"), &awscloudwatch.AlarmProps{
		AlarmDescription: jsii.String("Alarm for alarm merge Lambda errors"),
		AlarmName:        jsii.String("SqsAlarmsMergeErrors"),
		Metric: awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
			Namespace:  jsii.String("AWS/Lambda"),
			MetricName: jsii.String("Errors"),
			Statistic:  jsii.String("Sum"),
			Period:     awscdk.Duration_Minutes(jsii.Number(1)),
			DimensionsMap: &map[string]*string{
				"FunctionName": lambdaFunction.FunctionName(),
			},
		}),
		EvaluationPeriods:  jsii.Number(1),
		Threshold:          jsii.Number(1),
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
	})
}

func configureLambdaIAM(resources *PipelineResources, lambdaFunction awslambda.Function) {
	// Report job results back to CodePipeline
	lambdaFunction.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect: awsiam.Effect_ALLOW,
		Actions: jsii.Strings(
			"codepipeline:PutJobSuccessResult",
			"codepipeline:PutJobFailureResult",
		),
		Resources: jsii.Strings("*"),
	}))

	// Read input artifacts and write output artifacts
	resources.artifactBucket.GrantReadWrite(lambdaFunction, nil)

	// Alarm configuration held outside the artifact
	switch {
	case strings.HasPrefix(resources.source, "secretsmanager://"):
		secret := awssecretsmanager.Secret_FromSecretNameV2(resources.stack,
			jsii.String("AlarmsSecret"),
			jsii.String(strings.TrimPrefix(resources.source, "secretsmanager://")))
		secret.GrantRead(lambdaFunction, nil)
	case strings.HasPrefix(resources.source, "s3://"):
		lambdaFunction.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Effect:    awsiam.Effect_ALLOW,
			Actions:   jsii.Strings("s3:GetObject"),
			Resources: jsii.Strings("arn:aws:s3:::" + strings.TrimPrefix(resources.source, "s3://")),
		}))
	}
}
