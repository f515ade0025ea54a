package main

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/30Piraten/sqs-alarms/config"
	"github.com/30Piraten/sqs-alarms/log"
)

// NewSqsAlarmsStack creates the stack holding the generated CloudWatch alarms.
func NewSqsAlarmsStack(scope constructs.Construct, id string, props *SqsAlarmsStackProps,
	service *config.Service, region string) (awscdk.Stack, error) {
	stack := initializeStack(scope, id, props)

	resources := &AlarmResources{
		stack:   stack,
		service: service,
		region:  region,
	}
	if config.EnvBool(config.EnvCreateTopics) {
		createManagedTopics(resources)
	}

	names, err := createAlarmResources(resources)
	if err != nil {
		return nil, err
	}
	createAlarmOutputs(stack, names)

	return stack, nil
}

// NewAlarmPipelineStack creates the pipeline that merges alarms into a
// template uploaded to the artifact bucket and deploys the result.
func NewAlarmPipelineStack(scope constructs.Construct, id string, props *SqsAlarmsStackProps,
	bucketName, source, region string) awscdk.Stack {
	stack := initializeStack(scope, id, props)

	resources := &PipelineResources{
		stack:          stack,
		artifactBucket: importArtifactBucket(stack, bucketName),
		alarmTopic:     createMonitoringResources(stack),
		source:         source,
	}

	lambdaFunction := createLambdaResources(resources, region)
	createLambdaErrorAlarm(stack, lambdaFunction).
		AddAlarmAction(awscloudwatchactions.NewSnsAction(resources.alarmTopic))

	pipeline := createPipelineResources(resources, lambdaFunction)
	createPipelineOutputs(stack, pipeline, lambdaFunction)

	return stack
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	log.SetDebug(config.EnvBool("DEBUG"))

	awsCfg, err := config.LoadAWS(ctx, config.Env(config.EnvRegion, ""))
	if err != nil {
		return err
	}
	source := config.Env(config.EnvSource, config.DefaultSource)
	service, err := config.NewOpener(awsCfg).Load(ctx, source)
	if err != nil {
		return err
	}
	region, err := config.ResolveRegion(ctx, config.Env(config.EnvRegion, ""), service.Provider.Region)
	if err != nil {
		return err
	}

	app := awscdk.NewApp(nil)
	props := &SqsAlarmsStackProps{
		awscdk.StackProps{
			Env: env(region),
		},
	}

	if _, err := NewSqsAlarmsStack(app, stackName(service), props, service, region); err != nil {
		return errors.Wrap(err, "alarm stack")
	}

	if bucket := config.Env(config.EnvBucket, ""); bucket != "" {
		// local files are not visible to the pipeline Lambda
		pipelineSource := ""
		if strings.HasPrefix(source, "s3://") || strings.HasPrefix(source, "secretsmanager://") {
			pipelineSource = source
		}
		NewAlarmPipelineStack(app, "SqsAlarmsPipelineStack", props, bucket, pipelineSource, region)
	}

	app.Synth(nil)
	return nil
}

func stackName(service *config.Service) string {
	if service.Service == "" {
		return "SqsAlarmsStack"
	}
	return service.Service + "-sqs-alarms"
}

func main() {
	err := run(context.Background())
	jsii.Close()

	if err != nil {
		log.Get().Error("synth failed", zap.String("cause", errors.Cause(err).Error()), zap.Error(err))
		os.Exit(1)
	}
}

func env(region string) *awscdk.Environment {
	e := &awscdk.Environment{
		Region: jsii.String(region),
	}
	if account := config.Env(config.EnvAccountID, ""); account != "" {
		e.Account = jsii.String(account)
	}
	return e
}
