package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipelineactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/sqs-alarms/config"
)

const (
	sourceObjectKey = "sqs-alarms/source.zip"
	deployStackName = "sqs-alarms-application"
)

// Pipeline related resources
func createPipelineResources(resources *PipelineResources, lambdaFunction awslambda.Function) awscodepipeline.Pipeline {
	// Create pipeline role
	pipelineRole := createPipelineRole(resources.stack)

	// Create artifacts
	sourceArtifact := awscodepipeline.NewArtifact(jsii.String("SourceArtifact"), nil)
	mergedArtifact := awscodepipeline.NewArtifact(jsii.String("MergedArtifact"), nil)

	// Create pipeline
	pipeline := createPipeline(resources, pipelineRole, sourceArtifact, mergedArtifact, lambdaFunction)

	// Create pipeline alarms
	pipelineAlarm := createPipelineAlarm(resources.stack, pipeline)
	pipelineAlarm.AddAlarmAction(awscloudwatchactions.NewSnsAction(resources.alarmTopic))

	return pipeline
}

func createPipelineRole(stack awscdk.Stack) awsiam.Role {
	return awsiam.NewRole(stack, jsii.String("CodePipelineRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("codepipeline.amazonaws.com"), nil),
	})
}

func createPipeline(resources *PipelineResources, pipelineRole awsiam.IRole,
	sourceArtifact awscodepipeline.Artifact, mergedArtifact awscodepipeline.Artifact,
	lambdaFunction awslambda.Function) awscodepipeline.Pipeline {

	return awscodepipeline.NewPipeline(resources.stack, jsii.String("SqsAlarmsPipeline"),
		&awscodepipeline.PipelineProps{
			PipelineName:   jsii.String("SqsAlarmsPipeline"),
			ArtifactBucket: resources.artifactBucket,
			Role:           pipelineRole,
			Stages: &[]*awscodepipeline.StageProps{
				createSourceStage(sourceArtifact, resources.artifactBucket),
				createMergeStage(sourceArtifact, mergedArtifact, lambdaFunction),
				createDeployStage(mergedArtifact),
			},
			CrossAccountKeys: jsii.Bool(false),
		})
}

func createSourceStage(sourceArtifact awscodepipeline.Artifact, bucket awss3.IBucket) *awscodepipeline.StageProps {
	return &awscodepipeline.StageProps{
		StageName: jsii.String("Source"),
		Actions: &[]awscodepipeline.IAction{
			awscodepipelineactions.NewS3SourceAction(&awscodepipelineactions.S3SourceActionProps{
				ActionName: jsii.String("templateSource"),
				Bucket:     bucket,
				BucketKey:  jsii.String(sourceObjectKey),
				Output:     sourceArtifact,
				Trigger:    awscodepipelineactions.S3Trigger_POLL,
			}),
		},
	}
}

func createMergeStage(sourceArtifact awscodepipeline.Artifact,
	mergedArtifact awscodepipeline.Artifact,
	lambdaFunction awslambda.Function) *awscodepipeline.StageProps {
	return &awscodepipeline.StageProps{
		StageName: jsii.String("MergeAlarms"),
		Actions: &[]awscodepipeline.IAction{
			awscodepipelineactions.NewLambdaInvokeAction(&awscodepipelineactions.LambdaInvokeActionProps{
				ActionName: jsii.String("MergeAlarms"),
				Inputs:     &[]awscodepipeline.Artifact{sourceArtifact},
				Outputs:    &[]awscodepipeline.Artifact{mergedArtifact},
				Lambda:     lambdaFunction,
			}),
		},
	}
}

func createDeployStage(mergedArtifact awscodepipeline.Artifact) *awscodepipeline.StageProps {
	templateFile := config.Env(config.EnvTemplateFile, "template.json")
	return &awscodepipeline.StageProps{
		StageName: jsii.String("Deploy"),
		Actions: &[]awscodepipeline.IAction{
			awscodepipelineactions.NewCloudFormationCreateUpdateStackAction(&awscodepipelineactions.CloudFormationCreateUpdateStackActionProps{
				ActionName:       jsii.String("DeployTemplate"),
				StackName:        jsii.String(deployStackName),
				TemplatePath:     mergedArtifact.AtPath(jsii.String(templateFile)),
				AdminPermissions: jsii.Bool(true),
			}),
		},
	}
}

func createPipelineAlarm(stack awscdk.Stack, pipeline awscodepipeline.Pipeline) awscloudwatch.Alarm {
	return awscloudwatch.NewAlarm(stack, jsii.String("PipelineFailureAlarm"), &awscloudwatch.AlarmProps{
		AlarmDescription: jsii.String("Alert when the alarm delivery pipeline fails"),
		AlarmName:        jsii.String("SqsAlarmsPipelineFailure"),
		Metric: awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
			Namespace:  jsii.String("AWS/CodePipeline"),
			MetricName: jsii.String("FailedPipelines"),
			Statistic:  jsii.String("Sum"),
			Period:     awscdk.Duration_Minutes(jsii.Number(5)),
			DimensionsMap: &map[string]*string{
				"PipelineName": pipeline.PipelineName(),
			},
			Unit: awscloudwatch.Unit_COUNT,
		}),
		EvaluationPeriods:  jsii.Number(1),
		Threshold:          jsii.Number(1),
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
	})
}
