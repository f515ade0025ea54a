package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
)

func createAlarmOutputs(stack awscdk.Stack, names []string) {
	for _, name := range names {
		awscdk.NewCfnOutput(stack, jsii.String(name+"Output"), &awscdk.CfnOutputProps{
			Value:       awscdk.Fn_Ref(jsii.String(name)),
			Description: jsii.String("CloudWatch alarm " + name),
		})
	}
}

func createPipelineOutputs(stack awscdk.Stack, pipeline awscodepipeline.Pipeline, lambdaFunction awslambda.Function) {
	awscdk.NewCfnOutput(stack, jsii.String("codePipelineNameOutput"), &awscdk.CfnOutputProps{
		Value: pipeline.PipelineName(),
	})

	awscdk.NewCfnOutput(stack, jsii.String("MergeFunctionNameOutput"), &awscdk.CfnOutputProps{
		Value: lambdaFunction.FunctionName(),
	})
}
