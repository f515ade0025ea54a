// Package config loads alarm configuration and resolves the settings the
// hosts share.
//
// A service file is YAML in the serverless layout; alarm groups live under
// custom.sqs-alarms:
//
//	provider:
//	  region: eu-west-1
//	custom:
//	  sqs-alarms:
//	    - queue: orders
//	      topic: ops-alerts
//	      metricName: ApproximateNumberOfMessagesVisible
//	      treatMissingData: notBreaching
//	      thresholds: [100, {value: 1000, period: 300}]
//
// Opener.Open reads the file from a local path, s3://bucket/key or
// secretsmanager://secret-id. ResolveRegion picks the deployment region from
// explicit candidates (callers pass SQS_ALARMS_REGION and provider.region)
// or the AWS default chain.
// LoadDotEnv loads an optional .env file before any of that happens.
package config
