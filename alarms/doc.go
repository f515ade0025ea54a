// Package alarms turns SQS alarm groups into CloudWatch alarm resources for a
// CloudFormation template.
//
// A GroupSpec names one queue, the SNS topic notified on state changes, the
// metric to watch and a list of thresholds. Generate maps every threshold to
// one AWS::CloudWatch::Alarm resource keyed by
//
//	<alphanumeric queue name>MessageAlarm<threshold value>
//
// Thresholds are either bare numbers or detailed mappings; both decode into
// Threshold. treatMissingData is either one token for the whole group or one
// token per threshold; both decode into MissingData. Unknown tokens are
// dropped silently and the property is left out of the alarm.
//
// Template holds a decoded CloudFormation document. Merge deep merges
// generated resources into its Resources section, last write wins.
//
// Generation is pure: no I/O, no logging, no errors.
package alarms
