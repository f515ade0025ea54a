package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/30Piraten/sqs-alarms/alarms"
	"github.com/30Piraten/sqs-alarms/log"
)

// createAlarmResources adds one raw CloudWatch alarm per configured threshold
// and returns the logical IDs in generation order. A repeated ID overrides the
// properties of the earlier alarm, matching the template merge.
func createAlarmResources(resources *AlarmResources) ([]string, error) {
	byName := map[string]awscdk.CfnResource{}
	var names []string

	for _, g := range resources.service.Groups() {
		for _, nr := range alarms.Generate(g, resources.region) {
			m, err := nr.Resource.Map()
			if err != nil {
				return nil, errors.Wrapf(err, "encode %s", nr.Name)
			}
			props, _ := m["Properties"].(map[string]interface{})

			if existing, ok := byName[nr.Name]; ok {
				for k, v := range props {
					existing.AddPropertyOverride(jsii.String(k), v)
				}
				continue
			}

			alarm := awscdk.NewCfnResource(resources.stack, jsii.String(nr.Name), &awscdk.CfnResourceProps{
				Type:       jsii.String(nr.Resource.Type),
				Properties: &props,
			})
			// keep the generated key instead of the construct path hash
			alarm.OverrideLogicalId(jsii.String(nr.Name))

			if topic, ok := resources.topics[g.Topic]; ok {
				alarm.Node().AddDependency(topic)
			}

			byName[nr.Name] = alarm
			names = append(names, nr.Name)
		}
	}

	log.Get().Info("generated alarms",
		zap.Int("groups", len(resources.service.Groups())),
		zap.Int("alarms", len(names)),
		zap.String("region", resources.region))
	return names, nil
}
