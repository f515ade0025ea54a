package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cenkalti/backoff"

	"github.com/30Piraten/sqs-alarms/config"
)

const alarmsYAML = `
custom:
  sqs-alarms:
    - queue: test-queue
      topic: test-topic
      name: alarm
      treatMissingData: notBreaching
      thresholds: [1, 2]
`

const baseTemplate = `{
  "AWSTemplateFormatVersion": "2010-09-09",
  "Resources": {"Queue": {"Type": "AWS::SQS::Queue"}}
}`

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

type fakePipeline struct {
	succeeded []string
	failed    map[string]string
	// flaky fails this many calls before succeeding
	flaky int
	calls int
}

func (f *fakePipeline) PutJobSuccessResult(_ context.Context, in *codepipeline.PutJobSuccessResultInput, _ ...func(*codepipeline.Options)) (*codepipeline.PutJobSuccessResultOutput, error) {
	f.calls++
	if f.calls <= f.flaky {
		return nil, errors.New("ThrottlingException")
	}
	f.succeeded = append(f.succeeded, *in.JobId)
	return &codepipeline.PutJobSuccessResultOutput{}, nil
}

func (f *fakePipeline) PutJobFailureResult(_ context.Context, in *codepipeline.PutJobFailureResultInput, _ ...func(*codepipeline.Options)) (*codepipeline.PutJobFailureResultOutput, error) {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[*in.JobId] = *in.FailureDetails.Message
	return &codepipeline.PutJobFailureResultOutput{}, nil
}

type fakeSecrets struct {
	value string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, _ *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return &secretsmanager.GetSecretValueOutput{SecretString: &f.value}, nil
}

func zipFiles(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func unzip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unzip: %v", err)
	}
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = content
	}
	return out
}

func newEvent(jobID string) CodePipelineEvent {
	var e CodePipelineEvent
	e.CodePipelineJob.ID = jobID
	e.CodePipelineJob.Data = JobData{
		InputArtifacts: []Artifact{{Name: "SourceArtifact", Location: Location{
			Type:       "S3",
			S3Location: S3Location{BucketName: "artifacts", ObjectKey: "in.zip"},
		}}},
		OutputArtifacts: []Artifact{{Name: "MergedArtifact", Location: Location{
			Type:       "S3",
			S3Location: S3Location{BucketName: "artifacts", ObjectKey: "out.zip"},
		}}},
	}
	return e
}

func newMerger(s3c *fakeS3, p *fakePipeline) *merger {
	return &merger{
		s3:           s3c,
		pipeline:     p,
		opener:       &config.Opener{},
		templateFile: "template.json",
		alarmsFile:   "serverless.yml",
		region:       "test-region",
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
		},
	}
}

func resourcesOf(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var tpl map[string]any
	if err := json.Unmarshal(data, &tpl); err != nil {
		t.Fatalf("template: %v", err)
	}
	return tpl["Resources"].(map[string]any)
}

func TestHandle_MergesArtifact(t *testing.T) {
	s3c := &fakeS3{objects: map[string][]byte{
		"artifacts/in.zip": zipFiles(t, map[string]string{
			"template.json":  baseTemplate,
			"serverless.yml": alarmsYAML,
			"README.md":      "keep me",
		}),
	}}
	p := &fakePipeline{}

	if err := newMerger(s3c, p).handle(context.Background(), newEvent("job-1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(p.succeeded) != 1 || p.succeeded[0] != "job-1" || len(p.failed) != 0 {
		t.Fatalf("results: succeeded=%v failed=%v", p.succeeded, p.failed)
	}

	out := unzip(t, s3c.objects["artifacts/out.zip"])
	if string(out["README.md"]) != "keep me" {
		t.Errorf("README.md: got %q", out["README.md"])
	}
	res := resourcesOf(t, out["template.json"])
	for _, k := range []string{"Queue", "testqueueMessageAlarm1", "testqueueMessageAlarm2"} {
		if _, ok := res[k]; !ok {
			t.Errorf("missing resource %s", k)
		}
	}
	props := res["testqueueMessageAlarm2"].(map[string]any)["Properties"].(map[string]any)
	if props["AlarmName"] != "alarm-test-queue-2" || props["TreatMissingData"] != "notBreaching" {
		t.Errorf("properties: got %v", props)
	}
	actions, _ := json.Marshal(props["AlarmActions"])
	if !strings.Contains(string(actions), "arn:aws:sns:test-region:") {
		t.Errorf("alarm actions: got %s", actions)
	}
}

func TestHandle_NoAlarmConfiguration(t *testing.T) {
	s3c := &fakeS3{objects: map[string][]byte{
		"artifacts/in.zip": zipFiles(t, map[string]string{"template.json": baseTemplate}),
	}}
	p := &fakePipeline{}

	if err := newMerger(s3c, p).handle(context.Background(), newEvent("job-2")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(p.succeeded) != 1 {
		t.Fatalf("want success, failed=%v", p.failed)
	}
	res := resourcesOf(t, unzip(t, s3c.objects["artifacts/out.zip"])["template.json"])
	if len(res) != 1 {
		t.Errorf("resources: got %v, want only Queue", res)
	}
}

func TestHandle_SourceFallback(t *testing.T) {
	s3c := &fakeS3{objects: map[string][]byte{
		"artifacts/in.zip": zipFiles(t, map[string]string{"template.json": baseTemplate}),
	}}
	p := &fakePipeline{}
	m := newMerger(s3c, p)
	m.opener = &config.Opener{Secrets: &fakeSecrets{value: alarmsYAML}}
	m.source = "secretsmanager://alarms"

	if err := m.handle(context.Background(), newEvent("job-3")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	res := resourcesOf(t, unzip(t, s3c.objects["artifacts/out.zip"])["template.json"])
	if _, ok := res["testqueueMessageAlarm1"]; !ok {
		t.Errorf("alarm from secret source not merged: %v", res)
	}
}

func TestHandle_Failures(t *testing.T) {
	cases := []struct {
		name    string
		objects map[string][]byte
		event   func() CodePipelineEvent
		want    string
	}{
		{
			name:    "missing artifact object",
			objects: map[string][]byte{},
			event:   func() CodePipelineEvent { return newEvent("job") },
			want:    "read input artifact",
		},
		{
			name:    "not a zip",
			objects: map[string][]byte{"artifacts/in.zip": []byte("plain")},
			event:   func() CodePipelineEvent { return newEvent("job") },
			want:    "open artifact zip",
		},
		{
			name: "bad template",
			objects: map[string][]byte{"artifacts/in.zip": zipFiles(t, map[string]string{
				"template.json": "{",
			})},
			event: func() CodePipelineEvent { return newEvent("job") },
			want:  "template.json",
		},
		{
			name: "bad alarms",
			objects: map[string][]byte{"artifacts/in.zip": zipFiles(t, map[string]string{
				"serverless.yml": "custom:\n  sqs-alarms:\n    - thresholds: [abc]\n",
			})},
			event: func() CodePipelineEvent { return newEvent("job") },
			want:  "serverless.yml",
		},
		{
			name:    "no input artifact",
			objects: map[string][]byte{},
			event: func() CodePipelineEvent {
				e := newEvent("job")
				e.CodePipelineJob.Data.InputArtifacts = nil
				return e
			},
			want: "no input artifact",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &fakePipeline{}
			if err := newMerger(&fakeS3{objects: c.objects}, p).handle(context.Background(), c.event()); err != nil {
				t.Fatalf("handle: %v", err)
			}
			if len(p.succeeded) != 0 {
				t.Fatalf("unexpected success")
			}
			if msg := p.failed["job"]; !strings.Contains(msg, c.want) {
				t.Errorf("failure message: got %q, want it to contain %q", msg, c.want)
			}
		})
	}
}

func TestHandle_RetriesJobResult(t *testing.T) {
	s3c := &fakeS3{objects: map[string][]byte{
		"artifacts/in.zip": zipFiles(t, map[string]string{"template.json": baseTemplate}),
	}}

	p := &fakePipeline{flaky: 2}
	if err := newMerger(s3c, p).handle(context.Background(), newEvent("job")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if p.calls != 3 || len(p.succeeded) != 1 {
		t.Errorf("calls=%d succeeded=%v", p.calls, p.succeeded)
	}

	p = &fakePipeline{flaky: 5}
	if err := newMerger(s3c, p).handle(context.Background(), newEvent("job")); err == nil {
		t.Error("expected error once retries are exhausted")
	}
	if p.calls != 3 {
		t.Errorf("calls: got %d, want 3", p.calls)
	}
}

func TestHandle_MissingJobID(t *testing.T) {
	p := &fakePipeline{}
	if err := newMerger(&fakeS3{}, p).handle(context.Background(), CodePipelineEvent{}); err == nil {
		t.Fatal("expected error for missing job id")
	}
	if len(p.succeeded)+len(p.failed) != 0 {
		t.Errorf("no result should be reported without a job id")
	}
}

func TestCodePipelineEvent_Decode(t *testing.T) {
	raw := `{"CodePipeline.job": {"id": "11111111-abcd", "data": {
		"inputArtifacts": [{"name": "SourceArtifact", "location": {"type": "S3",
			"s3Location": {"bucketName": "b", "objectKey": "k/in.zip"}}}],
		"outputArtifacts": [{"name": "MergedArtifact", "location": {"type": "S3",
			"s3Location": {"bucketName": "b", "objectKey": "k/out.zip"}}}]
	}}}`
	var e CodePipelineEvent
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatal(err)
	}
	if e.CodePipelineJob.ID != "11111111-abcd" {
		t.Errorf("id: got %q", e.CodePipelineJob.ID)
	}
	if got := e.CodePipelineJob.Data.OutputArtifacts[0].Location.S3Location.ObjectKey; got != "k/out.zip" {
		t.Errorf("output key: got %q", got)
	}
}
