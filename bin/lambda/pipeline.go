package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/30Piraten/sqs-alarms/alarms"
	"github.com/30Piraten/sqs-alarms/config"
	"github.com/30Piraten/sqs-alarms/log"
)

// CodePipelineEvent is the structure of the event received from CodePipeline
type CodePipelineEvent struct {
	CodePipelineJob struct {
		ID   string  `json:"id"`
		Data JobData `json:"data"`
	} `json:"CodePipeline.job"`
}

type JobData struct {
	InputArtifacts  []Artifact `json:"inputArtifacts"`
	OutputArtifacts []Artifact `json:"outputArtifacts"`
}

type Artifact struct {
	Location Location `json:"location"`
	Name     string   `json:"name"`
	Revision string   `json:"revision"`
}

type Location struct {
	S3Location S3Location `json:"s3Location"`
	Type       string     `json:"type"`
}

type S3Location struct {
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
}

type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type PipelineAPI interface {
	PutJobSuccessResult(ctx context.Context, params *codepipeline.PutJobSuccessResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobSuccessResultOutput, error)
	PutJobFailureResult(ctx context.Context, params *codepipeline.PutJobFailureResultInput, optFns ...func(*codepipeline.Options)) (*codepipeline.PutJobFailureResultOutput, error)
}

// merger merges alarm resources into the template carried by a pipeline
// artifact.
type merger struct {
	s3       S3API
	pipeline PipelineAPI
	opener   *config.Opener

	templateFile string
	alarmsFile   string
	source       string
	region       string

	// newBackOff paces retries of AWS calls; nil means exponential with
	// maxRetries attempts after the first.
	newBackOff func() backoff.BackOff
}

const maxRetries = 3

// retry runs op until it succeeds, the back off gives up or ctx is done.
func (m *merger) retry(ctx context.Context, op func() error) error {
	var b backoff.BackOff
	if m.newBackOff != nil {
		b = m.newBackOff()
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.MaxElapsedTime = 30 * time.Second
		b = backoff.WithMaxRetries(exp, maxRetries)
	}
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

func (m *merger) handle(ctx context.Context, event CodePipelineEvent) error {
	jobID := event.CodePipelineJob.ID
	if jobID == "" {
		log.Get().Error("missing job id")
		return errors.New("job ID not found in event")
	}
	logger := log.Get().With(zap.String("job_id", jobID))

	data := event.CodePipelineJob.Data
	if len(data.InputArtifacts) == 0 {
		m.reportFailure(ctx, jobID, "no input artifact")
		return nil
	}

	in := data.InputArtifacts[0].Location.S3Location
	logger.Info("reading input artifact",
		zap.String("bucket", in.BucketName),
		zap.String("key", in.ObjectKey))

	files, err := m.readArtifact(ctx, in)
	if err != nil {
		m.reportFailure(ctx, jobID, fmt.Sprintf("read input artifact: %v", err))
		return nil
	}

	merged, count, err := m.merge(ctx, files)
	if err != nil {
		m.reportFailure(ctx, jobID, err.Error())
		return nil
	}
	logger.Info("merged alarms", zap.Int("alarms", count))

	if len(data.OutputArtifacts) == 0 {
		logger.Warn("no output artifact, merged template discarded")
		return m.reportSuccess(ctx, jobID)
	}

	out := data.OutputArtifacts[0].Location.S3Location
	if err := m.writeArtifact(ctx, out, files, merged); err != nil {
		m.reportFailure(ctx, jobID, fmt.Sprintf("write output artifact: %v", err))
		return nil
	}

	return m.reportSuccess(ctx, jobID)
}

// merge returns the artifact's template with the alarms merged in, and the
// number of alarms generated.
func (m *merger) merge(ctx context.Context, files map[string][]byte) ([]byte, int, error) {
	tpl, err := alarms.ParseTemplate(files[m.templateFile])
	if err != nil {
		return nil, 0, errors.Wrap(err, m.templateFile)
	}

	service, err := m.service(ctx, files)
	if err != nil {
		return nil, 0, err
	}

	region, err := config.ResolveRegion(ctx, m.region, service.Provider.Region)
	if err != nil {
		return nil, 0, err
	}

	generated := alarms.Build(service.Groups(), region)
	if err := tpl.Merge(generated...); err != nil {
		return nil, 0, err
	}

	body, err := tpl.MarshalIndent()
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return body, len(generated), nil
}

// service reads the alarm configuration from the artifact, falling back to
// the configured source. Neither present means no alarms.
func (m *merger) service(ctx context.Context, files map[string][]byte) (*config.Service, error) {
	if data, ok := files[m.alarmsFile]; ok {
		svc, err := config.Parse(data)
		return svc, errors.Wrap(err, m.alarmsFile)
	}
	if m.source != "" {
		return m.opener.Load(ctx, m.source)
	}
	return &config.Service{}, nil
}

func (m *merger) readArtifact(ctx context.Context, loc S3Location) (map[string][]byte, error) {
	var raw []byte
	err := m.retry(ctx, func() error {
		obj, err := m.s3.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(loc.BucketName),
			Key:    aws.String(loc.ObjectKey),
		})
		if err != nil {
			return err
		}
		defer obj.Body.Close()
		raw, err = io.ReadAll(obj.Body)
		return err
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, errors.Wrap(err, "open artifact zip")
	}

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", f.Name)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", f.Name)
		}
		files[f.Name] = content
	}
	return files, nil
}

// writeArtifact zips the input files with the template replaced by merged.
func (m *merger) writeArtifact(ctx context.Context, loc S3Location, files map[string][]byte, merged []byte) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, content []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = w.Write(content)
		return errors.WithStack(err)
	}

	if err := write(m.templateFile, merged); err != nil {
		return err
	}
	for _, name := range sortedNames(files) {
		if name == m.templateFile {
			continue
		}
		if err := write(name, files[name]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return errors.WithStack(err)
	}

	err := m.retry(ctx, func() error {
		_, err := m.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(loc.BucketName),
			Key:    aws.String(loc.ObjectKey),
			Body:   bytes.NewReader(buf.Bytes()),
		})
		return err
	})
	return errors.WithStack(err)
}

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// We notify CodePipeline of success
func (m *merger) reportSuccess(ctx context.Context, jobID string) error {
	log.Get().Info("reporting success", zap.String("job_id", jobID))
	err := m.retry(ctx, func() error {
		_, err := m.pipeline.PutJobSuccessResult(ctx, &codepipeline.PutJobSuccessResultInput{
			JobId: aws.String(jobID),
		})
		return err
	})
	if err != nil {
		log.Get().Error("failed to report success", zap.String("job_id", jobID), zap.Error(err))
		return errors.Wrap(err, "report success to CodePipeline")
	}
	return nil
}

// As well as notify CodePipeline of failure
func (m *merger) reportFailure(ctx context.Context, jobID string, message string) {
	log.Get().Warn("reporting failure", zap.String("job_id", jobID), zap.String("message", message))
	err := m.retry(ctx, func() error {
		_, err := m.pipeline.PutJobFailureResult(ctx, &codepipeline.PutJobFailureResultInput{
			JobId: aws.String(jobID),
			FailureDetails: &types.FailureDetails{
				Type:    types.FailureTypeJobFailed,
				Message: aws.String(message),
			},
		})
		return err
	})
	if err != nil {
		log.Get().Error("failed to report failure", zap.String("job_id", jobID), zap.Error(err))
	}
}

func main() {
	ctx := context.Background()
	region := config.Env(config.EnvRegion, "")

	cfg, err := config.LoadAWS(ctx, region)
	if err != nil {
		panic(fmt.Sprintf("failed to load AWS config: %v", err))
	}

	m := &merger{
		s3:           s3.NewFromConfig(cfg),
		pipeline:     codepipeline.NewFromConfig(cfg),
		opener:       config.NewOpener(cfg),
		templateFile: config.Env(config.EnvTemplateFile, "template.json"),
		alarmsFile:   config.Env(config.EnvAlarmsFile, config.DefaultSource),
		source:       config.Env(config.EnvSource, ""),
		region:       region,
	}
	lambda.Start(m.handle)
}
