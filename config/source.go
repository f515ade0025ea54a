package config

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/30Piraten/sqs-alarms/log"
)

// Source yields the raw bytes of a service file.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// S3GetObjectAPI is the part of the S3 client sources use.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SecretValueAPI is the part of the Secrets Manager client sources use.
type SecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// FileSource reads a local file.
type FileSource struct {
	Path string
}

func (f FileSource) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// S3Source reads one object.
type S3Source struct {
	Client S3GetObjectAPI
	Bucket string
	Key    string
}

func (s S3Source) Read(ctx context.Context) ([]byte, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get s3://%s/%s", s.Bucket, s.Key)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// SecretSource reads the current value of a secret. String secrets are
// returned as is; binary secrets are returned decoded.
type SecretSource struct {
	Client   SecretValueAPI
	SecretID string
}

func (s SecretSource) Read(ctx context.Context) ([]byte, error) {
	out, err := s.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretID),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "get secret %s", s.SecretID)
	}
	if out.SecretString != nil {
		return []byte(*out.SecretString), nil
	}
	return out.SecretBinary, nil
}

const secretsScheme = "secretsmanager://"

// Opener builds sources from URIs. Clients are only needed for the schemes
// that use them.
type Opener struct {
	S3      S3GetObjectAPI
	Secrets SecretValueAPI
}

// NewOpener returns an Opener with clients built from cfg.
func NewOpener(cfg aws.Config) *Opener {
	return &Opener{
		S3:      s3.NewFromConfig(cfg),
		Secrets: secretsmanager.NewFromConfig(cfg),
	}
}

// Open picks a source for uri:
//
//	path/to/serverless.yml, file:///abs/path   local file
//	s3://bucket/key                            S3 object
//	secretsmanager://secret-id                 Secrets Manager secret
func (o *Opener) Open(uri string) (Source, error) {
	if !strings.Contains(uri, "://") {
		return FileSource{Path: uri}, nil
	}
	// secret IDs may be ARNs, which do not parse as URL hosts
	if id, ok := strings.CutPrefix(uri, secretsScheme); ok {
		if id == "" {
			return nil, errors.Errorf("source %q: want secretsmanager://secret-id", uri)
		}
		if o.Secrets == nil {
			return nil, errors.Errorf("source %q: no Secrets Manager client", uri)
		}
		return SecretSource{Client: o.Secrets, SecretID: id}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "parse source %q", uri)
	}
	switch u.Scheme {
	case "file":
		return FileSource{Path: u.Host + u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, errors.Errorf("source %q: want s3://bucket/key", uri)
		}
		if o.S3 == nil {
			return nil, errors.Errorf("source %q: no S3 client", uri)
		}
		return S3Source{Client: o.S3, Bucket: u.Host, Key: key}, nil
	default:
		return nil, errors.Errorf("source %q: unsupported scheme %q", uri, u.Scheme)
	}
}

// Load opens uri, reads it and parses the service file.
func (o *Opener) Load(ctx context.Context, uri string) (*Service, error) {
	src, err := o.Open(uri)
	if err != nil {
		return nil, err
	}
	data, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "source %s", uri)
	}
	log.Get().Debug("loaded alarm configuration",
		zap.String("source", uri),
		zap.Int("groups", len(svc.Groups())))
	return svc, nil
}
