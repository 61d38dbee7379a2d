package writer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "pontosflow/config"
	"pontosflow/logger"
)

// RunIDMetadataKey is the object metadata entry carrying the export run id.
const RunIDMetadataKey = "run-id"

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads export files to an S3 compatible bucket.
type S3Sink struct {
	client objectPutter
	bucket string
	prefix string
	runID  string
	log    *logger.Log
}

// NewS3Sink configures the AWS SDK from cfg. Static keys are used when both
// are set; otherwise the default credential chain applies.
func NewS3Sink(ctx context.Context, cfg appconfig.S3Config, runID string) (*S3Sink, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return newS3Sink(client, cfg.Bucket, cfg.Prefix, runID), nil
}

func newS3Sink(client objectPutter, bucket, prefix, runID string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
		runID:  runID,
		log:    logger.GetLogger(),
	}
}

// Key returns the object key obj is uploaded under.
func (s *S3Sink) Key(obj Object) string {
	return ObjectKey(s.prefix, obj.VesselID, obj.Day, obj.Name)
}

// Store uploads obj with a single PutObject call.
func (s *S3Sink) Store(ctx context.Context, obj Object) error {
	key := s.Key(obj)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(obj.Data),
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ContentType:   aws.String(contentType(obj.Name)),
	}
	if s.runID != "" {
		input.Metadata = map[string]string{RunIDMetadataKey: s.runID}
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}

	logger.IncrementUpload()
	s.log.WithComponent("s3_sink").WithFields(logger.Fields{
		"bucket": s.bucket,
		"s3_key": key,
		"bytes":  len(obj.Data),
	}).Info("export file uploaded")
	return nil
}
