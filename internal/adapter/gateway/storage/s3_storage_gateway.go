package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
)

// S3StorageGateway archives run artifacts in a bucket.
// Layout: s3://<bucket>/<prefix>/runs/<requestID>/<type>/{content,metadata.json}
type S3StorageGateway struct {
	client     S3API
	bucketName string
	prefix     string
	now        func() time.Time
}

// S3Config holds S3 storage gateway configuration
type S3Config struct {
	BucketName string
	Prefix     string
	Region     string // uses the SDK default chain when empty
	Endpoint   string // S3-compatible services such as MinIO
}

// NewS3StorageGateway loads AWS credentials from the default chain
func NewS3StorageGateway(ctx context.Context, cfg S3Config) (*S3StorageGateway, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StorageGatewayWithClient(client, cfg.BucketName, cfg.Prefix), nil
}

// NewS3StorageGatewayWithClient is used with mock clients in tests
func NewS3StorageGatewayWithClient(client S3API, bucketName, prefix string) *S3StorageGateway {
	return &S3StorageGateway{
		client:     client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
		now:        time.Now,
	}
}

func (g *S3StorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	if err := validateSave(req); err != nil {
		return nil, err
	}
	id := artifactID(req.RequestID, req.ArtifactType)
	contentKey := g.key(req.RequestID, string(req.ArtifactType), "content")

	objMeta := map[string]string{
		"artifact-id":   id,
		"request-id":    req.RequestID,
		"artifact-type": string(req.ArtifactType),
	}
	for k, v := range req.Metadata {
		objMeta[k] = v
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(g.bucketName),
		Key:      aws.String(contentKey),
		Body:     bytes.NewReader(req.Content),
		Metadata: objMeta,
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if _, err := g.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("upload to S3: %w", err)
	}

	meta := output.ArtifactMetadata{
		ID:          id,
		RequestID:   req.RequestID,
		Type:        req.ArtifactType,
		StoragePath: fmt.Sprintf("s3://%s/%s", g.bucketName, contentKey),
		ContentType: req.ContentType,
		Size:        int64(len(req.Content)),
		UploadedAt:  g.now().UTC(),
		Metadata:    req.Metadata,
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if _, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucketName),
		Key:         aws.String(g.key(req.RequestID, string(req.ArtifactType), "metadata.json")),
		Body:        bytes.NewReader(metaJSON),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("upload metadata to S3: %w", err)
	}
	return &meta, nil
}

func (g *S3StorageGateway) LoadArtifact(ctx context.Context, id string) (*output.Artifact, error) {
	requestID, typ, err := parseArtifactID(id)
	if err != nil {
		return nil, err
	}
	metaJSON, err := g.get(ctx, g.key(requestID, string(typ), "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta output.ArtifactMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	content, err := g.get(ctx, g.key(requestID, string(typ), "content"))
	if err != nil {
		return nil, err
	}
	return &output.Artifact{ID: id, Content: content, Metadata: meta}, nil
}

func (g *S3StorageGateway) ListArtifacts(ctx context.Context, requestID string) ([]*output.ArtifactMetadata, error) {
	prefix := g.key(requestID) + "/"
	var list []*output.ArtifactMetadata

	paginator := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list S3 objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, "/metadata.json") {
				continue
			}
			raw, err := g.get(ctx, key)
			if err != nil {
				continue
			}
			var meta output.ArtifactMetadata
			if err := json.Unmarshal(raw, &meta); err != nil {
				continue
			}
			list = append(list, &meta)
		}
	}
	return list, nil
}

func (g *S3StorageGateway) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, key)
		}
		return nil, fmt.Errorf("download %s from S3: %w", key, err)
	}
	defer obj.Body.Close()
	b, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (g *S3StorageGateway) key(parts ...string) string {
	return path.Join(append([]string{g.prefix, "runs"}, parts...)...)
}
