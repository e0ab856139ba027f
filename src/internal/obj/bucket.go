// Package obj opens object storage buckets for the blob filesystem variant.
package obj

import (
	"context"
	"crypto/tls"
	"net/http"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/blob/s3blob"

	"github.com/crs4/hadoop-galaxy/src/internal/cmdutil"
	"github.com/crs4/hadoop-galaxy/src/internal/errors"
	"github.com/crs4/hadoop-galaxy/src/internal/log"
	"github.com/crs4/hadoop-galaxy/src/internal/promutil"
)

// Bucket represents access to a single object storage bucket.
type Bucket = blob.Bucket

// Supported bucket schemes.
const (
	Amazon = "s3"
	Google = "gs"
	Local  = "fileblob"
	Memory = "mem"
)

// AmazonAdvancedConfiguration contains the S3 client settings read from the environment.
type AmazonAdvancedConfiguration struct {
	Region      string        `env:"HADOOP_GALAXY_S3_REGION"`
	Endpoint    string        `env:"HADOOP_GALAXY_S3_ENDPOINT"`
	DisableSSL  bool          `env:"HADOOP_GALAXY_S3_DISABLE_SSL,default=false"`
	NoVerifySSL bool          `env:"HADOOP_GALAXY_S3_NO_VERIFY_SSL,default=false"`
	Retries     int           `env:"HADOOP_GALAXY_S3_RETRIES,default=10"`
	Timeout     time.Duration `env:"HADOOP_GALAXY_S3_TIMEOUT,default=5m"`
}

// LocalConfiguration configures the fileblob backend.
type LocalConfiguration struct {
	Root string `env:"HADOOP_GALAXY_FILEBLOB_ROOT,default=/tmp/hadoop-galaxy-blob"`
}

func amazonHTTPClient(advancedConfig *AmazonAdvancedConfiguration) *http.Client {
	httpClient := &http.Client{Timeout: advancedConfig.Timeout}
	if advancedConfig.NoVerifySSL {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		httpClient.Transport = transport
	}
	httpClient.Transport = promutil.InstrumentRoundTripper("s3", httpClient.Transport)
	return httpClient
}

func amazonSession(ctx context.Context) (*session.Session, error) {
	advancedConfig := &AmazonAdvancedConfiguration{}
	if err := cmdutil.Populate(advancedConfig); err != nil {
		return nil, errors.Wrap(err, "creating amazon session")
	}
	awsConfig := &aws.Config{
		MaxRetries: aws.Int(advancedConfig.Retries),
		HTTPClient: amazonHTTPClient(advancedConfig),
		DisableSSL: aws.Bool(advancedConfig.DisableSSL),
		Logger:     log.NewAmazonLogger(ctx),
	}
	if advancedConfig.Region != "" {
		awsConfig.Region = aws.String(advancedConfig.Region)
	}
	// Set custom endpoint for a custom deployment.
	if advancedConfig.Endpoint != "" {
		awsConfig.Endpoint = aws.String(advancedConfig.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, "creating amazon session")
	}
	return sess, nil
}

// NewAmazonBucket opens an S3 bucket with credentials from the default AWS credential chain.
func NewAmazonBucket(ctx context.Context, bucket string) (*Bucket, error) {
	sess, err := amazonSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "amazon bucket")
	}
	blobBucket, err := s3blob.OpenBucket(ctx, sess, bucket, nil)
	if err != nil {
		return nil, errors.Wrap(err, "amazon bucket")
	}
	return blobBucket, nil
}

// NewLocalBucket opens a bucket backed by the directory name under the configured fileblob root.
func NewLocalBucket(name string) (*Bucket, error) {
	config := &LocalConfiguration{}
	if err := cmdutil.Populate(config); err != nil {
		return nil, errors.Wrap(err, "local bucket")
	}
	bucket, err := fileblob.OpenBucket(filepath.Join(config.Root, name), &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, errors.Wrap(err, "local bucket")
	}
	return bucket, nil
}

// NewBucket opens the bucket called name using the backend selected by scheme.  Every call to
// NewBucket with the mem scheme returns a new, empty bucket.
func NewBucket(ctx context.Context, scheme, name string) (*Bucket, error) {
	var err error
	var bucket *Bucket
	switch scheme {
	case Amazon:
		bucket, err = NewAmazonBucket(ctx, name)
	case Google:
		bucket, err = blob.OpenBucket(ctx, scheme+"://"+name)
	case Local:
		bucket, err = NewLocalBucket(name)
	case Memory:
		bucket = memblob.OpenBucket(nil)
	default:
		return nil, errors.Errorf("unrecognized storage backend: %s", scheme)
	}
	if err != nil {
		return nil, errors.Wrap(err, "new bucket")
	}
	return bucket, nil
}
