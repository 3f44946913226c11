package s3

import (
	"io"
	"os"
	"time"

	"flowform/session"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

const FetchURLExpiration = 10 * time.Minute

var (
	AttachmentBucket *oss.Bucket

	GetObjectFunc     func(string, *session.Session, ...oss.Option) (io.ReadCloser, error)
	PutObjectFunc     func(string, io.Reader, *session.Session, ...oss.Option) error
	DeleteObjectFunc  func(string, *session.Session, ...oss.Option) error
	IsObjectExistFunc func(string, *session.Session) (bool, error)
	SignFetchURLFunc  func(string, *session.Session) (string, error)
)

func Bootstrap() {
	var err error
	AttachmentBucket, err = BuildBucketFromEnv()
	if err != nil {
		panic(err)
	}

	GetObjectFunc = GetObject
	PutObjectFunc = PutObject
	DeleteObjectFunc = DeleteObject
	IsObjectExistFunc = IsObjectExist
	SignFetchURLFunc = SignFetchURL
}

func BuildBucketFromEnv() (*oss.Bucket, error) {
	endpoint := os.ExpandEnv(os.Getenv("OSS_ENDPOINT"))
	if endpoint == "" {
		endpoint = "dummy"
	}
	accessKey := os.Getenv("OSS_ACCESS_KEY")
	secretKey := os.Getenv("OSS_SECRET_KEY")
	bucket := os.Getenv("OSS_BUCKET")
	if bucket == "" {
		bucket = "flowform"
	}
	return BuildBucket(endpoint, accessKey, secretKey, bucket)
}

func BuildBucket(endpoint, accesskey, secretKey, bucketName string) (*oss.Bucket, error) {
	// endpoint http://oss-cn-hangzhou.aliyuncs.com
	cli, err := oss.New(endpoint, accesskey, secretKey, oss.HTTPClient(nil))
	if err != nil {
		return nil, err
	}

	bucket, err := cli.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// IsNoSuchKey reports whether err is the object-absent service error.
func IsNoSuchKey(err error) bool {
	serErr, ok := err.(oss.ServiceError)
	return ok && serErr.Code == "NoSuchKey"
}

func GetObject(key string, s *session.Session, opts ...oss.Option) (io.ReadCloser, error) {
	childSpan := startChildSpan("get-object", key, s)
	r, err := AttachmentBucket.GetObject(key, opts...)
	finishChildSpan(childSpan, err)
	return r, err
}

func PutObject(key string, r io.Reader, s *session.Session, opts ...oss.Option) error {
	childSpan := startChildSpan("put-object", key, s)
	err := AttachmentBucket.PutObject(key, r, opts...)
	finishChildSpan(childSpan, err)
	return err
}

func DeleteObject(key string, s *session.Session, opts ...oss.Option) error {
	childSpan := startChildSpan("delete-object", key, s)
	err := AttachmentBucket.DeleteObject(key, opts...)
	finishChildSpan(childSpan, err)
	return err
}

func IsObjectExist(key string, s *session.Session) (bool, error) {
	childSpan := startChildSpan("head-object", key, s)
	exist, err := AttachmentBucket.IsObjectExist(key)
	finishChildSpan(childSpan, err)
	return exist, err
}

func SignFetchURL(key string, s *session.Session) (string, error) {
	childSpan := startChildSpan("sign-fetch-url", key, s)
	url, err := AttachmentBucket.SignURL(key, oss.HTTPGet, int64(FetchURLExpiration/time.Second))
	finishChildSpan(childSpan, err)
	return url, err
}

func startChildSpan(name, key string, s *session.Session) *opentracing.Span {
	if s == nil || s.Context == nil {
		return nil
	}
	parentSpan := opentracing.SpanFromContext(s.Context)
	if parentSpan == nil {
		return nil
	}
	tracer := parentSpan.Tracer()
	sp := tracer.StartSpan(name, opentracing.ChildOf(parentSpan.Context()))
	sp.SetTag("object-key", key)
	return &sp
}

func finishChildSpan(span *opentracing.Span, err error) {
	if span == nil {
		return
	}
	ext.Error.Set(*span, err != nil)
	(*span).Finish()
}
