package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Sink archives each event as a JSON object in an S3-compatible bucket.
// Uploads run on a background worker so Append never waits on the network;
// events are dropped when the queue is full or the sink is closed.
type S3Sink struct {
	client     *minio.Client
	bucketName string
	region     string
	log        *log.Logger

	initOnce sync.Once
	initErr  error

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

func NewS3Sink(cfg S3Config, logger *log.Logger) (*S3Sink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	if logger == nil {
		logger = log.Default()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	s := &S3Sink{
		client:     client,
		bucketName: bucket,
		region:     region,
		log:        logger,
		queue:      make(chan Event, 256),
		done:       make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *S3Sink) Append(_ context.Context, ev Event) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Printf("trace s3: sink closed, dropping %s/%s", ev.SessionID, ev.Stage)
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.log.Printf("trace s3: queue full, dropping %s/%s", ev.SessionID, ev.Stage)
	}
}

// Close drains queued events and stops the worker. Later appends are dropped.
func (s *S3Sink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
	return nil
}

func (s *S3Sink) run() {
	defer close(s.done)
	for ev := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.put(ctx, ev); err != nil {
			s.log.Printf("trace s3: put %s/%s failed: %v", ev.SessionID, ev.Stage, err)
		}
		cancel()
	}
}

func (s *S3Sink) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3Sink) put(ctx context.Context, ev Event) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucketName, ObjectKey(ev), bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

// ObjectKey places events under their session, ordered by timestamp.
func ObjectKey(ev Event) string {
	stage := sessionIDSanitizer.ReplaceAllString(strings.TrimSpace(ev.Stage), "_")
	if stage == "" {
		stage = "event"
	}
	ts := sessionIDSanitizer.ReplaceAllString(ev.Timestamp, "_")
	return sanitizeSessionID(ev.SessionID) + "/" + ts + "-" + stage + ".json"
}
