package runtime

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
)

// BucketStorage implements Storage on an S3-compatible HTTP endpoint
// (R2, MinIO, a static bucket gateway). Keys map to <endpoint>/<bucket>/<key>.
type BucketStorage struct {
	endpoint    string
	bucket      string
	accessKeyID string
	secretKey   string
	client      *http.Client
}

// BucketConfig holds the connection settings of a BucketStorage.
type BucketConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Bucket      string `yaml:"bucket"`
	AccessKeyID string `yaml:"access_key_id"`
	SecretKey   string `yaml:"secret_key"`
}

// NewBucketStorage creates storage for cfg. A nil client uses
// http.DefaultClient.
func NewBucketStorage(cfg BucketConfig, client *http.Client) (*BucketStorage, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket storage needs an endpoint and a bucket name")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &BucketStorage{
		endpoint:    strings.TrimSuffix(cfg.Endpoint, "/"),
		bucket:      cfg.Bucket,
		accessKeyID: cfg.AccessKeyID,
		secretKey:   cfg.SecretKey,
		client:      client,
	}, nil
}

func (s *BucketStorage) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, strings.TrimPrefix(key, "/"))
}

// authorize uses basic auth; gateways needing SigV4 should sit behind a
// signing proxy.
func (s *BucketStorage) authorize(req *http.Request) {
	if s.accessKeyID != "" && s.secretKey != "" {
		req.SetBasicAuth(s.accessKeyID, s.secretKey)
	}
}

func (s *BucketStorage) do(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	s.authorize(req)
	return s.client.Do(req)
}

func (s *BucketStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.do(ctx, http.MethodGet, s.objectURL(key), nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("bucket GET %s failed: %s", key, resp.Status)
	}
}

func (s *BucketStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.ContentLength = int64(len(data))
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("bucket PUT %s failed: %s", key, resp.Status)
	}
	return nil
}

// List issues a ListObjectsV2 request.
func (s *BucketStorage) List(ctx context.Context, prefix string, delimiter string) (*ListResult, error) {
	q := url.Values{"list-type": {"2"}}
	if prefix != "" {
		q.Set("prefix", prefix)
	}
	if delimiter != "" {
		q.Set("delimiter", delimiter)
	}
	resp, err := s.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s?%s", s.endpoint, s.bucket, q.Encode()), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bucket LIST %q failed: %s", prefix, resp.Status)
	}

	var listing struct {
		Contents []struct {
			Key string `xml:"Key"`
		} `xml:"Contents"`
		CommonPrefixes []struct {
			Prefix string `xml:"Prefix"`
		} `xml:"CommonPrefixes"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode bucket listing: %w", err)
	}

	result := &ListResult{
		Keys:              make([]string, 0, len(listing.Contents)),
		DelimitedPrefixes: make([]string, 0, len(listing.CommonPrefixes)),
	}
	for _, c := range listing.Contents {
		result.Keys = append(result.Keys, c.Key)
	}
	for _, p := range listing.CommonPrefixes {
		result.DelimitedPrefixes = append(result.DelimitedPrefixes, p.Prefix)
	}
	return result, nil
}

func (s *BucketStorage) Delete(ctx context.Context, key string) error {
	resp, err := s.do(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("bucket DELETE %s failed: %s", key, resp.Status)
	}
	return nil
}
