// file: internals/helpers/oss/oss_client.go
package helper

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"schooldesk_backend/internals/constants"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

func getEnv(k string) string { return strings.TrimSpace(os.Getenv(k)) }

// ErrArchiveDisabled is returned by NewArchiveServiceFromEnv when the
// ALI_OSS_* variables are incomplete. Callers fall back to NoopArchiver.
var ErrArchiveDisabled = errors.New("archive disabled: ALI_OSS_ENDPOINT/ACCESS_KEY/SECRET_KEY/BUCKET not set")

// Archiver keeps a copy of uploaded sheets and generated reports. Archiving
// is best effort: callers log a failure and carry on.
type Archiver interface {
	Archive(ctx context.Context, dir, filename string, body []byte) (key string, err error)
}

/* =======================================================================
   OSS
======================================================================= */

type ArchiveService struct {
	Client     *oss.Client
	Bucket     *oss.Bucket
	Endpoint   string
	BucketName string
	Prefix     string // e.g. "archive"

	now func() time.Time
}

func NewArchiveServiceFromEnv(prefix string) (*ArchiveService, error) {
	endpoint := normalizeEndpoint(getEnv("ALI_OSS_ENDPOINT"))
	ak := getEnv("ALI_OSS_ACCESS_KEY")
	sk := getEnv("ALI_OSS_SECRET_KEY")
	sts := getEnv("ALI_OSS_SECURITY_TOKEN")
	bucketName := getEnv("ALI_OSS_BUCKET")
	if endpoint == "" || ak == "" || sk == "" || bucketName == "" {
		return nil, ErrArchiveDisabled
	}

	var (
		client *oss.Client
		err    error
	)
	if sts != "" {
		client, err = oss.New(endpoint, ak, sk, oss.SecurityToken(sts))
	} else {
		client, err = oss.New(endpoint, ak, sk)
	}
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}

	bkt, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("client.Bucket: %w", err)
	}

	if loc, err := client.GetBucketLocation(bucketName); err != nil {
		if se, ok := err.(oss.ServiceError); ok && se.StatusCode == 403 && se.Code == "AccessDenied" {
			log.Printf("[OSS] warn: skip location check due to AccessDenied (bucket=%s). Continuing.", bucketName)
		} else {
			return nil, fmt.Errorf("verify bucket: %w", err)
		}
	} else {
		log.Printf("[OSS] bucket %s location: %s", bucketName, loc)
	}

	return &ArchiveService{
		Client:     client,
		Bucket:     bkt,
		Endpoint:   endpoint,
		BucketName: bucketName,
		Prefix:     strings.Trim(prefix, "/"),
		now:        time.Now,
	}, nil
}

// Archive stores body under <prefix>/<dir>/YYYY/MM/DD/<slug>_<ts>_<rand><ext>
// and returns the object key. Archived files are private and never cached.
func (s *ArchiveService) Archive(ctx context.Context, dir, filename string, body []byte) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("empty body")
	}
	key := buildObjectKey(s.Prefix, dir, filename, s.now())
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(constants.ContentTypeFromExt(filename)),
		oss.ContentDisposition(fmt.Sprintf("attachment; filename=%q", filepath.Base(filename))),
		oss.CacheControl("private, no-store"),
	}
	if err := s.Bucket.PutObject(key, bytes.NewReader(body), opts...); err != nil {
		return "", err
	}
	log.Printf("[OSS] archived %s (%d bytes)", key, len(body))
	return key, nil
}

func (s *ArchiveService) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.Bucket.DeleteObjects(keys, oss.WithContext(ctx), oss.DeleteObjectsQuiet(true))
	return err
}

/* =======================================================================
   Disabled / test doubles
======================================================================= */

type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, string, string, []byte) (string, error) { return "", nil }

// MockArchiver records every call; Err, when set, is returned instead.
type MockArchiver struct {
	Err   error
	Calls []ArchivedFile
}

type ArchivedFile struct {
	Dir      string
	Filename string
	Size     int
}

func (m *MockArchiver) Archive(_ context.Context, dir, filename string, body []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Calls = append(m.Calls, ArchivedFile{Dir: dir, Filename: filename, Size: len(body)})
	return buildObjectKey("test", dir, filename, time.Now()), nil
}

/* =======================================================================
   Key utils
======================================================================= */

func buildObjectKey(prefix, dir, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" {
		base = "file"
	}
	ts := now.Format("20060102_150405")
	name := fmt.Sprintf("%s_%s_%s%s", slugify(base), ts, randHex(3), ext)

	parts := []string{}
	if p := joinParts(prefix, dir); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, now.Format("2006/01/02"), name)
	return strings.Join(parts, "/")
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer(" ", "-", "_", "-", "\u2014", "-", "\u2013", "-")
	s = r.Replace(s)
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return "file"
	}
	return s
}

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func safePart(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "/")
	if s == "" {
		return "unknown"
	}
	return slugify(s)
}

// joinParts slugs each non-empty segment; a segment may itself contain
// slashes ("imports/marks").
func joinParts(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, seg := range strings.Split(p, "/") {
			if strings.TrimSpace(seg) == "" {
				continue
			}
			clean = append(clean, safePart(seg))
		}
	}
	return strings.Join(clean, "/")
}

func normalizeEndpoint(ep string) string {
	ep = strings.TrimSpace(ep)
	if ep == "" {
		return ep
	}
	if strings.HasPrefix(ep, "http://") || strings.HasPrefix(ep, "https://") {
		return ep
	}
	return "https://" + ep
}
