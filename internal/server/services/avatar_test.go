package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/pulse/internal/access"
	sc "github.com/dmitrijs2005/pulse/internal/server/config"
	"github.com/dmitrijs2005/pulse/internal/server/models"
)

func newAvatarService(t *testing.T) (*AvatarService, *fakeRepoManager) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "avatars",
	}
	rm := newFakeRepoManager()
	return NewAvatarService(db, rm, cfg), rm
}

func TestAvatarKey_Layout(t *testing.T) {
	k1 := avatarKey("u-1")
	k2 := avatarKey("u-1")
	if !strings.HasPrefix(k1, "avatars/u-1/") {
		t.Fatalf("unexpected key %q", k1)
	}
	if k1 == k2 {
		t.Fatalf("keys must be unique, got %q twice", k1)
	}
}

func Test_getPresignClient_SuccessAndError(t *testing.T) {
	svc, _ := newAvatarService(t)

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		if len(optFns) == 0 {
			t.Fatalf("expected config options")
		}
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var (
		capturedBaseEndpoint string
		pathStyle            bool
	)
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil {
			t.Fatalf("BaseEndpoint not set")
		}
		capturedBaseEndpoint = *opts.BaseEndpoint
		pathStyle = opts.UsePathStyle
		return &s3.Client{}
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		if c == nil {
			t.Fatalf("nil client passed to presign")
		}
		return &s3.PresignClient{}
	}

	pc, err := svc.getPresignClient(context.Background())
	if err != nil {
		t.Fatalf("getPresignClient err: %v", err)
	}
	if pc == nil {
		t.Fatalf("nil presign client")
	}
	if capturedBaseEndpoint != "http://127.0.0.1:9000" {
		t.Fatalf("BaseEndpoint mismatch: %q", capturedBaseEndpoint)
	}
	if !pathStyle {
		t.Fatalf("path-style addressing not enabled")
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	pc, err = svc.getPresignClient(context.Background())
	if err == nil || err.Error() != "load-fail" {
		t.Fatalf("expected load-fail, got %v (pc=%v)", err, pc)
	}
}

func TestDownloadURL_NoAvatar(t *testing.T) {
	svc, rm := newAvatarService(t)
	u := rm.u.put(models.User{Email: "a@b.c", Role: models.RoleCreator, CreatorStatus: access.StatusDraft})

	if _, err := svc.DownloadURL(context.Background(), u.ID); err == nil {
		t.Fatalf("expected not found")
	}
	if _, err := svc.DownloadURL(context.Background(), "missing"); err == nil {
		t.Fatalf("expected not found for missing user")
	}
}
