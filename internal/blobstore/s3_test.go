package blobstore

import "testing"

func TestNewS3RequiresBucketAndRegion(t *testing.T) {
	if _, err := NewS3(S3Options{Region: "us-east-1"}); err == nil {
		t.Fatal("missing bucket: expected error")
	}
	if _, err := NewS3(S3Options{Bucket: "blobs"}); err == nil {
		t.Fatal("missing region: expected error")
	}

	driver, err := NewS3(S3Options{Bucket: "blobs", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("new s3 driver: %v", err)
	}
	if driver.Kind() != "s3" {
		t.Fatalf("expected kind s3, got %s", driver.Kind())
	}
}

func TestS3ImplementsURLSigner(t *testing.T) {
	driver, err := NewS3(S3Options{Bucket: "blobs", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("new s3 driver: %v", err)
	}
	var d Driver = driver
	if _, ok := d.(URLSigner); !ok {
		t.Fatal("expected the s3 driver to expose the URLSigner capability")
	}
}
