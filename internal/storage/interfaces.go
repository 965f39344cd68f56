package storage

import "time"

// IStorage holds vehicle photos. Uploads go straight from the browser to the bucket
// through presigned URLs; the API only records object keys.
type IStorage interface {
	GetBucketName() string
	PresignedGetObject(objectPath string) (string, error)
	PresignedPutObject(objectPath string, expiry time.Duration) (string, error)
	StatObject(objectPath string) (map[string]string, error)
	ListObjects(prefix string, maxKeys int32) ([]string, error)
	RemoveObject(objectPath string) error
	RemoveObjects(paths []string) error
}
