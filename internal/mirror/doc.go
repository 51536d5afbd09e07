// Package mirror keeps a copy of downloaded dataset files in object storage.
//
// Any gocloud.dev bucket URL works:
//
//	file:///var/cache/crunch
//	mem://
//	s3://my-bucket?region=eu-west-1
//	gs://my-bucket
//
// Push uploads a file unless an object of the same size already exists.
// Pull restores a missing local file from the bucket, which lets a fresh
// machine skip the download; the downloader then only has to verify it.
package mirror
