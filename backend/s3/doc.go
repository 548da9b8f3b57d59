// Package s3 provides a backend.Dir implementation on Amazon S3 using the AWS
// SDK for Go v2.
//
// Objects are uploaded through the S3 transfer manager, so large logical
// files are sent as multipart uploads. Deletes are batched with
// DeleteObjects.
//
//	root, err := s3backend.NewFromEnv(ctx, "my-bucket", "torrents/")
//	store, err := chunkstore.New(ctx, root, 16*1024, chunkstore.WithFiles(files...))
package s3
