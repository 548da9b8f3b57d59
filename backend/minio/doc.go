// Package minio provides a backend.Dir implementation using the MinIO client.
//
// MinIO is a high-performance, S3-compatible object storage system. This
// package uses the official MinIO Go client library, so it also works against
// other S3-compatible stores like Ceph, SeaweedFS and Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	root := miniobackend.NewStore(client, "my-bucket", "torrents/")
//	store, err := chunkstore.New(ctx, root, 16*1024, chunkstore.WithFiles(files...))
//
// # Limitations
//
// Object stores have no positional write, so File.WriteAt rewrites the whole
// object. Keep logical files modest in size or use the local backend for
// large payloads.
package minio
