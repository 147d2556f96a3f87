// Package minio stores saved indexes in MinIO or any other S3-compatible
// service (Ceph, Garage, SeaweedFS) through the MinIO client.
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
//	store := minioblob.NewStore(client, "my-bucket", "indexes/")
//	err = idx.Publish(ctx, store, "products.anx", persistence.CompressionLZ4)
//
// Uploads stream with an unknown size, buffering one part at a time; see
// WithPartSize.
package minio
