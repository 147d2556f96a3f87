// Package s3 stores saved indexes in Amazon S3.
//
// # Usage
//
//	store, err := s3.NewFromEnv(ctx, "my-bucket", "indexes/", s3.WithRegion("eu-central-1"))
//	if err != nil {
//	    return err
//	}
//	err = idx.Publish(ctx, store, "products.anx", persistence.CompressionZSTD)
//
// Uploads stream through the multipart uploader of feature/s3/manager, so
// a file is never buffered whole. Reads use ranged GETs.
package s3
