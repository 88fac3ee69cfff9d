// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("snapshots/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	archive := snapshot.NewArchive(store)
//	info, err := archive.Save(ctx, fsys)
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads through the transfer manager
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
