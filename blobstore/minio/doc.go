// Package minio stores snapshot archives in MinIO or another S3-compatible
// server through the MinIO client.
//
//	store, err := minioblob.New(ctx, "localhost:9000", "toyfat",
//	    minioblob.WithCredentials("minioadmin", "minioadmin"),
//	    minioblob.WithPrefix("snapshots/"),
//	    minioblob.WithCreateBucket(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	archive := snapshot.NewArchive(store)
//
// Objects are written in one PutObject call with ContentType. A writer from
// Create buffers until Close, so an abandoned upload leaves no object.
package minio
