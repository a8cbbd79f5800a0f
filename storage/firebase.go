package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

type FirebaseClient struct {
	app    *firebase.App
	bucket string
}

// NewFirebaseClient accepts credentials either as inline JSON or as a file path.
func NewFirebaseClient(ctx context.Context, bucket, credentials string) (*FirebaseClient, error) {
	if bucket == "" {
		return nil, fmt.Errorf("FIREBASE_STORAGE_BUCKET not set")
	}

	var opts []option.ClientOption
	if credentials != "" {
		if strings.HasPrefix(strings.TrimSpace(credentials), "{") {
			log.Println("Using Firebase credentials from environment variable")
			opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
		} else {
			log.Println("Using Firebase credentials from file:", credentials)
			opts = append(opts, option.WithCredentialsFile(credentials))
		}
	} else {
		log.Println("WARNING: GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}

	log.Println("Firebase initialized successfully")
	return &FirebaseClient{app: app, bucket: bucket}, nil
}

func (f *FirebaseClient) handle(ctx context.Context, path string) (*gcs.ObjectHandle, error) {
	client, err := f.app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(f.bucket)
	if err != nil {
		return nil, err
	}
	return bucket.Object(path), nil
}

func (f *FirebaseClient) Upload(ctx context.Context, folder string, r io.Reader, filename, contentType string) (Object, error) {
	path := objectPath(folder, filename)
	obj, err := f.handle(ctx, path)
	if err != nil {
		return Object{}, err
	}

	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return Object{}, err
	}
	if err := wc.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to finalize upload: %w", err)
	}

	// Make object publicly readable so the URL works without authentication
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		log.Printf("WARNING: failed to set public ACL on %s: %v", path, err)
	}

	return Object{URL: firebasePublicURL(f.bucket, path), Path: path}, nil
}

func (f *FirebaseClient) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	obj, err := f.handle(ctx, path)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", path, err)
	}
	log.Printf("Deleted file %s from bucket %s", path, f.bucket)
	return nil
}

func firebasePublicURL(bucket, path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, path)
}
