package docstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig selects the Firebase project and its credentials.
// CredentialsJSON (base64) wins over CredentialsFile; with neither set the
// application default credentials are used.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsJSON string
	CredentialsFile string
}

// FirestoreStore is the production driver, backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("firebase credentials file %s: %w", cfg.CredentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

type firestoreSnapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s firestoreSnapshot) ID() string { return s.snap.Ref.ID }

func (s firestoreSnapshot) DataTo(dst any) error {
	if err := s.snap.DataTo(dst); err != nil {
		return fmt.Errorf("docstore: decode %s: %w", s.snap.Ref.ID, err)
	}
	return nil
}

func (f *FirestoreStore) doc(collection, id string) *firestore.DocumentRef {
	return f.client.Collection(collection).Doc(id)
}

func (f *FirestoreStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	snap, err := f.doc(collection, id).Get(ctx)
	if err != nil {
		return nil, translateFirestore(err)
	}
	return firestoreSnapshot{snap: snap}, nil
}

func (f *FirestoreStore) Set(ctx context.Context, collection, id string, v any) error {
	_, err := f.doc(collection, id).Set(ctx, v)
	return translateFirestore(err)
}

func (f *FirestoreStore) Create(ctx context.Context, collection, id string, v any) error {
	_, err := f.doc(collection, id).Create(ctx, v)
	return translateFirestore(err)
}

func (f *FirestoreStore) Query(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	q := f.client.Collection(collection).Query
	for _, flt := range filters {
		q = q.Where(flt.Field, "==", flt.Value)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, translateFirestore(err)
	}
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, firestoreSnapshot{snap: s})
	}
	return out, nil
}

func (f *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var fnErr error
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		fnErr = fn(ctx, &firestoreTx{store: f, tx: tx})
		return fnErr
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return err
	}
	return translateFirestore(err)
}

// Ping reads a sentinel document; a missing document still proves reachability.
func (f *FirestoreStore) Ping(ctx context.Context) error {
	_, err := f.doc("_health", "ping").Get(ctx)
	if err = translateFirestore(err); err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

func (f *FirestoreStore) Close() error { return f.client.Close() }

type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (Snapshot, error) {
	snap, err := t.tx.Get(t.store.doc(collection, id))
	if err != nil {
		return nil, translateFirestore(err)
	}
	return firestoreSnapshot{snap: snap}, nil
}

func (t *firestoreTx) Set(collection, id string, v any) error {
	return translateFirestore(t.tx.Set(t.store.doc(collection, id), v))
}

func (t *firestoreTx) Create(collection, id string, v any) error {
	return translateFirestore(t.tx.Create(t.store.doc(collection, id), v))
}

func translateFirestore(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return ErrNotFound
	case codes.AlreadyExists:
		return ErrAlreadyExists
	case codes.Canceled:
		return context.Canceled
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
