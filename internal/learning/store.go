package learning

import (
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	productBucketName = "product_categories"
	commentBucketName = "comment_categories"

	// maxCommentKeyLen keeps free-form comments from polluting the store:
	// anything longer is a sentence, not a recallable keyword.
	maxCommentKeyLen = 50
)

// Store defines the interface for learned category mappings
type Store interface {
	// ProductCategory looks up the learned category for a product name
	ProductCategory(name string) (string, bool)

	// LearnProduct remembers the category for a product name
	LearnProduct(name, category string) error

	// CommentCategory looks up the learned category for a comment keyword
	CommentCategory(comment string) (string, bool)

	// LearnComment remembers the category for a comment keyword
	LearnComment(comment, category string) error

	// Close closes the store
	Close() error
}

// BoltStore implements the Store interface using BoltDB
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore instance
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(productBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(commentBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// normalizeKey folds a product name or comment into its lookup key.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (b *BoltStore) get(bucket, key string) (string, bool) {
	var value []byte
	b.db.View(func(tx *bbolt.Tx) error {
		value = tx.Bucket([]byte(bucket)).Get([]byte(key))
		return nil
	})
	if value == nil {
		return "", false
	}
	return string(value), true
}

func (b *BoltStore) put(bucket, key, value string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put([]byte(key), []byte(value))
	})
}

// ProductCategory looks up the learned category for a product name
func (b *BoltStore) ProductCategory(name string) (string, bool) {
	key := normalizeKey(name)
	if key == "" {
		return "", false
	}
	return b.get(productBucketName, key)
}

// LearnProduct remembers the category for a product name. Relearning the
// same product overwrites the previous category.
func (b *BoltStore) LearnProduct(name, category string) error {
	key := normalizeKey(name)
	if key == "" {
		return nil
	}
	return b.put(productBucketName, key, category)
}

// CommentCategory looks up the learned category for a comment keyword
func (b *BoltStore) CommentCategory(comment string) (string, bool) {
	key := normalizeKey(comment)
	if key == "" || len([]rune(key)) > maxCommentKeyLen {
		return "", false
	}
	return b.get(commentBucketName, key)
}

// LearnComment remembers the category for a comment keyword. Long comments
// are skipped silently.
func (b *BoltStore) LearnComment(comment, category string) error {
	key := normalizeKey(comment)
	if key == "" || len([]rune(key)) > maxCommentKeyLen {
		return nil
	}
	return b.put(commentBucketName, key, category)
}

// Close closes the store
func (b *BoltStore) Close() error {
	return b.db.Close()
}
