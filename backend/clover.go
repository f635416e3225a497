package backend

import (
	"context"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-cache/types"
	"github.com/saiset-co/sai-cache/utils"
)

type CloverConfig struct {
	// Path is the database directory; empty opens an in-memory store.
	Path       string `json:"path"`
	Collection string `json:"collection"`
}

// CloverBackend keeps entries as documents in an embedded database so
// a cold tier can spill to local disk without leaving the process.
type CloverBackend struct {
	ctx        context.Context
	db         *clover.DB
	config     *CloverConfig
	logger     types.Logger
	collection string
}

func NewCloverBackend(ctx context.Context, config interface{}, logger types.Logger) (*CloverBackend, error) {
	cloverConfig := &CloverConfig{
		Path:       "",
		Collection: "cache_entries",
	}

	if config != nil {
		err := utils.UnmarshalConfig(config, cloverConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal clover backend config")
		}
	}

	var db *clover.DB
	var err error
	if cloverConfig.Path == "" {
		db, err = clover.Open("", clover.InMemoryMode(true))
	} else {
		db, err = clover.Open(cloverConfig.Path)
	}
	if err != nil {
		return nil, types.WrapError(types.ErrBackendConnectionFailed, err.Error())
	}

	exists, err := db.HasCollection(cloverConfig.Collection)
	if err != nil {
		_ = db.Close()
		return nil, types.WrapError(err, "failed to check clover collection")
	}
	if !exists {
		if err := db.CreateCollection(cloverConfig.Collection); err != nil {
			_ = db.Close()
			return nil, types.WrapError(err, "failed to create clover collection")
		}
	}

	return &CloverBackend{
		ctx:        ctx,
		db:         db,
		config:     cloverConfig,
		logger:     logger,
		collection: cloverConfig.Collection,
	}, nil
}

func (c *CloverBackend) Get(key string) (*types.CacheEntry, bool) {
	doc, err := c.query(key).FindFirst()
	if err != nil {
		c.logger.Warn("Clover lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if doc == nil {
		return nil, false
	}

	data, ok := doc.Get("data").(string)
	if !ok {
		return nil, false
	}

	entry, err := decodeEntry([]byte(data))
	if err != nil {
		c.logger.Warn("Failed to decode clover entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return entry, true
}

func (c *CloverBackend) Put(key string, entry *types.CacheEntry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return types.WrapError(err, "failed to encode clover entry")
	}

	if err := c.query(key).Delete(); err != nil {
		return types.WrapError(err, "failed to replace clover entry")
	}

	doc := clover.NewDocument()
	doc.Set("key", key)
	doc.Set("data", string(data))

	return c.db.Insert(c.collection, doc)
}

func (c *CloverBackend) Remove(key string) bool {
	doc, err := c.query(key).FindFirst()
	if err != nil || doc == nil {
		return false
	}

	if err := c.query(key).Delete(); err != nil {
		c.logger.Warn("Clover delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CloverBackend) Keys() []string {
	docs, err := c.db.Query(c.collection).FindAll()
	if err != nil {
		c.logger.Warn("Clover scan failed", zap.Error(err))
		return nil
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if key, ok := doc.Get("key").(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *CloverBackend) Len() int {
	count, err := c.db.Query(c.collection).Count()
	if err != nil {
		return 0
	}
	return count
}

func (c *CloverBackend) Clear() error {
	return c.db.Query(c.collection).Delete()
}

func (c *CloverBackend) Close() error {
	return c.db.Close()
}

func (c *CloverBackend) query(key string) *clover.Query {
	return c.db.Query(c.collection).Where(clover.Field("key").Eq(key))
}
