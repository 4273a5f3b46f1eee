// Package handler adapts a shared cache.IndexCache to the
// listener.Handler capability, binding it to one table.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ADORSYS-GIS/postgres-index-cache/cache"
	"github.com/ADORSYS-GIS/postgres-index-cache/logging"
	"github.com/ADORSYS-GIS/postgres-index-cache/notify"
	"github.com/ADORSYS-GIS/postgres-index-cache/record"
)

// IndexCacheHandler applies decoded ChangeEvents for one table to a
// shared IndexCache. Insert/update events deserialize event.Data into T
// and upsert it; delete events remove by event.ID. Both paths are
// idempotent under redelivery: Add is an upsert and Remove is a no-op on
// an absent key.
type IndexCacheHandler[T record.Record] struct {
	table  string
	cache  *cache.IndexCache[T]
	logger *slog.Logger
}

// New binds table to cache. Events for other tables are never routed
// here by listener.NotificationListener; Handle itself does not check
// event.Table and applies any event it is given by event.Kind and
// event.Data/ID.
func New[T record.Record](table string, c *cache.IndexCache[T]) *IndexCacheHandler[T] {
	return &IndexCacheHandler[T]{table: table, cache: c, logger: logging.Default()}
}

// WithLogger sets the logger used for decode failures and returns the
// receiver for chaining.
func (h *IndexCacheHandler[T]) WithLogger(logger *slog.Logger) *IndexCacheHandler[T] {
	h.logger = logger
	return h
}

// TableName implements listener.Handler.
func (h *IndexCacheHandler[T]) TableName() string {
	return h.table
}

// Handle implements listener.Handler.
func (h *IndexCacheHandler[T]) Handle(_ context.Context, event notify.ChangeEvent) {
	switch event.Kind {
	case notify.ActionInsert, notify.ActionUpdate:
		item, err := unmarshal[T](event.Data)
		if err != nil {
			h.logger.Warn("dropping event: row decode failed",
				"table", h.table, "id", event.ID, "error", fmt.Errorf("%w: %v", ErrHandlerDecode, err))
			return
		}
		h.cache.Add(item)
	case notify.ActionDelete:
		h.cache.Remove(event.ID)
	}
}

func unmarshal[T record.Record](data []byte) (T, error) {
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		var zero T
		return zero, err
	}
	return item, nil
}
