package handler

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ADORSYS-GIS/postgres-index-cache/cache"
	"github.com/ADORSYS-GIS/postgres-index-cache/notify"
)

type userRow struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func (r userRow) PrimaryKey() uuid.UUID           { return r.ID }
func (r userRow) I64Keys() map[string]*int64      { return nil }
func (r userRow) UUIDKeys() map[string]*uuid.UUID { return nil }

var u1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func newCache(t *testing.T) *cache.IndexCache[userRow] {
	t.Helper()
	c, err := cache.New[userRow](nil)
	require.NoError(t, err)
	return c
}

func TestHandleInsertUpsertsRecord(t *testing.T) {
	c := newCache(t)
	h := New("users", c)

	h.Handle(context.Background(), notify.ChangeEvent{
		Table: "users", Kind: notify.ActionInsert, ID: u1,
		Data: []byte(`{"id":"00000000-0000-0000-0000-000000000001","name":"ada"}`), HasData: true,
	})

	item, ok := c.GetByPrimary(u1)
	require.True(t, ok)
	assert.Equal(t, "ada", item.Name)
}

func TestHandleUpdateUpsertsRecord(t *testing.T) {
	c := newCache(t)
	h := New("users", c)
	c.Add(userRow{ID: u1, Name: "ada"})

	h.Handle(context.Background(), notify.ChangeEvent{
		Table: "users", Kind: notify.ActionUpdate, ID: u1,
		Data: []byte(`{"id":"00000000-0000-0000-0000-000000000001","name":"grace"}`), HasData: true,
	})

	item, ok := c.GetByPrimary(u1)
	require.True(t, ok)
	assert.Equal(t, "grace", item.Name)
}

func TestHandleDeleteRemovesRecord(t *testing.T) {
	c := newCache(t)
	h := New("users", c)
	c.Add(userRow{ID: u1, Name: "ada"})

	h.Handle(context.Background(), notify.ChangeEvent{Table: "users", Kind: notify.ActionDelete, ID: u1})

	assert.False(t, c.ContainsPrimary(u1))
}

func TestHandleDeleteOnAbsentRecordIsNoOp(t *testing.T) {
	c := newCache(t)
	h := New("users", c)

	h.Handle(context.Background(), notify.ChangeEvent{Table: "users", Kind: notify.ActionDelete, ID: u1})

	assert.False(t, c.ContainsPrimary(u1))
}

func TestHandleDropsMalformedRowData(t *testing.T) {
	c := newCache(t)
	h := New("users", c)

	h.Handle(context.Background(), notify.ChangeEvent{
		Table: "users", Kind: notify.ActionInsert, ID: u1,
		Data: []byte(`not json`), HasData: true,
	})

	assert.False(t, c.ContainsPrimary(u1))
}

func TestHandleIsIdempotentUnderRedelivery(t *testing.T) {
	c := newCache(t)
	h := New("users", c)

	event := notify.ChangeEvent{
		Table: "users", Kind: notify.ActionInsert, ID: u1,
		Data: []byte(`{"id":"00000000-0000-0000-0000-000000000001","name":"ada"}`), HasData: true,
	}
	h.Handle(context.Background(), event)
	h.Handle(context.Background(), event)

	assert.Equal(t, 1, c.Len())

	deleteEvent := notify.ChangeEvent{Table: "users", Kind: notify.ActionDelete, ID: u1}
	h.Handle(context.Background(), deleteEvent)
	h.Handle(context.Background(), deleteEvent)

	assert.Equal(t, 0, c.Len())
}

func TestTableName(t *testing.T) {
	h := New("users", newCache(t))
	assert.Equal(t, "users", h.TableName())
}
