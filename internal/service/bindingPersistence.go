package service

import (
	"context"

	"github.com/shimmeringbee/zigbee"
	"github.com/supby/zbinder/internal/bindingtable"
	"github.com/supby/zbinder/internal/db"
	"github.com/supby/zbinder/internal/logger"
)

// BindingPersistence mirrors binding table changes into the binding store.
type BindingPersistence struct {
	table    bindingtable.BindingTable
	database db.BindingDB
	logger   logger.Logger
}

func NewBindingPersistence(table bindingtable.BindingTable, database db.BindingDB, log logger.Logger) *BindingPersistence {
	return &BindingPersistence{
		table:    table,
		database: database,
		logger:   log.WithPrefix("[Binding Persistence]"),
	}
}

// Restore loads the stored bindings into the table and starts mirroring
// subsequent changes.
func (p *BindingPersistence) Restore(ctx context.Context) error {
	stored, err := p.database.GetBindings(ctx)
	if err != nil {
		return err
	}

	entries := make(map[int]bindingtable.Entry, len(stored))
	for _, b := range stored {
		entries[int(b.Index)] = ToEntry(b)
	}

	if err := p.table.Load(entries); err != nil {
		return err
	}

	p.logger.Info("Restored %d bindings", len(entries))

	p.table.SubscribeOnChange(func(ch bindingtable.Change) {
		p.OnChange(ctx, ch)
	})

	return nil
}

func (p *BindingPersistence) OnChange(ctx context.Context, ch bindingtable.Change) {
	var err error

	switch ch.Op {
	case bindingtable.ChangeSet:
		err = p.database.SaveBinding(ctx, FromEntry(ch.Index, ch.Entry))
	case bindingtable.ChangeDelete:
		err = p.database.DeleteBinding(ctx, uint8(ch.Index))
	case bindingtable.ChangeReset:
		err = p.database.DeleteAll(ctx)
	}

	if err != nil {
		p.logger.Error("Failed to persist %v of slot %d: %v", ch.Op, ch.Index, err)
	}
}

func FromEntry(index int, e bindingtable.Entry) db.Binding {
	return db.Binding{
		Index:      uint8(index),
		Type:       uint8(e.Type),
		Local:      uint8(e.Local),
		Remote:     uint8(e.Remote),
		ClusterID:  uint16(e.ClusterID),
		Identifier: e.Identifier,
	}
}

func ToEntry(b db.Binding) bindingtable.Entry {
	return bindingtable.Entry{
		Type:       bindingtable.BindingType(b.Type),
		Local:      zigbee.Endpoint(b.Local),
		Remote:     zigbee.Endpoint(b.Remote),
		ClusterID:  zigbee.ClusterID(b.ClusterID),
		Identifier: b.Identifier,
	}
}
