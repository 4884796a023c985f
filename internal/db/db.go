package db

import (
	"bytes"
	"context"
	"encoding/gob"

	badger "github.com/dgraph-io/badger/v3"
)

var bindingKeyPrefix = []byte("binding/")

type BindingDB interface {
	GetBindings(ctx context.Context) ([]Binding, error)
	SaveBinding(ctx context.Context, binding Binding) error
	DeleteBinding(ctx context.Context, index uint8) error
	DeleteAll(ctx context.Context) error
	Close(ctx context.Context) error
}

func NewBindingDB(dirname string) (BindingDB, error) {
	opt := badger.DefaultOptions(dirname)
	opt.ValueLogFileSize = 1024 * 1024 * 40
	opt.Logger = nil

	db, err := badger.Open(opt)
	if err != nil {
		return nil, err
	}

	return &bindingDB{
		db: db,
	}, nil
}

type bindingDB struct {
	db *badger.DB
}

func bindingKey(index uint8) []byte {
	key := make([]byte, len(bindingKeyPrefix)+1)
	copy(key, bindingKeyPrefix)
	key[len(bindingKeyPrefix)] = index

	return key
}

func decodeBinding(v []byte) (Binding, error) {
	var b Binding
	dec := gob.NewDecoder(bytes.NewReader(v))
	if err := dec.Decode(&b); err != nil {
		return Binding{}, err
	}

	return b, nil
}

func (d *bindingDB) GetBindings(ctx context.Context) ([]Binding, error) {
	var ret []Binding
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = bindingKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				b, err := decodeBinding(v)
				if err != nil {
					return err
				}

				ret = append(ret, b)

				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return ret, nil
}

func (d *bindingDB) SaveBinding(ctx context.Context, binding Binding) error {
	buf := bytes.Buffer{}
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(binding); err != nil {
		return err
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bindingKey(binding.Index), buf.Bytes())
	})
}

func (d *bindingDB) DeleteBinding(ctx context.Context, index uint8) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(bindingKey(index))
	})
}

func (d *bindingDB) DeleteAll(ctx context.Context) error {
	return d.db.DropPrefix(bindingKeyPrefix)
}

func (d *bindingDB) Close(ctx context.Context) error {
	return d.db.Close()
}
