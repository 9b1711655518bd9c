package db

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
)

func cursorKey(chain vaa.ChainID) []byte {
	return []byte(fmt.Sprintf("%s/%d", cursorPrefix, chain))
}

// StoreCursor persists the poll position of chain's event source. The value is opaque to the database.
func (d *Database) StoreCursor(chain vaa.ChainID, cursor string) error {
	if err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey(chain), []byte(cursor))
	}); err != nil {
		return fmt.Errorf("failed to store cursor for %s: %w", chain, err)
	}
	return nil
}

// GetCursor returns the stored poll position of chain, or ErrCursorNotFound.
func (d *Database) GetCursor(chain vaa.ChainID) (cursor string, err error) {
	err = d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey(chain))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cursor = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrCursorNotFound
	}
	return cursor, err
}
