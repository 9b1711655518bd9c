package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v3"
	"github.com/mukundsahu017-ux/AuroraBridge/pkg/vaa"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storedVaaTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "bridged_db_total_vaas",
		Help: "Total number of signed VAAs added to database",
	})

type Database struct {
	db *badger.DB
}

// Open opens (or creates) a badger database at path.
func Open(path string) (*Database, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{db: db}, nil
}

// OpenInMemory opens a badger database that lives only as long as the process. Used by devnets.
func OpenInMemory() (*Database, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	return &Database{db: db}, nil
}

// MessageID identifies a message by its replay key.
type MessageID struct {
	OriginChain vaa.ChainID
	Nonce       uint64
}

// MessageIDFromString parses a <chain>/<nonce> string into a MessageID.
func MessageIDFromString(s string) (*MessageID, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return nil, errors.New("invalid message id")
	}

	originChain, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid origin chain: %s", err)
	}

	nonce, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %s", err)
	}

	return &MessageID{
		OriginChain: vaa.ChainID(originChain),
		Nonce:       nonce,
	}, nil
}

func MessageIDFromVAA(v *vaa.VAA) *MessageID {
	return &MessageID{
		OriginChain: v.OriginChain,
		Nonce:       v.Nonce,
	}
}

var (
	ErrVAANotFound    = errors.New("requested VAA not found in store")
	ErrDigestMismatch = errors.New("a VAA with the same id but a different digest is already stored")
	ErrCursorNotFound = errors.New("no cursor stored for chain")
)

const (
	signedPrefix    = "signed"
	deliveredPrefix = "delivered"
	cursorPrefix    = "cursor"
)

func (i *MessageID) String() string {
	return fmt.Sprintf("%d/%d", i.OriginChain, i.Nonce)
}

func (i *MessageID) Bytes() []byte {
	return []byte(fmt.Sprintf("%s/%d/%d", signedPrefix, i.OriginChain, i.Nonce))
}

func (i *MessageID) deliveredKey() []byte {
	return []byte(fmt.Sprintf("%s/%d/%d", deliveredPrefix, i.OriginChain, i.Nonce))
}

// ChainPrefixBytes is the key prefix of all signed VAAs originating on the id's chain.
func (i *MessageID) ChainPrefixBytes() []byte {
	return []byte(fmt.Sprintf("%s/%d/", signedPrefix, i.OriginChain))
}

func (d *Database) Close() error {
	return d.db.Close()
}

// StoreSignedVAA persists v. If a VAA with the same id is stored already, the signatures of both are merged as
// long as the signing digests agree.
func (d *Database) StoreSignedVAA(v *vaa.VAA) error {
	if len(v.Signatures) == 0 {
		panic("StoreSignedVAA called for unsigned VAA")
	}

	id := MessageIDFromVAA(v)
	err := d.db.Update(func(txn *badger.Txn) error {
		toStore := v
		item, err := txn.Get(id.Bytes())
		switch {
		case err == nil:
			var existing *vaa.VAA
			if err := item.Value(func(val []byte) error {
				existing, err = vaa.Unmarshal(val)
				return err
			}); err != nil {
				return fmt.Errorf("failed to unmarshal stored VAA %s: %w", id, err)
			}
			if existing.SigningDigest() != v.SigningDigest() {
				return fmt.Errorf("%w: %s", ErrDigestMismatch, id)
			}
			toStore = mergeSignatures(existing, v)
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}

		b, err := toStore.Marshal()
		if err != nil {
			return err
		}
		return txn.Set(id.Bytes(), b)
	})

	if err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	storedVaaTotal.Inc()

	return nil
}

// mergeSignatures returns a copy of a carrying the signatures of a and b, one per guardian key.
func mergeSignatures(a, b *vaa.VAA) *vaa.VAA {
	merged := *a
	merged.Signatures = nil
	seen := make(map[vaa.PubKey]struct{})
	for _, sigs := range [][]*vaa.Signature{a.Signatures, b.Signatures} {
		for _, sig := range sigs {
			if _, ok := seen[sig.GuardianPubKey]; ok {
				continue
			}
			seen[sig.GuardianPubKey] = struct{}{}
			merged.Signatures = append(merged.Signatures, sig)
		}
	}
	return &merged
}

func (d *Database) HasVAA(id MessageID) (bool, error) {
	return d.has(id.Bytes())
}

func (d *Database) GetSignedVAABytes(id MessageID) (b []byte, err error) {
	if err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(id.Bytes())
		if err != nil {
			return err
		}
		b, err = item.ValueCopy(nil)
		return err
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrVAANotFound
		}
		return nil, err
	}
	return
}

func (d *Database) GetSignedVAA(id MessageID) (*vaa.VAA, error) {
	b, err := d.GetSignedVAABytes(id)
	if err != nil {
		return nil, err
	}
	return vaa.Unmarshal(b)
}

// MarkDelivered records that the destination chain accepted the message.
func (d *Database) MarkDelivered(id MessageID) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(id.deliveredKey(), []byte{1})
	})
}

func (d *Database) IsDelivered(id MessageID) (bool, error) {
	return d.has(id.deliveredKey())
}

func (d *Database) has(key []byte) (bool, error) {
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// FindNonceGaps returns the nonces missing between the lowest and highest stored VAA originating on chain.
func (d *Database) FindNonceGaps(chain vaa.ChainID) (resp []uint64, firstNonce uint64, lastNonce uint64, err error) {
	resp = make([]uint64, 0)
	prefix := (&MessageID{OriginChain: chain}).ChainPrefixBytes()

	err = d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		// Keys are ordered lexicographically, not numerically, so collect them first.
		nonces := make(map[uint64]bool)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			nonce, err := strconv.ParseUint(strings.TrimPrefix(key, string(prefix)), 10, 64)
			if err != nil {
				return fmt.Errorf("malformed key %s: %w", key, err)
			}
			nonces[nonce] = true
		}

		first := true
		for k := range nonces {
			if first || k < firstNonce {
				firstNonce = k
			}
			if first || k > lastNonce {
				lastNonce = k
			}
			first = false
		}

		for i := firstNonce; len(nonces) > 0 && i <= lastNonce; i++ {
			if !nonces[i] {
				resp = append(resp, i)
			}
		}

		return nil
	})
	return
}

// Conn returns a pointer to the underlying database connection.
func (d *Database) Conn() *badger.DB {
	return d.db
}
