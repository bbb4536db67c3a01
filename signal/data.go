package signal

import (
	crypto_rand "crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kevinburke/nacl/box"
	"github.com/meow-io/go-stanza/internal/db"
	"github.com/meow-io/go-stanza/migration"
	"github.com/status-im/doubleratchet"
)

const signedPreKeyID = 1

type localKey struct {
	ID      uint32 `db:"id"`
	PrivKey []byte `db:"priv_key"`
	PubKey  []byte `db:"pub_key"`
}

type preKey struct {
	ID      uint32 `db:"id"`
	PrivKey []byte `db:"priv_key"`
	PubKey  []byte `db:"pub_key"`
}

type session struct {
	Address   string `db:"address"`
	SessionID []byte `db:"session_id"`
	BaseKey   []byte `db:"base_key"`
	CtimeMs   uint64 `db:"ctime_ms"`
}

type senderKey struct {
	GroupID    string `db:"group_id"`
	Author     string `db:"author"`
	KeyID      uint32 `db:"key_id"`
	Iteration  uint32 `db:"iteration"`
	ChainKey   []byte `db:"chain_key"`
	SigningKey []byte `db:"signing_key"`
	CtimeMs    uint64 `db:"ctime_ms"`
}

type doubleratchetKey struct {
	PublicKey      []byte `db:"pub_key"`
	MessageKey     []byte `db:"message_key"`
	MessageNumber  uint   `db:"msg_num"`
	SessionID      []byte `db:"session_id"`
	SequenceNumber uint   `db:"seq_num"`
}

type doubleratchetState struct {
	ID                       []byte `db:"id"`
	Dhr                      []byte `db:"dhr"`
	DhsPub                   []byte `db:"dhs_pub"`
	DhsPriv                  []byte `db:"dhs_priv"`
	RootChKey                []byte `db:"root_ch_key"`
	SendChKey                []byte `db:"send_ch_key"`
	SendChCount              uint32 `db:"send_ch_count"`
	RecvChKey                []byte `db:"recv_ch_key"`
	RecvChCount              uint32 `db:"recv_ch_count"`
	PN                       uint32 `db:"pn"`
	MaxSkip                  uint   `db:"max_skip"`
	HKr                      []byte `db:"hkr"`
	NHKr                     []byte `db:"nhkr"`
	HKs                      []byte `db:"hks"`
	NHKs                     []byte `db:"nhks"`
	MaxKeep                  uint   `db:"max_keep"`
	MaxMessageKeysPerSession int    `db:"mmk_per_session"`
	Step                     uint   `db:"step"`
	KeysCount                uint   `db:"keys_count"`
}

type database struct {
	*db.Database
}

func newDatabase(internalDB *db.Database) (*database, error) {
	d := &database{internalDB}

	if err := internalDB.MigrateNoLock("_signal", []*migration.Migration{
		{
			Name: "Create initial tables",
			Func: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE _local_keys (
						id INTEGER PRIMARY KEY,
						priv_key BLOB NOT NULL,
						pub_key BLOB NOT NULL
					);

					CREATE TABLE _prekeys (
						id INTEGER PRIMARY KEY,
						priv_key BLOB NOT NULL,
						pub_key BLOB NOT NULL
					);

					CREATE TABLE _sessions (
						address STRING PRIMARY KEY,
						session_id BLOB NOT NULL,
						base_key BLOB NOT NULL,
						ctime_ms INTEGER NOT NULL
					);

					CREATE TABLE _doubleratchet_keys (
						pub_key BLOB NOT NULL,
						message_key BLOB NOT NULL,
						msg_num INTEGER NOT NULL,
						session_id BLOB NOT NULL,
						seq_num INTEGER NOT NULL
					);
					CREATE UNIQUE INDEX doubleratchet_keys_pubkey_msg_num on _doubleratchet_keys (pub_key, msg_num);
					CREATE UNIQUE INDEX doubleratchet_keys_session_id_seq_num on _doubleratchet_keys (session_id, seq_num);

					CREATE TABLE _doubleratchet_states (
						id BLOB NOT NULL PRIMARY KEY,
						dhr BLOB,
						dhs_pub BLOB NOT NULL,
						dhs_priv BLOB NOT NULL,
						root_ch_key BLOB NOT NULL,
						send_ch_key BLOB,
						send_ch_count INTEGER NOT NULL,
						recv_ch_key BLOB,
						recv_ch_count INTEGER NOT NULL,
						pn INTEGER NOT NULL,
						max_skip INTEGER NOT NULL,
						hkr BLOB,
						nhkr BLOB,
						hks BLOB,
						nhks BLOB,
						max_keep INTEGER NOT NULL,
						mmk_per_session INTEGER NOT NULL,
						step INTEGER NOT NULL,
						keys_count INTEGER NOT NULL
					);

					CREATE TABLE _sender_keys (
						group_id STRING NOT NULL,
						author STRING NOT NULL,
						key_id INTEGER NOT NULL,
						iteration INTEGER NOT NULL,
						chain_key BLOB NOT NULL,
						signing_key BLOB NOT NULL,
						ctime_ms INTEGER NOT NULL,
						PRIMARY KEY (group_id, author, key_id)
					);

					CREATE TABLE _sender_key_skipped (
						group_id STRING NOT NULL,
						author STRING NOT NULL,
						key_id INTEGER NOT NULL,
						iteration INTEGER NOT NULL,
						message_key BLOB NOT NULL,
						PRIMARY KEY (group_id, author, key_id, iteration),
						FOREIGN KEY (group_id, author, key_id) REFERENCES _sender_keys(group_id, author, key_id) ON DELETE CASCADE
					);
				`)
				return err
			},
		},
		{
			Name: "Generate signed prekey",
			Func: func(tx *sql.Tx) error {
				pub, priv, err := box.GenerateKey(crypto_rand.Reader)
				if err != nil {
					return err
				}
				_, err = tx.Exec("INSERT INTO _local_keys (id, priv_key, pub_key) VALUES (?, ?, ?)", signedPreKeyID, priv[:], pub[:])
				return err
			},
		},
	}); err != nil {
		return nil, err
	}

	return d, nil
}

func (db *database) localKey(id uint32) (*localKey, error) {
	k := &localKey{}
	if err := db.Tx.Get(k, "SELECT * FROM _local_keys WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("signal: error getting local key %d: %w", id, err)
	}
	return k, nil
}

func (db *database) preKey(id uint32) (*preKey, bool, error) {
	k := &preKey{}
	if err := db.Tx.Get(k, "SELECT * FROM _prekeys WHERE id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("signal: error getting prekey %d: %w", id, err)
	}
	return k, true, nil
}

func (db *database) maxPreKeyID() (uint32, error) {
	var id sql.NullInt64
	if err := db.Tx.Get(&id, "SELECT max(id) FROM _prekeys"); err != nil {
		return 0, fmt.Errorf("signal: error getting max prekey id: %w", err)
	}
	return uint32(id.Int64), nil
}

func (db *database) insertPreKey(k *preKey) error {
	if _, err := db.Tx.NamedExec("INSERT INTO _prekeys (id, priv_key, pub_key) VALUES (:id, :priv_key, :pub_key)", k); err != nil {
		return fmt.Errorf("signal: error inserting prekey: %w", err)
	}
	return nil
}

func (db *database) deletePreKey(id uint32) error {
	if _, err := db.Tx.Exec("DELETE FROM _prekeys WHERE id = ?", id); err != nil {
		return fmt.Errorf("signal: error deleting prekey %d: %w", id, err)
	}
	return nil
}

func (db *database) session(address string) (*session, bool, error) {
	s := &session{}
	if err := db.Tx.Get(s, "SELECT * FROM _sessions WHERE address = $1", address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("signal: error getting session for %s: %w", address, err)
	}
	return s, true, nil
}

func (db *database) upsertSession(s *session) error {
	if _, err := db.Tx.NamedExec("INSERT INTO _sessions (address, session_id, base_key, ctime_ms) VALUES (:address, :session_id, :base_key, :ctime_ms) ON CONFLICT(address) DO UPDATE SET session_id = :session_id, base_key = :base_key, ctime_ms = :ctime_ms", s); err != nil {
		return fmt.Errorf("signal: error upserting session: %w", err)
	}
	return nil
}

func (db *database) senderKey(groupID, author string, keyID uint32) (*senderKey, bool, error) {
	sk := &senderKey{}
	if err := db.Tx.Get(sk, "SELECT * FROM _sender_keys WHERE group_id = $1 AND author = $2 AND key_id = $3", groupID, author, keyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("signal: error getting sender key: %w", err)
	}
	return sk, true, nil
}

// insertSenderKey keeps an existing state for the same key id so that a replayed distribution cannot rewind the chain.
func (db *database) insertSenderKey(sk *senderKey) (bool, error) {
	res, err := db.Tx.NamedExec("INSERT INTO _sender_keys (group_id, author, key_id, iteration, chain_key, signing_key, ctime_ms) VALUES (:group_id, :author, :key_id, :iteration, :chain_key, :signing_key, :ctime_ms) ON CONFLICT(group_id, author, key_id) DO NOTHING", sk)
	if err != nil {
		return false, fmt.Errorf("signal: error inserting sender key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (db *database) updateSenderKeyChain(sk *senderKey) error {
	if _, err := db.Tx.NamedExec("UPDATE _sender_keys SET iteration = :iteration, chain_key = :chain_key WHERE group_id = :group_id AND author = :author AND key_id = :key_id", sk); err != nil {
		return fmt.Errorf("signal: error updating sender key: %w", err)
	}
	return nil
}

func (db *database) insertSkippedSenderKey(sk *senderKey, iteration uint32, messageKey []byte) error {
	if _, err := db.Tx.Exec("INSERT INTO _sender_key_skipped (group_id, author, key_id, iteration, message_key) VALUES (?, ?, ?, ?, ?)", sk.GroupID, sk.Author, sk.KeyID, iteration, messageKey); err != nil {
		return fmt.Errorf("signal: error inserting skipped sender key: %w", err)
	}
	return nil
}

// takeSkippedSenderKey returns and removes the stored key for an iteration the chain has already passed.
func (db *database) takeSkippedSenderKey(sk *senderKey, iteration uint32) ([]byte, bool, error) {
	var mk []byte
	if err := db.Tx.Get(&mk, "SELECT message_key FROM _sender_key_skipped WHERE group_id = $1 AND author = $2 AND key_id = $3 AND iteration = $4", sk.GroupID, sk.Author, sk.KeyID, iteration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("signal: error getting skipped sender key: %w", err)
	}
	if _, err := db.Tx.Exec("DELETE FROM _sender_key_skipped WHERE group_id = ? AND author = ? AND key_id = ? AND iteration = ?", sk.GroupID, sk.Author, sk.KeyID, iteration); err != nil {
		return nil, false, fmt.Errorf("signal: error deleting skipped sender key: %w", err)
	}
	return mk, true, nil
}

func (db *database) doubleratchetState(id []byte) (*doubleratchetState, error) {
	s := &doubleratchetState{}
	if err := db.Tx.Get(s, "select * from _doubleratchet_states where id = $1", id); err != nil {
		return nil, fmt.Errorf("signal: error getting doubleratchet_state: %w", err)
	}
	return s, nil
}

func (db *database) upsertDoubleratchetState(s *doubleratchetState) error {
	if _, err := db.Tx.NamedExec("INSERT INTO _doubleratchet_states (id, dhr, dhs_pub, dhs_priv, root_ch_key, send_ch_key, send_ch_count, recv_ch_key, recv_ch_count, pn, max_skip, hkr, nhkr, hks, nhks, max_keep, mmk_per_session, step, keys_count) VALUES (:id, :dhr, :dhs_pub, :dhs_priv, :root_ch_key, :send_ch_key, :send_ch_count, :recv_ch_key, :recv_ch_count, :pn, :max_skip, :hkr, :nhkr, :hks, :nhks, :max_keep, :mmk_per_session, :step, :keys_count) on CONFLICT(id) DO UPDATE SET dhr = :dhr, dhs_pub = :dhs_pub, dhs_priv = :dhs_priv, root_ch_key = :root_ch_key, send_ch_key = :send_ch_key, send_ch_count = :send_ch_count, recv_ch_key = :recv_ch_key, recv_ch_count = :recv_ch_count, pn = :pn, max_skip = :max_skip, hkr = :hkr, nhkr = :nhkr, hks = :hks, nhks = :nhks, max_keep = :max_keep, mmk_per_session = :mmk_per_session, step = :step, keys_count = :keys_count", s); err != nil {
		return fmt.Errorf("signal: error upserting doubleratchet_state: %w", err)
	}
	return nil
}

func (db *database) hasDoubleratchetState(id []byte) (bool, error) {
	var count int
	if err := db.Tx.Get(&count, "SELECT count(*) FROM _doubleratchet_states WHERE id = $1", id); err != nil {
		return false, fmt.Errorf("signal: error checking doubleratchet_state: %w", err)
	}
	return count == 1, nil
}

func (db *database) doubleratchetSessionStorage() doubleratchet.SessionStorage {
	return &sessionStorageImpl{db: db}
}

func (db *database) doubleratchetCrypto() doubleratchet.Crypto {
	return &ratchetCrypto{}
}

func (db *database) doubleratchetKeysStorage(sessionID []byte) doubleratchet.KeysStorage {
	return &keysStorageImpl{sessionID: sessionID, db: db}
}

func (db *database) keyByMsgNum(sessionID []byte, k doubleratchet.Key, msgNum uint) (*doubleratchetKey, bool, error) {
	kr := &doubleratchetKey{}
	err := db.Tx.Get(kr, "SELECT * FROM _doubleratchet_keys WHERE pub_key = ? and msg_num = ? and session_id = ?", k, msgNum, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return kr, true, nil
}

func (db *database) upsertKeyByMsgNum(sessionID []byte, k doubleratchet.Key, msgNum uint, mk doubleratchet.Key, keySeqNum uint) error {
	_, err := db.Tx.Exec("INSERT INTO _doubleratchet_keys (pub_key, message_key, msg_num, session_id, seq_num) VALUES (?, ?, ?, ?, ?)", k, mk, msgNum, sessionID, keySeqNum)
	if err != nil {
		return fmt.Errorf("signal: error upserting key by msgnum: %w", err)
	}
	return nil
}

func (db *database) deleteKeyByMsgNum(sessionID []byte, k doubleratchet.Key, msgNum uint) error {
	_, err := db.Tx.Exec("DELETE FROM _doubleratchet_keys WHERE pub_key = ? and msg_num = ? and session_id = ?", k, msgNum, sessionID)
	if err != nil {
		return fmt.Errorf("signal: error deleting key by msgnum: %w", err)
	}
	return nil
}

func (db *database) deleteOldMks(sessionID []byte, deleteUntilSeqKey uint) error {
	_, err := db.Tx.Exec("DELETE FROM _doubleratchet_keys WHERE session_id = ? and seq_num < ?", sessionID, deleteUntilSeqKey)
	if err != nil {
		return fmt.Errorf("signal: error deleting old keys: %w", err)
	}
	return nil
}

func (db *database) truncateMks(sessionID []byte, maxKeys int) error {
	_, err := db.Tx.Exec("DELETE FROM _doubleratchet_keys where session_id = ? and seq_num not in (select seq_num from _doubleratchet_keys where session_id = ? ORDER BY seq_num DESC LIMIT ?)", sessionID, sessionID, maxKeys)
	if err != nil {
		return fmt.Errorf("signal: error truncating keys: %w", err)
	}
	return nil
}

func (db *database) countKeys(k doubleratchet.Key) (uint, error) {
	counter := &struct {
		Count uint `db:"keys_count"`
	}{Count: 0}
	if err := db.Tx.Get(counter, "SELECT count(*) as keys_count FROM _doubleratchet_keys WHERE pub_key = ?", k); err != nil {
		return 0, fmt.Errorf("signal: error counting keys: %w", err)
	}

	return counter.Count, nil
}
