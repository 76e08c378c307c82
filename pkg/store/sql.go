package store

import (
	"context"
	"database/sql"

	gate "github.com/dogecoinfoundation/paygate/pkg"
	"github.com/dogecoinfoundation/paygate/pkg/doge"
)

// Schema shared by SQLite and Postgres: both accept $N placeholders and
// ON CONFLICT clauses.
const SETUP_SQL string = `
CREATE TABLE IF NOT EXISTS receive_cursor (
	id INTEGER NOT NULL PRIMARY KEY,
	next_index BIGINT NOT NULL
);
INSERT INTO receive_cursor (id, next_index) VALUES (0, 0) ON CONFLICT (id) DO NOTHING;
INSERT INTO receive_cursor (id, next_index) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS receive_address (
	address TEXT NOT NULL PRIMARY KEY,
	key_index BIGINT NOT NULL,
	is_internal BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS utxo (
	txn_id TEXT NOT NULL,
	vout INTEGER NOT NULL,
	value BIGINT NOT NULL,
	script_hex TEXT NOT NULL,
	script_type TEXT NOT NULL,
	script_address TEXT NOT NULL,
	key_index BIGINT NOT NULL,
	is_internal BOOLEAN NOT NULL,
	spend_txid TEXT,
	PRIMARY KEY (txn_id, vout)
);
CREATE INDEX IF NOT EXISTS utxo_unspent_i ON utxo (spend_txid);
`

// interface guard ensures SQLStore implements gate.Store
var _ gate.Store = SQLStore{}

// SQLStore implements gate.Store over database/sql. The driver-specific
// parts are the row-locking clause and error translation.
type SQLStore struct {
	db        *sql.DB
	txOptions *sql.TxOptions
	forUpdate string
	dbErr     func(err error, where string) error
}

func setup(db *sql.DB, dbErr func(error, string) error) error {
	_, err := db.Exec(SETUP_SQL)
	if err != nil {
		return dbErr(err, "creating database schema")
	}
	return nil
}

// Defer this until shutdown
func (s SQLStore) Close() {
	s.db.Close()
}

func cursorID(internal bool) int {
	if internal {
		return 1
	}
	return 0
}

func (s SQLStore) ReserveReceiveAddress(internal bool, derive func(index uint32) (gate.Address, error)) (gate.Address, uint32, error) {
	tx, err := s.db.BeginTx(context.Background(), s.txOptions)
	if err != nil {
		return "", 0, s.dbErr(err, "ReserveReceiveAddress: begin")
	}
	defer tx.Rollback()

	var next int64
	err = tx.QueryRow("SELECT next_index FROM receive_cursor WHERE id = $1"+s.forUpdate, cursorID(internal)).Scan(&next)
	if err != nil {
		return "", 0, s.dbErr(err, "ReserveReceiveAddress: reading cursor")
	}
	if next >= int64(doge.HardenedKeyStart) {
		return "", 0, gate.NewErr(gate.AddressExhausted, "all %d non-hardened key indexes are used", doge.HardenedKeyStart)
	}
	index := uint32(next)
	_, err = tx.Exec("UPDATE receive_cursor SET next_index = $1 WHERE id = $2", next+1, cursorID(internal))
	if err != nil {
		return "", 0, s.dbErr(err, "ReserveReceiveAddress: advancing cursor")
	}

	addr, deriveErr := derive(index)
	if deriveErr == nil {
		_, err = tx.Exec("INSERT INTO receive_address (address, key_index, is_internal) VALUES ($1, $2, $3)", addr, int64(index), internal)
		if err != nil {
			return "", 0, s.dbErr(err, "ReserveReceiveAddress: recording address")
		}
	}
	// the cursor moves past an index that failed to derive
	if err = tx.Commit(); err != nil {
		return "", 0, s.dbErr(err, "ReserveReceiveAddress: commit")
	}
	if deriveErr != nil {
		return "", index, deriveErr
	}
	return addr, index, nil
}

func (s SQLStore) IsReceiveAddress(addr gate.Address) (bool, error) {
	_, _, found, err := s.LookupReceiveAddress(addr)
	return found, err
}

func (s SQLStore) LookupReceiveAddress(addr gate.Address) (uint32, bool, bool, error) {
	var index int64
	var internal bool
	err := s.db.QueryRow("SELECT key_index, is_internal FROM receive_address WHERE address = $1", addr).Scan(&index, &internal)
	if err == sql.ErrNoRows {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, s.dbErr(err, "LookupReceiveAddress")
	}
	return uint32(index), internal, true, nil
}

func (s SQLStore) AddUTXO(u gate.UTXO) error {
	_, err := s.db.Exec(`INSERT INTO utxo (txn_id, vout, value, script_hex, script_type, script_address, key_index, is_internal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (txn_id, vout) DO NOTHING`,
		u.TxID, u.VOut, int64(u.Value), u.ScriptHex, string(u.ScriptType), string(u.ScriptAddress), int64(u.KeyIndex), u.IsInternal)
	if err != nil {
		return s.dbErr(err, "AddUTXO")
	}
	return nil
}

func (s SQLStore) ListUnspentUTXOs() (result []gate.UTXO, err error) {
	rows, err := s.db.Query(`SELECT txn_id, vout, value, script_hex, script_type, script_address, key_index, is_internal
		FROM utxo WHERE spend_txid IS NULL ORDER BY value DESC, txn_id, vout`)
	if err != nil {
		return nil, s.dbErr(err, "ListUnspentUTXOs: querying UTXOs")
	}
	defer rows.Close()
	for rows.Next() {
		var u gate.UTXO
		var value, keyIndex int64
		var scriptType, scriptAddress string
		err := rows.Scan(&u.TxID, &u.VOut, &value, &u.ScriptHex, &scriptType, &scriptAddress, &keyIndex, &u.IsInternal)
		if err != nil {
			return nil, s.dbErr(err, "ListUnspentUTXOs: scanning UTXO row")
		}
		u.Value = gate.Koinu(value)
		u.ScriptType = gate.ScriptType(scriptType)
		u.ScriptAddress = gate.Address(scriptAddress)
		u.KeyIndex = uint32(keyIndex)
		result = append(result, u)
	}
	if err = rows.Err(); err != nil { // docs say this check is required!
		return nil, s.dbErr(err, "ListUnspentUTXOs: querying UTXOs")
	}
	return result, nil
}

func (s SQLStore) SpendUTXOs(inputs []gate.UTXO, txid string, change *gate.UTXO) error {
	tx, err := s.db.BeginTx(context.Background(), s.txOptions)
	if err != nil {
		return s.dbErr(err, "SpendUTXOs: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("UPDATE utxo SET spend_txid = $1 WHERE txn_id = $2 AND vout = $3 AND spend_txid IS NULL")
	if err != nil {
		return s.dbErr(err, "SpendUTXOs: preparing update")
	}
	defer stmt.Close()
	for _, in := range inputs {
		res, err := stmt.Exec(txid, in.TxID, in.VOut)
		if err != nil {
			return s.dbErr(err, "SpendUTXOs: marking spent")
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return gate.NewErr(gate.DBConflict, "SpendUTXOs: %s:%d is unknown or already spent", in.TxID, in.VOut)
		}
	}
	if change != nil {
		_, err = tx.Exec(`INSERT INTO utxo (txn_id, vout, value, script_hex, script_type, script_address, key_index, is_internal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (txn_id, vout) DO NOTHING`,
			change.TxID, change.VOut, int64(change.Value), change.ScriptHex, string(change.ScriptType),
			string(change.ScriptAddress), int64(change.KeyIndex), change.IsInternal)
		if err != nil {
			return s.dbErr(err, "SpendUTXOs: recording change")
		}
	}
	if err = tx.Commit(); err != nil {
		return s.dbErr(err, "SpendUTXOs: commit")
	}
	return nil
}
