package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/Lingaraj-Patil/farm-yield/store/schema"
)

var (
	testTable = Table{
		Name: "test_table",
		Columns: []Column{
			{Name: "id", Type: Dbigint},
			{Name: "name", Type: Dvarchar},
			{Name: "age", Type: Dinteger},
		},
	}
	testTableWithConflictClause = Table{
		Name: "test_table_conflict",
		Columns: []Column{
			{Name: "id", Type: Dbigint},
			{Name: "name", Type: Dvarchar},
			{Name: "age", Type: Dinteger},
		},
		UpsertClause: OnConflict("id").Set("name", "age"),
	}
)

const (
	expectedVotePrepared = "INSERT INTO harvest.votes (report_id, voter_wallet, decision, comment, tx_signature, created_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (report_id, voter_wallet) DO NOTHING"

	expectedTransactionPreparedWithUpsert = "INSERT INTO harvest.transactions (tx_signature, tx_type, from_wallet, to_wallet, amount, report_id, description, status, block_time, slot, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (tx_signature) DO UPDATE SET (tx_type, from_wallet, to_wallet, amount, description, status, block_time, slot) = ROW(EXCLUDED.tx_type, EXCLUDED.from_wallet, EXCLUDED.to_wallet, EXCLUDED.amount, EXCLUDED.description, EXCLUDED.status, EXCLUDED.block_time, EXCLUDED.slot)"

	expectedTransactionPreparedWithoutUpsert = "INSERT INTO harvest.transactions (tx_signature, tx_type, from_wallet, to_wallet, amount, report_id, description, status, block_time, slot, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) ON CONFLICT (tx_signature) DO NOTHING"
)

func TestTable(t *testing.T) {
	require.Equal(t,
		"INSERT INTO test_table (id, name, age) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		testTable.PreparedInsert(true),
	)
	require.Equal(t,
		"INSERT INTO test_table (id, name, age) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
		testTable.PreparedInsert(false),
	)

	require.Equal(t,
		"INSERT INTO test_table_conflict (id, name, age) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET (name, age) = ROW(EXCLUDED.name, EXCLUDED.age)",
		testTableWithConflictClause.PreparedInsert(true),
	)
	require.Equal(t,
		"INSERT INTO test_table_conflict (id, name, age) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING",
		testTableWithConflictClause.PreparedInsert(false),
	)

	// The vote insert must never upgrade to an update: RowsAffected==0 is
	// how the ledger reports a duplicate.
	require.Equal(t, expectedVotePrepared, TableVote.PreparedInsert(true))
	require.Equal(t, expectedVotePrepared, TableVote.PreparedInsert(false))

	require.Equal(t, expectedTransactionPreparedWithUpsert, TableTransaction.PreparedInsert(true))
	require.Equal(t, expectedTransactionPreparedWithoutUpsert, TableTransaction.PreparedInsert(false))
}
