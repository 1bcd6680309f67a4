package schema

var TableReport = Table{
	Name: "harvest.reports",
	Columns: []Column{
		{Name: "id", Type: Dvarchar},
		{Name: "short_id", Type: Dvarchar},
		{Name: "owner_wallet", Type: Dvarchar},
		{Name: "crop_type", Type: Dvarchar},
		{Name: "quantity_value", Type: Dnumeric},
		{Name: "quantity_unit", Type: Dvarchar},
		{Name: "latitude", Type: Dnumeric},
		{Name: "longitude", Type: Dnumeric},
		{Name: "district", Type: Dvarchar},
		{Name: "province", Type: Dvarchar},
		{Name: "village", Type: Dvarchar},
		{Name: "images", Type: Djsonb},
		{Name: "metadata", Type: Djsonb},
		{Name: "status", Type: Dvarchar},
		{Name: "approve_votes", Type: Dinteger},
		{Name: "reject_votes", Type: Dinteger},
		{Name: "voters", Type: Djsonb},
		{Name: "verified_by", Type: Dvarchar},
		{Name: "rejection_reason", Type: Dtext},
		{Name: "mint_tx_signature", Type: Dvarchar},
		{Name: "tree_address", Type: Dvarchar},
		{Name: "reward_tx_signature", Type: Dvarchar},
		{Name: "reward_amount", Type: Dnumeric},
		{Name: "version", Type: Dbigint},
		{Name: "created_at", Type: Dtimestamp},
		{Name: "updated_at", Type: Dtimestamp},
	},
	UpsertClause: OnConflict("id"),
}

// TableVote's conflict target is the hard uniqueness constraint closing the
// duplicate-vote race: the insert is always issued and a zero RowsAffected
// result identifies the loser.
var TableVote = Table{
	Name: "harvest.votes",
	Columns: []Column{
		{Name: "report_id", Type: Dvarchar},
		{Name: "voter_wallet", Type: Dvarchar},
		{Name: "decision", Type: Dvarchar},
		{Name: "comment", Type: Dtext},
		{Name: "tx_signature", Type: Dvarchar},
		{Name: "created_at", Type: Dtimestamp},
	},
	UpsertClause: OnConflict("report_id", "voter_wallet"),
}

var TableUser = Table{
	Name: "harvest.users",
	Columns: []Column{
		{Name: "wallet_address", Type: Dvarchar},
		{Name: "username", Type: Dvarchar},
		{Name: "total_reports", Type: Dinteger},
		{Name: "verified_reports", Type: Dinteger},
		{Name: "total_earned", Type: Dnumeric},
		{Name: "reputation_score", Type: Dinteger},
		{Name: "badges", Type: Djsonb},
		{Name: "joined_at", Type: Dtimestamp},
		{Name: "last_active", Type: Dtimestamp},
	},
	UpsertClause: OnConflict("wallet_address"),
}

var TableTransaction = Table{
	Name: "harvest.transactions",
	Columns: []Column{
		{Name: "tx_signature", Type: Dvarchar},
		{Name: "tx_type", Type: Dvarchar},
		{Name: "from_wallet", Type: Dvarchar},
		{Name: "to_wallet", Type: Dvarchar},
		{Name: "amount", Type: Dnumeric},
		{Name: "report_id", Type: Dvarchar},
		{Name: "description", Type: Dtext},
		{Name: "status", Type: Dvarchar},
		{Name: "block_time", Type: Dtimestamp},
		{Name: "slot", Type: Dbigint},
		{Name: "created_at", Type: Dtimestamp},
	},
	UpsertClause: OnConflict("tx_signature").Set(
		"tx_type",
		"from_wallet",
		"to_wallet",
		"amount",
		"description",
		"status",
		"block_time",
		"slot",
	),
}
