package state

import (
	"context"
	"os"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ammcore/internal/types"
)

func TestDSN(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: 5433, User: "amm", Password: "secret", DBName: "ammcore", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=amm password=secret dbname=ammcore sslmode=disable", cfg.DSN())
}

func TestRequiresInitializedDB(t *testing.T) {
	saved := DB
	DB = nil
	t.Cleanup(func() { DB = saved })

	require.Error(t, EnsureSchema())
	require.Error(t, DropSchema())
	require.Error(t, TestDBConnection())
	require.Error(t, NewReceiptStore().Record(context.Background(), types.Receipt{ID: "x"}))
	_, err := GetRecentReceipts(5)
	require.Error(t, err)
	_, err = GetReceiptByID("x")
	require.Error(t, err)
	_, err = GetJournalSummary()
	require.Error(t, err)
	_, err = GetCommittedTxCount()
	require.Error(t, err)
	_, err = LoadActiveProtocolParameters("default")
	require.Error(t, err)
}

// withDB connects to the database named by AMMCORE_TEST_DATABASE_URL and resets the schema.
func withDB(t *testing.T) {
	t.Helper()
	url := os.Getenv("AMMCORE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("AMMCORE_TEST_DATABASE_URL not set")
	}
	require.NoError(t, InitDBFromDSN(url))
	t.Cleanup(CloseDB)
	require.NoError(t, DropSchema())
	require.NoError(t, EnsureSchema())
}

func testReceipt(height uint64, sender types.Address, events ...types.Event) types.Receipt {
	return types.Receipt{
		ID:        uuid.New().String(),
		Height:    height,
		Operation: "transfer",
		Sender:    sender,
		Timestamp: time.Date(2024, 1, 1, 0, 0, int(height), 0, time.UTC),
		Success:   true,
		Events:    events,
	}
}

func TestReceiptStoreRoundTrip(t *testing.T) {
	withDB(t)
	ctx := context.Background()
	store := NewReceiptStore()

	ev := types.NewEvent("ledger/TKA", "transfer",
		types.Attr("from", "alice"), types.Attr("to", "bob"), types.Attr("amount", math.NewInt(5)))
	first := testReceipt(1, "alice", ev)
	second := testReceipt(2, "carol")
	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, second))
	// duplicate ids are ignored
	require.NoError(t, store.Record(ctx, first))

	got, err := GetReceiptByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Height, got.Height)
	assert.Equal(t, first.Sender, got.Sender)
	assert.True(t, first.Timestamp.Equal(got.Timestamp))
	require.Len(t, got.Events, 1)
	v, _ := got.Events[0].Get("to")
	assert.Equal(t, "bob", v)

	_, err = GetReceiptByID(uuid.New().String())
	require.ErrorIs(t, err, ErrReceiptNotFound)

	recent, err := GetRecentReceipts(10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	bobs, err := GetReceiptsByAccount("bob", 10)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, first.ID, bobs[0].ID)

	summary, err := GetJournalSummary()
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.TotalReceipts)
	assert.Equal(t, int64(3), summary.CommittedTxs, "the counter counts every successful Record call")
	assert.Equal(t, int64(2), summary.LastHeight)
	assert.Equal(t, int64(2), summary.ByOperation["transfer"])

	require.NoError(t, ResetTxCounter(0))
	n, err := GetCommittedTxCount()
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Error(t, ResetTxCounter(-1))
}

func TestProtocolParametersStore(t *testing.T) {
	withDB(t)

	_, err := LoadActiveProtocolParameters("default")
	require.ErrorIs(t, err, ErrNoActiveParameters)
	id, err := GetActiveProtocolParametersID("default")
	require.NoError(t, err)
	assert.Nil(t, id)

	params := types.ProtocolParameters{
		InitialSupply:     "1000000",
		PoolFeeRateBps:    50,
		PoolMaxFeeRateBps: 1000,
		RewardRate:        "0.01",
		RewardRatePeriod:  time.Hour,
	}
	firstID, err := SaveProtocolParameters(params, "default", 1, true)
	require.NoError(t, err)

	params.PoolFeeRateBps = 30
	secondID, err := SaveProtocolParameters(params, "default", 2, true)
	require.NoError(t, err)
	assert.NotEqual(t, firstID, secondID)

	loaded, err := LoadActiveProtocolParameters("default")
	require.NoError(t, err)
	assert.Equal(t, uint32(30), loaded.PoolFeeRateBps)
	assert.Equal(t, uint32(1000), loaded.PoolMaxFeeRateBps)
	assert.Equal(t, time.Hour, loaded.RewardRatePeriod)
	assert.True(t, math.LegacyMustNewDecFromStr("0.01").Equal(math.LegacyMustNewDecFromStr(loaded.RewardRate)))
	assert.True(t, math.LegacyMustNewDecFromStr("1000000").Equal(math.LegacyMustNewDecFromStr(loaded.InitialSupply)))

	id, err = GetActiveProtocolParametersID("default")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, secondID, *id)

	// same (config, version) is rejected
	_, err = SaveProtocolParameters(params, "default", 2, false)
	require.Error(t, err)
}
