package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/market-confidence/internal/domain"
)

// testSchema creates all tables needed for testing
const testSchema = `
CREATE TABLE price_history (cache_key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);
CREATE TABLE event_periods (cache_key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL);

CREATE INDEX idx_price_history_expires ON price_history(expires_at);
CREATE INDEX idx_event_periods_expires ON event_periods(expires_at);
`

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func sampleBars() []domain.Bar {
	return []domain.Bar{
		{Date: time.Date(2020, 3, 16, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 9.5, Volume: 1000},
		{Date: time.Date(2020, 3, 17, 0, 0, 0, 0, time.UTC), Open: 9.5, High: 10.5, Low: 9.25, Close: 10.25, Volume: 1200},
	}
}

func TestNewRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	assert.NotNil(t, repo)
}

func TestStore_PriceHistoryUsesMsgpack(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	err := repo.Store(TablePriceHistory, "SPY:1y", sampleBars(), 7*24*time.Hour)
	require.NoError(t, err)

	var blob []byte
	var expiresAt int64
	err = db.QueryRow("SELECT data, expires_at FROM price_history WHERE cache_key = ?", "SPY:1y").Scan(&blob, &expiresAt)
	require.NoError(t, err)

	// msgpack array header, not a JSON bracket
	require.NotEmpty(t, blob)
	assert.NotEqual(t, byte('['), blob[0])

	expectedExpires := time.Now().Add(7 * 24 * time.Hour).Unix()
	assert.InDelta(t, expectedExpires, expiresAt, 5)
}

func TestStore_EventPeriodUsesJSON(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	period := domain.EventPeriod{
		Start: time.Date(2020, 2, 20, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 4, 7, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, repo.Store(TableEventPeriods, "covid-19 crash", period, time.Hour))

	var blob []byte
	err := db.QueryRow("SELECT data FROM event_periods WHERE cache_key = ?", "covid-19 crash").Scan(&blob)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start_date":"2020-02-20","end_date":"2020-04-07"}`, string(blob))
}

func TestStoreUpsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	bars := sampleBars()
	require.NoError(t, repo.Store(TablePriceHistory, "SPY:1y", bars[:1], time.Hour))
	require.NoError(t, repo.Store(TablePriceHistory, "SPY:1y", bars, time.Hour))

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM price_history WHERE cache_key = ?", "SPY:1y").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var got []domain.Bar
	found, err := repo.GetIfFresh(TablePriceHistory, "SPY:1y", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got, 2)
}

func TestGetIfFresh(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TablePriceHistory, "fresh", sampleBars(), time.Hour))
	require.NoError(t, repo.Store(TablePriceHistory, "stale", sampleBars(), -time.Hour))

	t.Run("fresh entry decodes", func(t *testing.T) {
		var got []domain.Bar
		found, err := repo.GetIfFresh(TablePriceHistory, "fresh", &got)
		require.NoError(t, err)
		require.True(t, found)
		require.Len(t, got, 2)
		assert.True(t, got[0].Date.Equal(sampleBars()[0].Date))
		assert.Equal(t, 9.5, got[0].Close)
		assert.Equal(t, 1200.0, got[1].Volume)
	})

	t.Run("expired entry is hidden", func(t *testing.T) {
		var got []domain.Bar
		found, err := repo.GetIfFresh(TablePriceHistory, "stale", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("missing key", func(t *testing.T) {
		var got []domain.Bar
		found, err := repo.GetIfFresh(TablePriceHistory, "missing", &got)
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestGet_ReturnsStaleData(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TablePriceHistory, "stale", sampleBars(), -time.Hour))

	var got []domain.Bar
	found, err := repo.Get(TablePriceHistory, "stale", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got, 2)
}

func TestInvalidTable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	var dest []domain.Bar

	err := repo.Store("users; DROP TABLE price_history", "k", sampleBars(), time.Hour)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")

	_, err = repo.GetIfFresh("unknown", "k", &dest)
	assert.Error(t, err)

	_, err = repo.Get("unknown", "k", &dest)
	assert.Error(t, err)

	assert.Error(t, repo.Delete("unknown", "k"))

	_, err = repo.DeleteExpired("unknown")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	require.NoError(t, repo.Store(TablePriceHistory, "SPY:1y", sampleBars(), time.Hour))

	require.NoError(t, repo.Delete(TablePriceHistory, "SPY:1y"))

	var got []domain.Bar
	found, err := repo.Get(TablePriceHistory, "SPY:1y", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteAllExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)
	period := domain.EventPeriod{Start: time.Now(), End: time.Now()}

	require.NoError(t, repo.Store(TablePriceHistory, "old", sampleBars(), -time.Hour))
	require.NoError(t, repo.Store(TablePriceHistory, "new", sampleBars(), time.Hour))
	require.NoError(t, repo.Store(TableEventPeriods, "old", period, -time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)

	assert.Equal(t, int64(1), results[TablePriceHistory])
	assert.Equal(t, int64(1), results[TableEventPeriods])

	var got []domain.Bar
	found, err := repo.Get(TablePriceHistory, "new", &got)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPriceHistoryTTL(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		end      time.Time
		expected time.Duration
	}{
		{"rolling period", time.Time{}, TTLOpenPriceHistory},
		{"window ended last year", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), TTLClosedPriceHistory},
		{"window ends today", time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), TTLOpenPriceHistory},
		{"window ends in the future", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), TTLOpenPriceHistory},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PriceHistoryTTL(tc.end, now))
		})
	}
}
