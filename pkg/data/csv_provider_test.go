package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oiwatch/market-agents/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVProvider_GetName(t *testing.T) {
	assert.Equal(t, "CSV Provider", NewCSVProvider().GetName())
}

func TestCSVProvider_LoadData(t *testing.T) {
	path := writeTempCSV(t, `datetime,open,high,low,close,volume
2024-01-01 00:00:00,100,110,95,105,5000
2024-01-01 01:00:00,105,112,104,110,6000
`)

	data, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	require.Len(t, data, 2)

	assert.Equal(t, 100.0, data[0].Open)
	assert.Equal(t, 110.0, data[0].High)
	assert.Equal(t, 95.0, data[0].Low)
	assert.Equal(t, 105.0, data[0].Close)
	assert.Equal(t, 5000.0, data[0].Volume)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), data[0].Timestamp)
}

func TestCSVProvider_LoadData_PandasIndexColumn(t *testing.T) {
	path := writeTempCSV(t, `Unnamed: 0,datetime,open,high,low,close,volume
0,2024-01-01 00:00:00,100,110,95,105,5000
`)

	data, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, 105.0, data[0].Close)
}

func TestCSVProvider_LoadData_CaseInsensitiveHeaders(t *testing.T) {
	path := writeTempCSV(t, `Timestamp,Open,High,Low,Close,Volume
2024-01-01,100,110,95,105,5000
`)

	data, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	require.Len(t, data, 1)
}

func TestCSVProvider_LoadData_SkipsBadRows(t *testing.T) {
	path := writeTempCSV(t, `datetime,open,high,low,close,volume
2024-01-01 00:00:00,100,110,95,105,5000
not-a-date,100,110,95,105,5000
2024-01-01 02:00:00,abc,110,95,105,5000
2024-01-01 03:00:00,100,90,95,105,5000
2024-01-01 04:00:00,100,110,95,105,5000
`)

	data, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	// only the first and last rows are valid
	require.Len(t, data, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC), data[1].Timestamp)
}

func TestCSVProvider_LoadData_UnixTimestamps(t *testing.T) {
	path := writeTempCSV(t, `timestamp,open,high,low,close,volume
1704067200,100,110,95,105,5000
1704070800000,105,112,104,110,6000
`)

	data, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), data[0].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), data[1].Timestamp)
}

func TestCSVProvider_LoadData_MissingColumns(t *testing.T) {
	path := writeTempCSV(t, `datetime,open,close
2024-01-01,100,105
`)

	_, err := NewCSVProvider().LoadData(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestCSVProvider_LoadData_FileNotFound(t *testing.T) {
	_, err := NewCSVProvider().LoadData(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestCSVProvider_LoadData_NoUsableRows(t *testing.T) {
	path := writeTempCSV(t, `datetime,open,high,low,close,volume
bad,x,x,x,x,x
`)

	_, err := NewCSVProvider().LoadData(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no usable rows")
}

func TestCSVProvider_ValidateData(t *testing.T) {
	provider := NewCSVProvider()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	valid := []types.OHLCV{
		{Timestamp: base, Open: 100, High: 110, Low: 95, Close: 105, Volume: 1},
		{Timestamp: base.Add(time.Hour), Open: 105, High: 112, Low: 104, Close: 110, Volume: 1},
	}
	assert.NoError(t, provider.ValidateData(valid))

	assert.Error(t, provider.ValidateData(nil))

	negative := []types.OHLCV{{Timestamp: base, Open: -1, High: 110, Low: 95, Close: 105}}
	assert.Error(t, provider.ValidateData(negative))

	inverted := []types.OHLCV{{Timestamp: base, Open: 100, High: 90, Low: 95, Close: 92}}
	assert.Error(t, provider.ValidateData(inverted))

	outOfOrder := []types.OHLCV{
		{Timestamp: base.Add(time.Hour), Open: 100, High: 110, Low: 95, Close: 105},
		{Timestamp: base, Open: 100, High: 110, Low: 95, Close: 105},
	}
	assert.Error(t, provider.ValidateData(outOfOrder))
}
