package dataset

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/merchcat/internal/common"
	"github.com/Veraticus/merchcat/internal/model"
)

func TestReadLabeledCSV(t *testing.T) {
	input := "user_id,Merchant,Category,amount\n" +
		"u1,Starbucks,Dining,4.50\n" +
		"\n" +
		"u1,\"WAL-MART, #5311\",Retail,20.00\n" +
		"u2,  Shell Gas ,Fuel,\n"

	examples, err := ReadLabeledCSV(strings.NewReader(input), "labels.csv")
	require.NoError(t, err)

	assert.Equal(t, []model.TrainingExample{
		{Merchant: "Starbucks", Category: "Dining", Source: "labels.csv"},
		{Merchant: "WAL-MART, #5311", Category: "Retail", Source: "labels.csv"},
		{Merchant: "Shell Gas", Category: "Fuel", Source: "labels.csv"},
	}, examples)
}

func TestReadLabeledCSV_Errors(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantConfig bool
		wantErrMsg string
	}{
		{
			name:       "empty file",
			input:      "",
			wantErrMsg: "file is empty",
		},
		{
			name:       "missing category column",
			input:      "merchant,label\nStarbucks,Dining\n",
			wantErrMsg: `missing required column: "category"`,
		},
		{
			name:       "row without label names its line",
			input:      "merchant,category\nStarbucks,Dining\n\nWalmart,\n",
			wantConfig: true,
			wantErrMsg: `line 4 ("Walmart") has no category`,
		},
		{
			name:       "row without merchant",
			input:      "merchant,category\n,Dining\n",
			wantConfig: true,
			wantErrMsg: "line 2 has no merchant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLabeledCSV(strings.NewReader(tt.input), "test")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErrMsg)
			assert.Equal(t, tt.wantConfig, errors.Is(err, common.ErrConfiguration))
		})
	}
}

func TestReadTransactionsCSV(t *testing.T) {
	input := "user_id,date,merchant,amount,location\n" +
		"1,2024-01-15,STARBUCKS #4412,$4.75,Seattle\n" +
		"1,01/20/2024,Walmart,\"1,204.10\",\n" +
		"1,garbage,Shell,n/a,\n"

	txns, err := ReadTransactionsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txns, 3)

	assert.Equal(t, "STARBUCKS #4412", txns[0].Merchant())
	assert.InDelta(t, 4.75, txns[0].Amount, 1e-9)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), txns[0].Date)

	assert.InDelta(t, 1204.10, txns[1].Amount, 1e-9)
	assert.Equal(t, 20, txns[1].Date.Day())

	assert.Zero(t, txns[2].Amount)
	assert.True(t, txns[2].Date.IsZero())
	assert.NotEmpty(t, txns[2].Hash)
}

func TestReadTransactionsCSV_MerchantOnly(t *testing.T) {
	txns, err := ReadTransactionsCSV(strings.NewReader("merchant\nNetflix\nSpotify\n"))
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "Spotify", txns[1].Merchant())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.50", 12.50},
		{"$1,234.56", 1234.56},
		{"(45.00)", -45},
		{"-3.10", -3.10},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.in), 1e-9)
		})
	}
}

func TestWriteResultsCSV(t *testing.T) {
	txns := []model.Transaction{
		{Name: "Starbucks", Amount: 4.5, Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Name: "Unknown Shop"},
	}
	results := []model.ClassificationResult{
		{Category: "Dining", Confidence: 1, Source: model.SourceCanonicalMatch, MatchedMerchant: "starbucks"},
		{Category: "Retail", Confidence: 0.4321, Source: model.SourceClassifier},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, txns, results))
	assert.Equal(t,
		"date,merchant,amount,category,confidence,source,matched_merchant\n"+
			"2024-02-01,Starbucks,4.50,Dining,1.0000,canonical-match,starbucks\n"+
			",Unknown Shop,0.00,Retail,0.4321,classifier,\n",
		buf.String())

	assert.Error(t, WriteResultsCSV(&buf, txns, results[:1]))
}
