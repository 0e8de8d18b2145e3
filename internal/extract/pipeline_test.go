package extract_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-ledger/internal/extract"
)

// MockModelClient is a func-field mock of extract.ModelClient.
type MockModelClient struct {
	ExtractFunc func(ctx context.Context, chunkText string) (*extract.ModelResponse, error)
	Calls       []string
}

func (m *MockModelClient) Extract(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
	m.Calls = append(m.Calls, chunkText)
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, chunkText)
	}
	return &extract.ModelResponse{Text: "{}"}, nil
}

func newTestPipeline(client extract.ModelClient, opts extract.Options) *extract.Pipeline {
	return extract.NewPipeline(client, opts, zerolog.Nop())
}

func TestPipeline_SingleChunk(t *testing.T) {
	mock := &MockModelClient{
		ExtractFunc: func(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
			return &extract.ModelResponse{
				Text: `{
					"account_details": {"name": "J Perera", "currency": "LKR"},
					"final_balance": 250.00,
					"transactions": {
						"income": [{"date": "01JUN2025", "description": "Salary", "amount": 100.00}],
						"expenses": []
					}
				}`,
				Usage: &extract.Usage{InputTokens: 500, OutputTokens: 50},
			}, nil
		},
	}

	p := newTestPipeline(mock, extract.Options{})
	res, err := p.Extract(context.Background(), "01/06/2025 SALARY 100.00")
	require.NoError(t, err)

	assert.Len(t, mock.Calls, 1)
	assert.Equal(t, "J Perera", res.AccountDetails.Name)
	assert.Equal(t, extract.UnknownValue, res.AccountDetails.AccountNumber)
	assert.Equal(t, "250", res.FinalBalance.String())
	require.NotNil(t, res.Cost)
	assert.Equal(t, int64(500), res.Cost.InputTokens)
}

func TestPipeline_OverlappingChunksDeduplicate(t *testing.T) {
	// Two chunks each report one unique income transaction and one shared
	// expense with an identical (date, description, amount) key.
	responses := []string{
		`{
			"final_balance": 100.00,
			"transactions": {
				"income": [{"date": "01JUN2025", "description": "Salary", "amount": 50000.00}],
				"expenses": [{"date": "02JUN2025", "description": "Utility Bill", "amount": 3500.00}]
			}
		}`,
		`{
			"final_balance": 250.00,
			"transactions": {
				"income": [{"date": "15JUN2025", "description": "Bonus", "amount": 15000.00}],
				"expenses": [{"date": "02JUN2025", "description": "Utility Bill", "amount": 3500.00}]
			}
		}`,
	}

	call := 0
	mock := &MockModelClient{
		ExtractFunc: func(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
			resp := responses[call%len(responses)]
			call++
			return &extract.ModelResponse{Text: resp}, nil
		},
	}

	// Dates and amounts on every line keep the preprocessor from dropping
	// anything, so the chunk arithmetic stays predictable.
	line := "01/06/2025 PAYMENT 10.00\n"
	text := strings.Repeat(line, 20) // 500 bytes

	p := newTestPipeline(mock, extract.Options{MaxChunkSize: 200, ChunkOverlap: 50})
	res, err := p.Extract(context.Background(), text)
	require.NoError(t, err)

	assert.Greater(t, len(mock.Calls), 1)
	assert.Len(t, res.Transactions.Income, 2)
	assert.Len(t, res.Transactions.Expenses, 1)
	assert.Equal(t, "250", res.FinalBalance.String())
}

func TestPipeline_PartialFailureIsAbsorbed(t *testing.T) {
	call := 0
	mock := &MockModelClient{
		ExtractFunc: func(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
			call++
			if call == 1 {
				return nil, errors.New("model API request failed with status 529")
			}
			return &extract.ModelResponse{Text: `{
				"transactions": {"income": [{"date": "01JUN2025", "description": "Salary", "amount": 1.00}], "expenses": []}
			}`}, nil
		},
	}

	text := strings.Repeat("01/06/2025 PAYMENT 10.00\n", 20)
	p := newTestPipeline(mock, extract.Options{MaxChunkSize: 200, ChunkOverlap: 50})

	res, err := p.Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Len(t, res.Transactions.Income, 1)
}

func TestPipeline_ChunkFailuresAreCounted(t *testing.T) {
	call := 0
	mock := &MockModelClient{
		ExtractFunc: func(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
			call++
			if call == 1 {
				return nil, errors.New("model API request failed with status 529")
			}
			return &extract.ModelResponse{Text: "{}"}, nil
		},
	}

	failures := 0
	text := strings.Repeat("01/06/2025 PAYMENT 10.00\n", 20)
	p := newTestPipeline(mock, extract.Options{
		MaxChunkSize:   200,
		ChunkOverlap:   50,
		OnChunkFailure: func() { failures++ },
	})

	_, err := p.Extract(context.Background(), text)
	require.NoError(t, err)
	assert.Greater(t, len(mock.Calls), 1)
	assert.Equal(t, 1, failures)
}

func TestPipeline_AllChunksFailedIsTerminal(t *testing.T) {
	mock := &MockModelClient{
		ExtractFunc: func(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
			return nil, fmt.Errorf("model API request failed with status 401")
		},
	}

	text := strings.Repeat("01/06/2025 PAYMENT 10.00\n", 20)
	p := newTestPipeline(mock, extract.Options{MaxChunkSize: 200, ChunkOverlap: 50})

	res, err := p.Extract(context.Background(), text)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "chunks failed")
}

func TestPipeline_UnparseableReplyFailsChunk(t *testing.T) {
	mock := &MockModelClient{
		ExtractFunc: func(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
			return &extract.ModelResponse{Text: "no json here at all"}, nil
		},
	}

	p := newTestPipeline(mock, extract.Options{})
	_, err := p.Extract(context.Background(), "01/06/2025 PAYMENT 10.00")
	require.Error(t, err)

	var parseErr *extract.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestPipeline_EmptyTextAfterPreprocessing(t *testing.T) {
	p := newTestPipeline(&MockModelClient{}, extract.Options{})
	_, err := p.Extract(context.Background(), "   \n \n")
	require.Error(t, err)
}

func TestPipeline_ChunksProcessedSequentiallyInOrder(t *testing.T) {
	mock := &MockModelClient{
		ExtractFunc: func(ctx context.Context, chunkText string) (*extract.ModelResponse, error) {
			return &extract.ModelResponse{Text: "{}"}, nil
		},
	}

	// Unique lines so each chunk's content appears at exactly one offset.
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "01/06/2025 PAYMENT %04d.00\n", i)
	}
	text := b.String()
	p := newTestPipeline(mock, extract.Options{MaxChunkSize: 300, ChunkOverlap: 100})

	_, err := p.Extract(context.Background(), text)
	require.NoError(t, err)
	require.Greater(t, len(mock.Calls), 2)

	// Each call's text must start at a strictly later offset than the last:
	// chunk order is the assignment order.
	cleaned := extract.CleanStatementText(text)
	lastStart := -1
	for _, chunkText := range mock.Calls {
		start := strings.Index(cleaned, chunkText)
		require.GreaterOrEqual(t, start, 0)
		assert.Greater(t, start, lastStart)
		lastStart = start
	}
}
