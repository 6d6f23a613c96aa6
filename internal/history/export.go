package history

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgbigquery "github.com/angelmondragon/sagabank-backend/pkg/bigquery"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
)

const (
	defaultExportAttempts = 3
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaximumBackoff = 2 * time.Second
)

// ExportRow mirrors the history_events BigQuery schema.
type ExportRow struct {
	EventID              string    `bigquery:"event_id"`
	TransactionID        string    `bigquery:"transaction_id"`
	AccountNumber        string    `bigquery:"account_number"`
	RelatedAccountNumber *string   `bigquery:"related_account_number"`
	EventType            string    `bigquery:"event_type"`
	TransactionType      string    `bigquery:"transaction_type"`
	TransactionStatus    string    `bigquery:"transaction_status"`
	Amount               string    `bigquery:"amount"`
	PerformedBy          string    `bigquery:"performed_by"`
	PerformedByService   string    `bigquery:"performed_by_service"`
	Details              string    `bigquery:"details"`
	SourceEventID        *string   `bigquery:"source_event_id"`
	RecordedAt           time.Time `bigquery:"recorded_at"`
}

// RetryPolicy controls how many times BigQuery inserts are retried.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryExporter streams history rows into BigQuery with bounded retries.
type BigQueryExporter struct {
	client tableInserter
	table  string
	retry  RetryPolicy
}

func NewBigQueryExporter(client *pkgbigquery.Client, retry RetryPolicy) (*BigQueryExporter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(client.HistoryTable())
	if table == "" {
		return nil, errors.New("history table is required")
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultExportAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = defaultInitialBackoff
	}
	if retry.MaximumBackoff < retry.InitialBackoff {
		retry.MaximumBackoff = max(defaultMaximumBackoff, retry.InitialBackoff)
	}
	return &BigQueryExporter{client: client, table: table, retry: retry}, nil
}

func (e *BigQueryExporter) Export(ctx context.Context, event models.HistoryEvent) error {
	return e.insertWithRetry(ctx, []any{toExportRow(event)})
}

func toExportRow(event models.HistoryEvent) *ExportRow {
	row := &ExportRow{
		EventID:            event.ID.String(),
		TransactionID:      event.TransactionID,
		AccountNumber:      event.AccountNumber,
		EventType:          event.EventType.String(),
		TransactionType:    event.TransactionType.String(),
		TransactionStatus:  event.TransactionStatus.String(),
		Amount:             event.Amount.String(),
		PerformedBy:        event.PerformedBy,
		PerformedByService: event.PerformedByService,
		Details:            event.Details,
		RecordedAt:         event.CreatedAt.UTC(),
	}
	if event.RelatedAccountNumber != "" {
		related := event.RelatedAccountNumber
		row.RelatedAccountNumber = &related
	}
	if event.SourceEventID != nil {
		source := event.SourceEventID.String()
		row.SourceEventID = &source
	}
	return row
}

func (e *BigQueryExporter) insertWithRetry(ctx context.Context, rows []any) error {
	attempts := 0
	backoff := e.retry.InitialBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := e.client.InsertRows(ctx, e.table, rows)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= e.retry.MaxAttempts || !isRetryableBigQueryError(err) {
			return fmt.Errorf("insert %s rows: %w", e.table, err)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*2, e.retry.MaximumBackoff)
	}
}

func isRetryableBigQueryError(err error) bool {
	if err == nil {
		return false
	}

	var pme cbigquery.PutMultiError
	if errors.As(err, &pme) {
		if len(pme) == 0 {
			return false
		}
		for _, rowErr := range pme {
			if !isRetryableBigQueryError(rowErr.Errors) {
				return false
			}
		}
		return true
	}

	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, inner := range multi {
			if !isRetryableBigQueryError(inner) {
				return false
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusRequestTimeout,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var statusErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &statusErr) {
		if st := statusErr.GRPCStatus(); st != nil {
			switch st.Code() {
			case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
				return true
			}
		}
	}
	return false
}
