package tenantdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dialdesk-ai/dialdesk-admin/pkg/logging"
	"github.com/dialdesk-ai/dialdesk-admin/pkg/models"
)

// InspectTable fetches a row count, a bounded sample, and a best-effort column
// profile for one tenant table. Inspection never fails hard: a caller walking
// forty tables should get one bad entry, not an aborted loop. Only the absence
// of a usable connection (no config, unsupported kind) propagates as an error.
func (m *Manager) InspectTable(ctx context.Context, productID uuid.UUID, tableName string) (*models.TableDetails, error) {
	client, err := m.GetConnection(ctx, productID)
	if err != nil {
		return nil, err
	}

	// Count and sample are independent; fetch both at once. Neither cancels
	// the other on failure.
	var (
		wg        sync.WaitGroup
		count     int64
		countErr  error
		raw       []byte
		sampleErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		count, countErr = countRows(client, tableName)
	}()
	go func() {
		defer wg.Done()
		raw, _, sampleErr = client.From(tableName).
			Select("*", "", false).
			Limit(m.discovery.SampleSize, "").
			Execute()
	}()
	wg.Wait()

	if sampleErr != nil {
		if isRelationNotFound(sampleErr) {
			return &models.TableDetails{
				Name:   tableName,
				Exists: false,
				Error:  "Table not found",
			}, nil
		}
		return &models.TableDetails{
			Name:   tableName,
			Exists: false,
			Error:  logging.SanitizeError(sampleErr),
		}, nil
	}

	if countErr != nil {
		m.logger.Warn("row count fetch failed during inspection",
			zap.String("table", tableName),
			zap.String("error", logging.SanitizeError(countErr)))
		count = 0
	}

	var sample []map[string]any
	if err := json.Unmarshal(raw, &sample); err != nil {
		return &models.TableDetails{
			Name:   tableName,
			Exists: false,
			Error:  fmt.Sprintf("unexpected sample payload: %v", err),
		}, nil
	}

	columns, err := profileFirstRow(raw)
	if err != nil {
		return &models.TableDetails{
			Name:   tableName,
			Exists: false,
			Error:  fmt.Sprintf("unexpected sample payload: %v", err),
		}, nil
	}

	if sample == nil {
		sample = []map[string]any{}
	}

	return &models.TableDetails{
		Name:       tableName,
		Exists:     true,
		RowCount:   count,
		Columns:    columns,
		SampleData: sample,
	}, nil
}

// isRelationNotFound recognizes PostgREST's undefined-table error (SQLSTATE
// 42P01) in the client's flattened error text.
func isRelationNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "42P01") ||
		strings.Contains(strings.ToLower(msg), "does not exist")
}

// profileFirstRow builds column profiles from the first object of a JSON array
// payload, preserving the original key order. The standard map decode loses
// ordering, so this walks the token stream instead. An empty array yields an
// empty profile.
func profileFirstRow(raw []byte) ([]models.ColumnProfile, error) {
	columns := []models.ColumnProfile{}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("expected JSON array, got %v", tok)
	}
	if !dec.More() {
		return columns, nil
	}

	tok, err = dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object row, got %v", tok)
	}

	position := 0
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}

		position++
		columns = append(columns, models.ColumnProfile{
			Name:         key,
			InferredType: inferType(value),
			Nullable:     value == nil,
			SampleValue:  value,
			Position:     position,
		})
	}

	return columns, nil
}
