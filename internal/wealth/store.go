// Package wealth reads wealth-share figures from the curated
// wealth_distribution table. The table is maintained upstream; this
// pipeline only consumes it.
package wealth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/pkg/database"
	"github.com/mindthegap/govdata/pkg/logger"
)

// Store reads wealth records from PostgreSQL.
type Store struct {
	db     *database.DB
	logger *logger.Logger
}

// NewStore creates a wealth store.
func NewStore(db *database.DB, log *logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithComponent("wealth"),
	}
}

// Get returns the latest wealth record for one region.
// A known region with no row returns contracts.ErrRegionNotFound.
func (s *Store) Get(ctx context.Context, regionCode string) (contracts.WealthRecord, error) {
	query := `
		SELECT top_share, bottom_share, gini
		FROM govdata.wealth_distribution
		WHERE region_code = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`

	var record contracts.WealthRecord
	err := s.db.Pool.QueryRow(ctx, query, regionCode).Scan(
		&record.TopShare,
		&record.BottomShare,
		&record.Gini,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contracts.WealthRecord{}, fmt.Errorf("%w: %s", contracts.ErrRegionNotFound, regionCode)
		}
		return contracts.WealthRecord{}, fmt.Errorf("%w: wealth query failed: %v", contracts.ErrStorageUnavailable, err)
	}

	return record, nil
}

// GetAll returns the latest wealth record per region, keyed by region code.
func (s *Store) GetAll(ctx context.Context) (map[string]contracts.WealthRecord, error) {
	query := `
		SELECT DISTINCT ON (region_code) region_code, top_share, bottom_share, gini
		FROM govdata.wealth_distribution
		ORDER BY region_code, recorded_at DESC
	`

	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: wealth query failed: %v", contracts.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	records := make(map[string]contracts.WealthRecord)
	for rows.Next() {
		var code string
		var record contracts.WealthRecord
		if err := rows.Scan(&code, &record.TopShare, &record.BottomShare, &record.Gini); err != nil {
			return nil, fmt.Errorf("failed to scan wealth row: %w", err)
		}
		records[code] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: wealth rows failed: %v", contracts.ErrStorageUnavailable, err)
	}

	s.logger.WithField("count", len(records)).Debug("Loaded wealth records")
	return records, nil
}
