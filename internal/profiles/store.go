// Package profiles persists enriched region profiles in PostgreSQL.
// The stored profile is the prerequisite artifact for standalone
// aggregation and learning runs.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mindthegap/govdata/internal/contracts"
	"github.com/mindthegap/govdata/pkg/database"
	"github.com/mindthegap/govdata/pkg/logger"
)

// Store reads and writes region profiles.
type Store struct {
	db     *database.DB
	logger *logger.Logger
}

// NewStore creates a profile store.
func NewStore(db *database.DB, log *logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithComponent("profiles"),
	}
}

// Save upserts one profile keyed by region code.
func (s *Store) Save(ctx context.Context, profile contracts.RegionProfile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile %s: %w", profile.Identity.Code, err)
	}

	query := `
		INSERT INTO govdata.region_profiles (region_code, profile, enriched_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (region_code)
		DO UPDATE SET profile = EXCLUDED.profile, enriched_at = EXCLUDED.enriched_at
	`
	if _, err := s.db.Pool.Exec(ctx, query, profile.Identity.Code, payload, profile.Identity.EnrichedAt); err != nil {
		return fmt.Errorf("%w: profile upsert failed for %s: %v", contracts.ErrStorageUnavailable, profile.Identity.Code, err)
	}
	return nil
}

// SaveAll upserts every profile, stopping at the first storage error.
func (s *Store) SaveAll(ctx context.Context, profiles []contracts.RegionProfile) error {
	for _, p := range profiles {
		if err := s.Save(ctx, p); err != nil {
			return err
		}
	}
	s.logger.WithField("count", len(profiles)).Debug("Profiles saved")
	return nil
}

// Get returns one stored profile. A region with no stored profile
// returns contracts.ErrRegionNotFound.
func (s *Store) Get(ctx context.Context, regionCode string) (contracts.RegionProfile, error) {
	var payload []byte
	query := `SELECT profile FROM govdata.region_profiles WHERE region_code = $1`
	if err := s.db.Pool.QueryRow(ctx, query, regionCode).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return contracts.RegionProfile{}, fmt.Errorf("%w: %s", contracts.ErrRegionNotFound, regionCode)
		}
		return contracts.RegionProfile{}, fmt.Errorf("%w: profile query failed: %v", contracts.ErrStorageUnavailable, err)
	}

	var profile contracts.RegionProfile
	if err := json.Unmarshal(payload, &profile); err != nil {
		return contracts.RegionProfile{}, fmt.Errorf("failed to unmarshal profile %s: %w", regionCode, err)
	}
	return profile, nil
}

// List returns every stored profile sorted by region code.
func (s *Store) List(ctx context.Context) ([]contracts.RegionProfile, error) {
	query := `SELECT profile FROM govdata.region_profiles ORDER BY region_code`
	rows, err := s.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: profile list failed: %v", contracts.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var profiles []contracts.RegionProfile
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		var profile contracts.RegionProfile
		if err := json.Unmarshal(payload, &profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stored profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: profile rows failed: %v", contracts.ErrStorageUnavailable, err)
	}
	return profiles, nil
}
