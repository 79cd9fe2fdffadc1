package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
)

// TripStore implements store.TripStore on PostgreSQL.
type TripStore struct {
	db DB
}

var _ store.TripStore = (*TripStore)(nil)

// NewTripStore creates a PostgreSQL trip store.
func NewTripStore(db DB) *TripStore {
	return &TripStore{db: db}
}

func (s *TripStore) CreateTrip(ctx context.Context, trip *types.SharedTrip) (string, error) {
	log := logger.GetLogger()

	err := WithTx(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
            INSERT INTO trips (id, name, destination, start_date, end_date, owner_id, shareable_link)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			trip.ID,
			trip.Name,
			trip.Destination,
			trip.StartDate,
			trip.EndDate,
			trip.OwnerID,
			trip.ShareableLink,
		)
		if err != nil {
			return fmt.Errorf("failed to insert trip: %w", err)
		}

		if err := replaceActivitiesTx(ctx, tx, trip.ID, trip.Activities); err != nil {
			return err
		}

		for _, c := range trip.Collaborators {
			if err := insertCollaboratorTx(ctx, tx, &c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorw("CreateTrip transaction failed", "tripId", trip.ID, "error", err)
		return "", err
	}

	return trip.ID, nil
}

func (s *TripStore) GetTrip(ctx context.Context, id string) (*types.SharedTrip, error) {
	var trip types.SharedTrip
	err := s.db.QueryRow(ctx, `
        SELECT id, name, destination, start_date, end_date, owner_id, shareable_link, created_at, updated_at
        FROM trips
        WHERE id = $1`, id).Scan(
		&trip.ID,
		&trip.Name,
		&trip.Destination,
		&trip.StartDate,
		&trip.EndDate,
		&trip.OwnerID,
		&trip.ShareableLink,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get trip %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query trip %s: %w", id, err)
	}

	activities, err := s.loadActivities(ctx, id)
	if err != nil {
		return nil, err
	}
	trip.Activities = activities

	collaborators, err := s.loadCollaborators(ctx, id)
	if err != nil {
		return nil, err
	}
	trip.Collaborators = collaborators

	return &trip, nil
}

func (s *TripStore) UpdateTripActivities(ctx context.Context, tripID string, activities []types.Activity) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := replaceActivitiesTx(ctx, tx, tripID, activities); err != nil {
			return err
		}
		return bumpTripUpdatedAtTx(ctx, tx, tripID)
	})
}

func (s *TripStore) GetCollaborator(ctx context.Context, tripID, userID string) (*types.Collaborator, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, trip_id, user_id, email, display_name, role, status, added_at
        FROM trip_collaborators
        WHERE trip_id = $1 AND user_id = $2
        ORDER BY (status = 'ACTIVE') DESC, added_at DESC
        LIMIT 1`, tripID, userID)

	var c types.Collaborator
	err := row.Scan(&c.ID, &c.TripID, &c.UserID, &c.Email, &c.DisplayName, &c.Role, &c.Status, &c.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get collaborator %s on trip %s: %w", userID, tripID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query collaborator: %w", err)
	}
	return &c, nil
}

func (s *TripStore) UpdateCollaboratorRole(ctx context.Context, tripID, userID string, role types.CollaboratorRole) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := updateCollaboratorRoleTx(ctx, tx, tripID, userID, role); err != nil {
			return err
		}
		return bumpTripUpdatedAtTx(ctx, tx, tripID)
	})
}

func (s *TripStore) SetCollaboratorStatus(ctx context.Context, tripID, userID string, status types.CollaboratorStatus) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE trip_collaborators SET status = $3
            WHERE trip_id = $1 AND user_id = $2`, tripID, userID, string(status))
		if err != nil {
			return fmt.Errorf("failed to update collaborator status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("set status for collaborator %s: %w", userID, store.ErrNotFound)
		}
		return bumpTripUpdatedAtTx(ctx, tx, tripID)
	})
}

func (s *TripStore) SetShareableLink(ctx context.Context, tripID, link string) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE trips
        SET shareable_link = $2,
            updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
        WHERE id = $1`, tripID, link)
	if err != nil {
		return fmt.Errorf("failed to set shareable link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set shareable link for trip %s: %w", tripID, store.ErrNotFound)
	}
	return nil
}

// --- shared transaction helpers ---

// bumpTripUpdatedAtTx advances the trip's version timestamp. The GREATEST
// keeps updated_at strictly increasing even when two mutations land within
// clock resolution.
func bumpTripUpdatedAtTx(ctx context.Context, tx pgx.Tx, tripID string) error {
	tag, err := tx.Exec(ctx, `
        UPDATE trips
        SET updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
        WHERE id = $1`, tripID)
	if err != nil {
		return fmt.Errorf("failed to bump trip updated_at: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bump updated_at for trip %s: %w", tripID, store.ErrNotFound)
	}
	return nil
}

// replaceActivitiesTx swaps the trip's full activity list. The list is small
// (an itinerary), so delete-and-reinsert keeps ordering handling trivial.
func replaceActivitiesTx(ctx context.Context, tx pgx.Tx, tripID string, activities []types.Activity) error {
	if _, err := tx.Exec(ctx, `DELETE FROM activities WHERE trip_id = $1`, tripID); err != nil {
		return fmt.Errorf("failed to clear activities: %w", err)
	}

	for i, a := range activities {
		var durationSeconds *int64
		if a.Duration != nil {
			secs := int64(a.Duration.Seconds())
			durationSeconds = &secs
		}
		var budgetAmount, budgetCurrency *string
		if a.Budget != nil {
			amount := a.Budget.Amount.String()
			budgetAmount = &amount
			budgetCurrency = &a.Budget.Currency
		}
		var locAddress *string
		var locLat, locLng *float64
		if a.Location != nil {
			locAddress = &a.Location.Address
			locLat = a.Location.Latitude
			locLng = a.Location.Longitude
		}

		_, err := tx.Exec(ctx, `
            INSERT INTO activities (
                id, trip_id, title, description, activity_type,
                start_time, end_time, duration_seconds,
                budget_amount, budget_currency,
                location_address, location_latitude, location_longitude,
                checked_in, sort_order
            )
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			a.ID,
			tripID,
			a.Title,
			a.Description,
			string(a.Type),
			a.StartTime,
			a.EndTime,
			durationSeconds,
			budgetAmount,
			budgetCurrency,
			locAddress,
			locLat,
			locLng,
			a.CheckedIn,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert activity %s: %w", a.ID, err)
		}
	}
	return nil
}

func insertCollaboratorTx(ctx context.Context, tx pgx.Tx, c *types.Collaborator) error {
	addedAt := c.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO trip_collaborators (id, trip_id, user_id, email, display_name, role, status, added_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.TripID, c.UserID, c.Email, c.DisplayName, string(c.Role), string(c.Status), addedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("collaborator %s already active on trip %s: %w", c.UserID, c.TripID, store.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert collaborator: %w", err)
	}
	return nil
}

func updateCollaboratorRoleTx(ctx context.Context, tx pgx.Tx, tripID, userID string, role types.CollaboratorRole) error {
	tag, err := tx.Exec(ctx, `
        UPDATE trip_collaborators SET role = $3
        WHERE trip_id = $1 AND user_id = $2 AND status = 'ACTIVE'`,
		tripID, userID, string(role))
	if err != nil {
		return fmt.Errorf("failed to update collaborator role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update role for collaborator %s: %w", userID, store.ErrNotFound)
	}
	return nil
}

// upsertCollaboratorTx inserts the collaborator entry, or re-activates an
// inactive one for the same user, keeping at most one active entry per user.
func upsertCollaboratorTx(ctx context.Context, tx pgx.Tx, c *types.Collaborator) error {
	tag, err := tx.Exec(ctx, `
        UPDATE trip_collaborators
        SET email = $3, display_name = $4, role = $5, status = 'ACTIVE'
        WHERE trip_id = $1 AND user_id = $2`,
		c.TripID, c.UserID, c.Email, c.DisplayName, string(c.Role))
	if err != nil {
		return fmt.Errorf("failed to upsert collaborator: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return insertCollaboratorTx(ctx, tx, c)
}

func (s *TripStore) loadActivities(ctx context.Context, tripID string) ([]types.Activity, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, trip_id, title, description, activity_type,
               start_time, end_time, duration_seconds,
               budget_amount::text, budget_currency,
               location_address, location_latitude, location_longitude,
               checked_in
        FROM activities
        WHERE trip_id = $1
        ORDER BY sort_order`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var activities []types.Activity
	for rows.Next() {
		var a types.Activity
		var activityType string
		var durationSeconds sql.NullInt64
		var budgetAmount, budgetCurrency, locAddress sql.NullString
		var locLat, locLng sql.NullFloat64

		err := rows.Scan(
			&a.ID, &a.TripID, &a.Title, &a.Description, &activityType,
			&a.StartTime, &a.EndTime, &durationSeconds,
			&budgetAmount, &budgetCurrency,
			&locAddress, &locLat, &locLng,
			&a.CheckedIn,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		a.Type = types.ActivityType(activityType)
		if durationSeconds.Valid {
			d := time.Duration(durationSeconds.Int64) * time.Second
			a.Duration = &d
		}
		if budgetAmount.Valid && budgetCurrency.Valid {
			amount, err := decimal.NewFromString(budgetAmount.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse budget amount %q: %w", budgetAmount.String, err)
			}
			a.Budget = &types.Budget{Amount: amount, Currency: budgetCurrency.String}
		}
		if locAddress.Valid {
			loc := &types.Location{Address: locAddress.String}
			if locLat.Valid {
				loc.Latitude = &locLat.Float64
			}
			if locLng.Valid {
				loc.Longitude = &locLng.Float64
			}
			a.Location = loc
		}

		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return activities, nil
}

func (s *TripStore) loadCollaborators(ctx context.Context, tripID string) (map[string]types.Collaborator, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, trip_id, user_id, email, display_name, role, status, added_at
        FROM trip_collaborators
        WHERE trip_id = $1
        ORDER BY added_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborators: %w", err)
	}
	defer rows.Close()

	collaborators := make(map[string]types.Collaborator)
	for rows.Next() {
		var c types.Collaborator
		if err := rows.Scan(&c.ID, &c.TripID, &c.UserID, &c.Email, &c.DisplayName, &c.Role, &c.Status, &c.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		// Active entries win over stale inactive ones for the same user.
		if existing, ok := collaborators[c.UserID]; ok && existing.IsActive() && !c.IsActive() {
			continue
		}
		collaborators[c.UserID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collaborators: %w", err)
	}
	return collaborators, nil
}
