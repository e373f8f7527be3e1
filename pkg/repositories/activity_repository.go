package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/database"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// ActivityRepository stores the user activity log written alongside each
// execution record.
type ActivityRepository interface {
	Insert(ctx context.Context, activity *models.UserActivity) error
}

type activityRepository struct {
	db *database.DB
}

// NewActivityRepository creates an ActivityRepository backed by the admin
// pool.
func NewActivityRepository(db *database.DB) ActivityRepository {
	return &activityRepository{db: db}
}

var _ ActivityRepository = (*activityRepository)(nil)

func (r *activityRepository) Insert(ctx context.Context, activity *models.UserActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO nl2sql_user_activity (id, org_id, user_id, activity_type, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		activity.ID,
		activity.OrgID,
		activity.UserID,
		activity.ActivityType,
		activity.Detail,
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user activity: %w", err)
	}

	return nil
}
