package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
)

func (r *Repository) CreateProject(ctx context.Context, project *models.Project) error {
	return translate(r.db.WithContext(ctx).Create(project).Error)
}

func (r *Repository) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// ListProjectsByStatus returns projects in any of statuses, oldest first.
func (r *Repository) ListProjectsByStatus(ctx context.Context, statuses ...models.ProjectStatus) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at, id").
		Find(&projects).Error
	return projects, err
}

// ListPlayerProjects returns a player's projects in any of statuses.
func (r *Repository) ListPlayerProjects(ctx context.Context, ownerID uuid.UUID, statuses ...models.ProjectStatus) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND status IN ?", ownerID, statuses).
		Order("created_at, id").
		Find(&projects).Error
	return projects, err
}

// ListOverdueProjects returns queued or in-progress projects whose deadline
// is before now.
func (r *Repository) ListOverdueProjects(ctx context.Context, now time.Time) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("status IN ? AND deadline IS NOT NULL AND deadline < ?",
			[]models.ProjectStatus{models.ProjectQueued, models.ProjectInProgress}, now).
		Order("deadline, id").
		Find(&projects).Error
	return projects, err
}

// SetProjectProgress stores progress on an in-progress project. Progress
// never moves backwards; it reports whether the row changed.
func (r *Repository) SetProjectProgress(ctx context.Context, id uuid.UUID, progress float64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status = ? AND progress <= ?", id, models.ProjectInProgress, progress).
		Update("progress", progress)
	return result.RowsAffected == 1, result.Error
}

// TransitionProject moves a project from one of from to to, stamping the
// matching timestamp. It reports false when the project was not in from,
// which makes finalizing transitions safe to repeat.
func (r *Repository) TransitionProject(ctx context.Context, id uuid.UUID, from []models.ProjectStatus, to models.ProjectStatus, at time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	switch to {
	case models.ProjectCompleted:
		updates["progress"] = models.MaxProgress
		updates["completed_at"] = at
	case models.ProjectFailed:
		updates["failed_at"] = at
	}
	result := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected == 1, result.Error
}

// ClaimProject hands a project to ownerID and companyID and starts it.
// Only open listings and the owner's own queued projects can be claimed.
func (r *Repository) ClaimProject(ctx context.Context, id, ownerID, companyID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND ((status = ? AND owner_id IS NULL) OR (status IN ? AND owner_id = ?))",
			id, models.ProjectAvailable,
			[]models.ProjectStatus{models.ProjectAvailable, models.ProjectQueued}, ownerID).
		Updates(map[string]interface{}{
			"owner_id":   ownerID,
			"company_id": companyID,
			"status":     models.ProjectInProgress,
		})
	return result.RowsAffected == 1, result.Error
}

// DeleteOwnerProjects removes every project owned by ownerID.
func (r *Repository) DeleteOwnerProjects(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.Project{})
	return result.RowsAffected, result.Error
}
