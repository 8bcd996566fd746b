package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateEmployee(ctx context.Context, employee *models.Employee) error {
	return translate(r.db.WithContext(ctx).Create(employee).Error)
}

func (r *Repository) GetEmployee(ctx context.Context, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).First(&employee, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &employee, nil
}

// SaveEmployee writes every field of employee.
func (r *Repository) SaveEmployee(ctx context.Context, employee *models.Employee) error {
	return translate(r.db.WithContext(ctx).Save(employee).Error)
}

// ListCompanyEmployees returns the employees of a company that have not quit.
func (r *Repository) ListCompanyEmployees(ctx context.Context, companyID uuid.UUID) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND status <> ?", companyID, models.EmployeeQuit).
		Order("created_at, id").
		Find(&employees).Error
	return employees, err
}

// ListProjectEmployees returns the employees working on a project.
func (r *Repository) ListProjectEmployees(ctx context.Context, projectID uuid.UUID) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.db.WithContext(ctx).
		Where("assigned_project_id = ? AND status = ?", projectID, models.EmployeeWorking).
		Order("created_at, id").
		Find(&employees).Error
	return employees, err
}

// CountProjectEmployees counts the employees working on each given project.
func (r *Repository) CountProjectEmployees(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(projectIDs))
	if len(projectIDs) == 0 {
		return counts, nil
	}
	var employees []models.Employee
	err := r.db.WithContext(ctx).
		Select("id", "assigned_project_id").
		Where("assigned_project_id IN ? AND status = ?", projectIDs, models.EmployeeWorking).
		Find(&employees).Error
	if err != nil {
		return nil, err
	}
	for _, e := range employees {
		if e.AssignedProjectID != nil {
			counts[*e.AssignedProjectID]++
		}
	}
	return counts, nil
}

// UnassignProject returns every employee working on projectID to idle.
func (r *Repository) UnassignProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("assigned_project_id = ?", projectID).
		Updates(map[string]interface{}{
			"assigned_project_id": nil,
			"status":              gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", models.EmployeeWorking, models.EmployeeIdle),
		})
	return result.RowsAffected, result.Error
}

// RecoverIdleEmployees adds energy and morale to every idle employee,
// capped at models.MaxStat.
func (r *Repository) RecoverIdleEmployees(ctx context.Context, energy, morale int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("status = ? AND (energy < ? OR morale < ?)", models.EmployeeIdle, models.MaxStat, models.MaxStat).
		Updates(map[string]interface{}{
			"energy": capped("energy", energy),
			"morale": capped("morale", morale),
		})
	return result.RowsAffected, result.Error
}

// PenalizeCompanyMorale lowers the morale of a company's staff, floored at 0.
func (r *Repository) PenalizeCompanyMorale(ctx context.Context, companyID uuid.UUID, amount int) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Employee{}).
		Where("company_id = ? AND status <> ?", companyID, models.EmployeeQuit).
		UpdateColumn("morale", gorm.Expr("CASE WHEN morale - ? < 0 THEN 0 ELSE morale - ? END", amount, amount))
	return result.RowsAffected, result.Error
}

func capped(column string, delta int) clause.Expr {
	return gorm.Expr("CASE WHEN "+column+" + ? > ? THEN ? ELSE "+column+" + ? END",
		delta, models.MaxStat, models.MaxStat, delta)
}
