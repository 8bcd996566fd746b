// Package controller implements the player-facing operations of the game
// (service layer): registration, staffing, projects, products, bug fixes
// and quests. Scheduled simulation lives in package jobs.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/ai"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/bonus"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/catalog"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/db"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/economy"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/events"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/metrics"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Repository defines the storage operations used outside transactions.
type Repository interface {
	GetCompanyByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Company, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListOpenBugs(ctx context.Context, productID uuid.UUID) ([]models.ProductBug, error)
	CreateProject(ctx context.Context, project *models.Project) error
	CreateQuest(ctx context.Context, quest *models.NPCQuest) error
	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// GameService provides the operations players trigger directly.
type GameService struct {
	repo      Repository
	bonuses   *bonus.Resolver
	catalog   *catalog.Catalog
	generator ai.Generator
	events    events.Broadcaster
	logger    *zap.Logger
	now       func() time.Time
}

// NewGameService constructs a GameService. generator may be nil, in which
// case generated content is replaced by defaults.
func NewGameService(repo Repository, bonuses *bonus.Resolver, cat *catalog.Catalog, generator ai.Generator, broadcaster events.Broadcaster, logger *zap.Logger) *GameService {
	if broadcaster == nil {
		broadcaster = events.Nop{}
	}
	return &GameService{
		repo:      repo,
		bonuses:   bonuses,
		catalog:   cat,
		generator: generator,
		events:    broadcaster,
		logger:    logger.Named("game_service"),
		now:       time.Now,
	}
}

func (s *GameService) clock() time.Time {
	return s.now().UTC()
}

// RegisterPlayer creates the company, game state, automation setting and
// starter skills of a new player.
func (s *GameService) RegisterPlayer(ctx context.Context, playerID uuid.UUID, companyName string) (*models.Company, error) {
	companyName = strings.TrimSpace(companyName)
	if playerID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid player ID", e.ErrInvalidInput)
	}
	if companyName == "" || len(companyName) > 64 {
		return nil, fmt.Errorf("%w: invalid company name", e.ErrInvalidInput)
	}

	_, err := s.repo.GetCompanyByOwner(ctx, playerID)
	if err == nil {
		return nil, fmt.Errorf("%w: player %s already registered", e.ErrDuplicate, playerID)
	}
	if !errors.Is(err, e.ErrNotFound) {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}

	company := &models.Company{
		ID:      uuid.New(),
		OwnerID: playerID,
		Name:    companyName,
		Cash:    models.StartingCash,
		Level:   1,
	}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.CreateCompany(ctx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		state := &models.GameState{
			ID:         uuid.New(),
			PlayerID:   playerID,
			Level:      1,
			ClickPower: models.Money(1),
		}
		if err := tx.CreateGameState(ctx, state); err != nil {
			return fmt.Errorf("create game state: %w", err)
		}
		if err := tx.CreateAutomationSetting(ctx, models.DefaultAutomationSetting(playerID)); err != nil {
			return fmt.Errorf("create automation setting: %w", err)
		}
		if s.catalog == nil {
			return nil
		}
		for _, tpl := range s.catalog.Skills {
			if err := tx.CreateSkill(ctx, tpl.NewSkill(playerID)); err != nil {
				return fmt.Errorf("create skill %s: %w", tpl.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Player registered",
		zap.String("player_id", playerID.String()),
		zap.String("company_id", company.ID.String()),
	)
	return company, nil
}

// HireRequest describes a new employee. An empty name is generated.
type HireRequest struct {
	Name         string
	Role         string
	Productivity float64
	Salary       float64
}

// HireEmployee adds a rested, idle employee to the player's company.
func (s *GameService) HireEmployee(ctx context.Context, playerID uuid.UUID, req HireRequest) (*models.Employee, error) {
	if req.Productivity <= 0 || req.Salary < 0 {
		return nil, fmt.Errorf("%w: productivity must be positive and salary non-negative", e.ErrInvalidInput)
	}
	company, err := s.repo.GetCompanyByOwner(ctx, playerID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = s.employeeName(ctx)
	}
	role := req.Role
	if role == "" {
		role = "developer"
	}
	emp := &models.Employee{
		ID:           uuid.New(),
		CompanyID:    company.ID,
		Name:         name,
		Role:         role,
		Energy:       models.MaxStat,
		Morale:       models.MaxStat,
		Level:        1,
		Productivity: req.Productivity,
		Salary:       models.Money(req.Salary),
		Status:       models.EmployeeIdle,
	}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		return tx.CreateEmployee(ctx, emp)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to hire employee: %w", err)
	}
	return emp, nil
}

func (s *GameService) employeeName(ctx context.Context) string {
	fallback := "Developer " + uuid.NewString()[:4]
	if s.generator == nil {
		return fallback
	}
	raw, err := s.generator.Generate(ctx, ai.KindEmployee, map[string]interface{}{"role": "developer"})
	if err == nil {
		var name string
		if name, err = ai.DecodeEmployeeName(raw); err == nil {
			return name
		}
	}
	if !errors.Is(err, ai.ErrDisabled) {
		s.logger.Warn("Employee name generation failed, using default", zap.Error(err))
	}
	metrics.AIFallbacks.WithLabelValues(string(ai.KindEmployee)).Inc()
	return fallback
}

// FireEmployee marks an employee as quit and frees it from its project.
func (s *GameService) FireEmployee(ctx context.Context, employeeID uuid.UUID) error {
	return s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		emp, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if emp.Status == models.EmployeeQuit {
			return fmt.Errorf("%w: employee already quit", e.ErrInvalidTransition)
		}
		emp.Unassign()
		emp.Status = models.EmployeeQuit
		return tx.SaveEmployee(ctx, emp)
	})
}

// ProjectListing describes an open job-board project. An empty title is
// generated.
type ProjectListing struct {
	Title       string
	Description string
	Difficulty  int
	Reward      float64
	Deadline    *time.Time
}

// PostProject puts an unowned project on the job board.
func (s *GameService) PostProject(ctx context.Context, listing ProjectListing) (*models.Project, error) {
	if strings.TrimSpace(listing.Title) == "" {
		listing = s.generateListing(ctx, listing)
	}
	if listing.Difficulty < 1 || listing.Difficulty > 10 {
		return nil, fmt.Errorf("%w: difficulty must be between 1 and 10", e.ErrInvalidInput)
	}
	if listing.Reward < 0 {
		return nil, fmt.Errorf("%w: negative reward", e.ErrInvalidInput)
	}
	if len(listing.Description) > 3000 {
		return nil, fmt.Errorf("%w: description too long", e.ErrInvalidInput)
	}

	p := &models.Project{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(listing.Title),
		Description: listing.Description,
		Difficulty:  listing.Difficulty,
		Status:      models.ProjectAvailable,
		Deadline:    listing.Deadline,
		Reward:      models.Money(listing.Reward),
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to post project: %w", err)
	}
	return p, nil
}

func (s *GameService) generateListing(ctx context.Context, listing ProjectListing) ProjectListing {
	fallback := listing
	fallback.Title = "Client website"
	if fallback.Difficulty == 0 {
		fallback.Difficulty = 1
	}
	if fallback.Reward == 0 {
		fallback.Reward = float64(100 * fallback.Difficulty)
	}
	if s.generator == nil {
		return fallback
	}

	raw, err := s.generator.Generate(ctx, ai.KindProject, map[string]interface{}{"difficulty": listing.Difficulty})
	if err == nil {
		var p *ai.ProjectProposal
		if p, err = ai.DecodeProject(raw); err == nil {
			listing.Title, listing.Description = p.Title, p.Description
			listing.Difficulty, listing.Reward = p.Difficulty, p.Reward
			return listing
		}
	}
	if !errors.Is(err, ai.ErrDisabled) {
		s.logger.Warn("Project generation failed, using default", zap.Error(err))
	}
	metrics.AIFallbacks.WithLabelValues(string(ai.KindProject)).Inc()
	return fallback
}

// StartProject claims an open listing, or one of the player's queued
// projects, and moves it to in_progress.
func (s *GameService) StartProject(ctx context.Context, playerID, projectID uuid.UUID) (*models.Project, error) {
	company, err := s.repo.GetCompanyByOwner(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var project *models.Project
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		ok, err := tx.ClaimProject(ctx, projectID, playerID, company.ID)
		if err != nil {
			return err
		}
		project, err = tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: project is %s", e.ErrInvalidTransition, project.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// AssignEmployee puts an employee on an in-progress project of its own
// company.
func (s *GameService) AssignEmployee(ctx context.Context, employeeID, projectID uuid.UUID) error {
	return s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		emp, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if emp.Status == models.EmployeeQuit {
			return fmt.Errorf("%w: employee has quit", e.ErrInvalidTransition)
		}
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectInProgress {
			return fmt.Errorf("%w: project is %s", e.ErrInvalidTransition, project.Status)
		}
		if project.CompanyID == nil || *project.CompanyID != emp.CompanyID {
			return fmt.Errorf("%w: project belongs to another company", e.ErrInvalidInput)
		}
		emp.Assign(projectID)
		return tx.SaveEmployee(ctx, emp)
	})
}

// UnassignEmployee returns a working employee to the idle pool.
func (s *GameService) UnassignEmployee(ctx context.Context, employeeID uuid.UUID) error {
	return s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		emp, err := tx.GetEmployee(ctx, employeeID)
		if err != nil {
			return err
		}
		if emp.Status != models.EmployeeWorking {
			return fmt.Errorf("%w: employee is %s", e.ErrInvalidTransition, emp.Status)
		}
		emp.Unassign()
		return tx.SaveEmployee(ctx, emp)
	})
}

// ProductSpec describes a product launched from a completed project.
// An empty name reuses the project title.
type ProductSpec struct {
	Name               string
	BaseMonthlyRevenue float64
	Upkeep             float64
	GrowthRate         float64
}

// LaunchProduct turns a completed project into an active product. A project
// launches at most one product.
func (s *GameService) LaunchProduct(ctx context.Context, projectID uuid.UUID, spec ProductSpec) (*models.Product, error) {
	if spec.BaseMonthlyRevenue < 0 || spec.Upkeep < 0 || spec.GrowthRate < 0 {
		return nil, fmt.Errorf("%w: negative product figures", e.ErrInvalidInput)
	}

	var product *models.Product
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		project, err := tx.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectCompleted || project.CompanyID == nil {
			return fmt.Errorf("%w: only completed projects can launch", e.ErrInvalidTransition)
		}
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			name = project.Title
		}
		product = &models.Product{
			ID:                 uuid.New(),
			CompanyID:          *project.CompanyID,
			SourceProjectID:    project.ID,
			Name:               name,
			BaseMonthlyRevenue: models.Money(spec.BaseMonthlyRevenue),
			Upkeep:             models.Money(spec.Upkeep),
			GrowthRate:         decimal.NewFromFloat(spec.GrowthRate).Round(4),
			Active:             true,
			LaunchedAt:         s.clock(),
		}
		return tx.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// StartBugFix pays a bug's fix cost and starts the fix, atomically.
func (s *GameService) StartBugFix(ctx context.Context, bugID uuid.UUID) (*models.ProductBug, error) {
	now := s.clock()
	var bug *models.ProductBug
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		if bug, err = tx.GetBug(ctx, bugID); err != nil {
			return err
		}
		if bug.Status != models.BugActive {
			return fmt.Errorf("%w: bug is %s", e.ErrInvalidTransition, bug.Status)
		}
		product, err := tx.GetProduct(ctx, bug.ProductID)
		if err != nil {
			return err
		}
		_, err = tx.UpdateCompany(ctx, product.CompanyID, func(c *models.Company) error {
			if c.Cash.LessThan(bug.FixCost) {
				return e.ErrInsufficientFunds
			}
			c.Cash = c.Cash.Sub(bug.FixCost)
			return nil
		})
		if err != nil {
			return err
		}
		ok, err := tx.TransitionBug(ctx, bug.ID, models.BugActive, models.BugFixing, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: bug fix already started", e.ErrInvalidTransition)
		}
		bug.Status = models.BugFixing
		bug.FixStartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bug, nil
}

// QuestOffer describes a quest an NPC hands to a player.
type QuestOffer struct {
	PlayerID          uuid.UUID
	NPCID             string
	QuestType         string
	Title             string
	TargetProgress    int
	Rewards           models.QuestRewards
	RequiredProjectID *uuid.UUID
	// TTL bounds how long the quest stays open; zero means no expiry.
	TTL time.Duration
}

// OfferQuest creates an active quest. A player holds at most one active
// quest per NPC.
func (s *GameService) OfferQuest(ctx context.Context, offer QuestOffer) (*models.NPCQuest, error) {
	if offer.PlayerID == uuid.Nil || offer.NPCID == "" || offer.TargetProgress < 1 {
		return nil, fmt.Errorf("%w: quest needs a player, an npc and a positive target", e.ErrInvalidInput)
	}
	quest := &models.NPCQuest{
		ID:                uuid.New(),
		PlayerID:          offer.PlayerID,
		NPCID:             offer.NPCID,
		QuestType:         offer.QuestType,
		Title:             offer.Title,
		TargetProgress:    offer.TargetProgress,
		Rewards:           datatypes.NewJSONType(offer.Rewards),
		Status:            models.QuestActive,
		RequiredProjectID: offer.RequiredProjectID,
	}
	if offer.TTL > 0 {
		expires := s.clock().Add(offer.TTL)
		quest.ExpiresAt = &expires
	}
	if err := s.repo.CreateQuest(ctx, quest); err != nil {
		return nil, err
	}
	return quest, nil
}

// AdvanceQuest adds delta to a quest's progress. Reaching the target
// completes the quest and grants its rewards.
func (s *GameService) AdvanceQuest(ctx context.Context, questID uuid.UUID, delta int) (*models.NPCQuest, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("%w: delta must be positive", e.ErrInvalidInput)
	}
	now := s.clock()

	var quest *models.NPCQuest
	var completed bool
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		completed = false
		if quest, err = tx.GetQuest(ctx, questID); err != nil {
			return err
		}
		if quest.Status != models.QuestActive {
			return fmt.Errorf("%w: quest is %s", e.ErrInvalidTransition, quest.Status)
		}

		progress := quest.CurrentProgress + delta
		if progress > quest.TargetProgress {
			progress = quest.TargetProgress
		}
		if _, err := tx.SetQuestProgress(ctx, quest.ID, progress); err != nil {
			return err
		}
		quest.CurrentProgress = progress
		if progress < quest.TargetProgress {
			return nil
		}

		ok, err := tx.TransitionQuest(ctx, quest.ID, models.QuestCompleted, now)
		if err != nil || !ok {
			return err
		}
		if err := grantRewards(ctx, tx, quest.PlayerID, quest.Rewards.Data()); err != nil {
			return err
		}
		quest.Status = models.QuestCompleted
		quest.CompletedAt = &now
		completed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		rewards := quest.Rewards.Data()
		s.events.Publish(events.PlayerChannel(quest.PlayerID), events.QuestCompleted, events.Payload{
			"quest_id":   quest.ID.String(),
			"npc_id":     quest.NPCID,
			"title":      quest.Title,
			"money":      rewards.Money,
			"xp":         rewards.XP,
			"reputation": rewards.Reputation,
		})
	}
	return quest, nil
}

func grantRewards(ctx context.Context, tx *db.Repository, playerID uuid.UUID, r models.QuestRewards) error {
	if r.Money != 0 {
		company, err := tx.GetCompanyByOwner(ctx, playerID)
		if err != nil {
			return fmt.Errorf("load company: %w", err)
		}
		_, err = tx.UpdateCompany(ctx, company.ID, func(c *models.Company) error {
			c.Cash = c.Cash.Add(models.Money(r.Money))
			return nil
		})
		if err != nil {
			return fmt.Errorf("credit quest reward: %w", err)
		}
	}
	if r.XP == 0 && r.Reputation == 0 {
		return nil
	}
	_, err := tx.UpdateGameState(ctx, playerID, func(st *models.GameState) error {
		st.XP += r.XP
		st.Reputation += r.Reputation
		if st.Reputation < 0 {
			st.Reputation = 0
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("grant quest progression: %w", err)
	}
	return nil
}

// ProductFinancials derives a product's current revenue on demand, with
// the same formula and bug multiplier as the revenue job.
func (s *GameService) ProductFinancials(ctx context.Context, productID uuid.UUID) (*economy.Revenue, error) {
	now := s.clock()
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, product.CompanyID)
	if err != nil {
		return nil, err
	}
	bugs, err := s.repo.ListOpenBugs(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bugs: %w", err)
	}
	set, err := s.bonuses.Resolve(ctx, company.OwnerID, now, bonus.Options{CompanyID: &company.ID, ProductID: &product.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bonuses: %w", err)
	}
	rev := economy.ProductRevenue(product, bugs, set, now)
	return &rev, nil
}
