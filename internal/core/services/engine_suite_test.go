package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/SscSPs/fundflow_engine/internal/apperrors"
	"github.com/SscSPs/fundflow_engine/internal/core/domain"
	portsrepo "github.com/SscSPs/fundflow_engine/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fundflow_engine/internal/core/ports/services"
	"github.com/SscSPs/fundflow_engine/internal/core/services"
	"github.com/SscSPs/fundflow_engine/internal/dto"
	"github.com/SscSPs/fundflow_engine/internal/platform/config"
	"github.com/SscSPs/fundflow_engine/internal/repositories/memory"
)

// --- Recording collaborators ---

type recordingDispatcher struct {
	mu   sync.Mutex
	cmds []domain.PaymentCommand
}

func (d *recordingDispatcher) Dispatch(_ context.Context, cmds ...domain.PaymentCommand) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmds...)
}

// take returns and clears the recorded commands.
func (d *recordingDispatcher) take() []domain.PaymentCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.cmds
	d.cmds = nil
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name
	}
	return out
}

type recordingAlerter struct {
	mu         sync.Mutex
	violations []string
}

func (a *recordingAlerter) Alert(_ context.Context, v *apperrors.InvariantViolationError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.violations = append(a.violations, v.Check)
}

// --- Suite ---

var (
	adminActor    = domain.Actor{ActorID: "admin-1", Role: domain.RoleAdmin, RoleChecked: true}
	creatorActor  = domain.Actor{ActorID: "creator-1", Role: domain.RoleCreator, RoleChecked: true}
	otherCreator  = domain.Actor{ActorID: "creator-2", Role: domain.RoleCreator, RoleChecked: true}
	reviewerActor = domain.Actor{ActorID: "reviewer-1", Role: domain.RoleReviewer, RoleChecked: true}
	paymentsActor = domain.SystemActor("payment-events")
)

func backerActor(id string) domain.Actor {
	return domain.Actor{ActorID: id, Role: domain.RoleBacker, RoleChecked: true}
}

type EngineTestSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	repos      portsrepo.RepositoryProvider
	dispatcher *recordingDispatcher
	publisher  *recordingPublisher
	alerter    *recordingAlerter
	svc        *portssvc.ServiceContainer
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.repos = memory.NewRepositoryProvider(memory.New())
	s.dispatcher = &recordingDispatcher{}
	s.publisher = &recordingPublisher{}
	s.alerter = &recordingAlerter{}

	cfg := &config.Config{DefaultSplit: domain.RevenueSplit{
		PlatformFeePercent: domain.MustPercentage("10"),
		ArtistSharePercent: domain.MustPercentage("70"),
		BackerSharePercent: domain.MustPercentage("20"),
	}}
	s.svc = services.NewServiceContainer(cfg, s.repos,
		services.WithClock(func() time.Time { return s.now }),
		services.WithDispatcher(s.dispatcher),
		services.WithPublisher(s.publisher),
		services.WithAlerter(s.alerter),
	)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

// --- Scenario helpers ---

// openProject creates and approves a project with a 30 day funding window.
func (s *EngineTestSuite) openProject(goal int64) *domain.FundingProject {
	p, err := s.svc.Lifecycle.CreateProject(s.ctx, creatorActor, dto.CreateProjectRequest{
		Title:      "Album recording",
		GoalAmount: goal,
		StartDate:  s.now,
		EndDate:    s.now.Add(30 * 24 * time.Hour),
	})
	s.Require().NoError(err)
	p, err = s.svc.Lifecycle.ApproveProject(s.ctx, adminActor, p.ProjectID)
	s.Require().NoError(err)
	return p
}

// pledge requests a pledge and confirms it through a payment event.
func (s *EngineTestSuite) pledge(projectID, backerID string, amount domain.Money) *domain.Pledge {
	pl, err := s.svc.Lifecycle.RequestPledge(s.ctx, backerActor(backerID), projectID, amount)
	s.Require().NoError(err)
	s.Require().NoError(s.paymentEvent(domain.EventPledgeConfirmed, projectID, pl.PledgeID, amount))
	return pl
}

func (s *EngineTestSuite) paymentEvent(typ domain.PaymentEventType, projectID, subjectID string, amount domain.Money) error {
	return s.svc.Lifecycle.HandlePaymentEvent(s.ctx, paymentsActor, domain.PaymentEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		ProjectID:  projectID,
		SubjectID:  subjectID,
		Amount:     amount,
		PaymentRef: "ref-" + subjectID,
		OccurredAt: s.now,
	})
}

// closeAtDeadline moves the clock to the project's deadline and closes funding.
func (s *EngineTestSuite) closeAtDeadline(p *domain.FundingProject) *domain.FundingProject {
	s.now = p.EndDate
	closed, err := s.svc.Lifecycle.CloseFunding(s.ctx, domain.SystemActor("scheduler"), p.ProjectID, s.now)
	s.Require().NoError(err)
	return closed
}

// executingProject funds a project with the given pledges and submits an
// execution plan with one stage per budget.
func (s *EngineTestSuite) executingProject(goal int64, pledges []domain.Money, budgets ...int64) (*domain.FundingProject, []domain.ExecutionStage) {
	p := s.openProject(goal)
	for i, amt := range pledges {
		s.pledge(p.ProjectID, backerID(i), amt)
	}
	p = s.closeAtDeadline(p)
	s.Require().Equal(domain.ProjectSuccess, p.Status)

	req := dto.SubmitExecutionPlanRequest{}
	for i, b := range budgets {
		req.Stages = append(req.Stages, dto.AddStageRequest{Name: "stage", Sequence: i + 1, Budget: b})
	}
	p, err := s.svc.Lifecycle.SubmitExecutionPlan(s.ctx, creatorActor, p.ProjectID, req)
	s.Require().NoError(err)
	stages, err := s.svc.Stages.ListStages(s.ctx, p.ProjectID)
	s.Require().NoError(err)
	s.Require().Len(stages, len(budgets))
	s.dispatcher.take()
	return p, stages
}

func backerID(i int) string {
	return "backer-" + string(rune('a'+i))
}

func (s *EngineTestSuite) completeAllStages(stages []domain.ExecutionStage) {
	for _, st := range stages {
		_, err := s.svc.Stages.CompleteStage(s.ctx, creatorActor, st.StageID)
		s.Require().NoError(err)
	}
}

func (s *EngineTestSuite) recordExpense(projectID string, stageID *string, amount int64) *domain.ExpenseRecord {
	receipt := "receipt-" + uuid.NewString()
	e, err := s.svc.Expenses.RecordExpense(s.ctx, creatorActor, projectID, dto.RecordExpenseRequest{
		StageID:    stageID,
		Category:   domain.CategoryMaterial,
		Title:      "studio time",
		Amount:     amount,
		Date:       s.now,
		ReceiptRef: &receipt,
	})
	s.Require().NoError(err)
	return e
}

func ptr[T any](v T) *T { return &v }
