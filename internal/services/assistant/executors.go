package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/contractor-assistant/internal/lib/apperr"
	"github.com/magabrotheeeer/contractor-assistant/internal/models"
	"github.com/magabrotheeeer/contractor-assistant/internal/storage"
	"github.com/magabrotheeeer/contractor-assistant/internal/tools"
)

// ExecutorFunc выполняет один типизированный вызов инструмента от имени userID.
type ExecutorFunc func(ctx context.Context, userID string, cmd tools.Command) (any, error)

// ContractorStore рабочие данные подрядчика. Все методы фильтруют по userID.
type ContractorStore interface {
	CreateClient(ctx context.Context, c models.Client) (*models.Client, error)
	FindClients(ctx context.Context, userID, query string, limit int) ([]models.Client, error)
	FindClientByName(ctx context.Context, userID, name string) (*models.Client, error)
	AddClientNote(ctx context.Context, n models.ClientNote) (*models.ClientNote, error)
	CreateProject(ctx context.Context, p models.Project) (*models.Project, error)
	ListProjects(ctx context.Context, userID string, f storage.ProjectFilter) ([]models.Project, error)
	UpdateProjectStatus(ctx context.Context, userID string, projectID int64, status string) error
	CreateTask(ctx context.Context, t models.Task) (*models.Task, error)
	ListTasks(ctx context.Context, userID string, projectID int64, includeDone bool) ([]models.Task, error)
	CreateEstimate(ctx context.Context, e models.Estimate) (*models.Estimate, error)
	ListEstimates(ctx context.Context, userID, status string, limit int) ([]models.Estimate, error)
	CreateInvoice(ctx context.Context, inv models.Invoice) (*models.Invoice, error)
	ListInvoices(ctx context.Context, userID, status string, limit int) ([]models.Invoice, error)
	CreateExpense(ctx context.Context, e models.Expense) (*models.Expense, error)
	FinancialSummary(ctx context.Context, userID string, from, to time.Time) (*models.FinancialSummary, error)
}

// Executors исполнители инструментов поверх хранилища подрядчика.
type Executors struct {
	store ContractorStore
	now   func() time.Time
}

// NewExecutors создаёт исполнителей.
func NewExecutors(store ContractorStore) *Executors {
	return &Executors{store: store, now: time.Now}
}

// Map возвращает исполнителя для каждого инструмента каталога.
func (e *Executors) Map() map[tools.Kind]ExecutorFunc {
	return map[tools.Kind]ExecutorFunc{
		tools.KindLookupClient:        e.lookupClient,
		tools.KindAddClient:           e.addClient,
		tools.KindAddClientNote:       e.addClientNote,
		tools.KindListProjects:        e.listProjects,
		tools.KindAddProject:          e.addProject,
		tools.KindUpdateProjectStatus: e.updateProjectStatus,
		tools.KindAddTask:             e.addTask,
		tools.KindListTasks:           e.listTasks,
		tools.KindCreateEstimate:      e.createEstimate,
		tools.KindListEstimates:       e.listEstimates,
		tools.KindListInvoices:        e.listInvoices,
		tools.KindCreateInvoice:       e.createInvoice,
		tools.KindLogExpense:          e.logExpense,
		tools.KindGetFinancialSummary: e.financialSummary,
		tools.KindDraftEmail:          draftEmail,
	}
}

func wrongCommand(cmd tools.Command) error {
	return fmt.Errorf("%w: unexpected arguments %T", apperr.ErrToolExecution, cmd)
}

func (e *Executors) lookupClient(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.LookupClient)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	clients, err := e.store.FindClients(ctx, userID, args.Query, args.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"clients": nonNil(clients), "count": len(clients)}, nil
}

func (e *Executors) addClient(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.AddClient)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	return e.store.CreateClient(ctx, models.Client{
		UserID:  userID,
		Name:    args.Name,
		Email:   args.Email,
		Phone:   args.Phone,
		Address: args.Address,
	})
}

func (e *Executors) addClientNote(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.AddClientNote)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	client, err := e.store.FindClientByName(ctx, userID, args.ClientName)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("no client named %q on file", args.ClientName)
	}
	if err != nil {
		return nil, err
	}
	return e.store.AddClientNote(ctx, models.ClientNote{UserID: userID, ClientID: client.ID, Body: args.Note})
}

func (e *Executors) listProjects(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.ListProjects)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	filter := storage.ProjectFilter{Status: args.Status}
	if args.ClientName != "" {
		client, err := e.findClient(ctx, userID, args.ClientName)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return map[string]any{"projects": []models.Project{}, "clientFound": false}, nil
		}
		filter.ClientID = &client.ID
	}
	projects, err := e.store.ListProjects(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return map[string]any{"projects": nonNil(projects), "count": len(projects)}, nil
}

// addProject создаёт проект. Неизвестный клиент не ошибка: проект создаётся
// с именем клиента как есть и clientFound=false.
func (e *Executors) addProject(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.AddProject)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	start, err := parseDate(args.StartDate)
	if err != nil {
		return nil, err
	}

	var client *models.Client
	if args.ClientName != "" {
		if client, err = e.findClient(ctx, userID, args.ClientName); err != nil {
			return nil, err
		}
	}

	p := models.Project{
		UserID:     userID,
		ClientName: args.ClientName,
		Name:       args.Name,
		Address:    args.Address,
		Budget:     args.Budget,
		StartDate:  start,
	}
	if client != nil {
		p.ClientID = &client.ID
		p.ClientName = client.Name
	}
	created, err := e.store.CreateProject(ctx, p)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"project":     created,
		"clientFound": client != nil,
		"client":      client,
	}, nil
}

func (e *Executors) updateProjectStatus(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.UpdateProjectStatus)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	err := e.store.UpdateProjectStatus(ctx, userID, args.ProjectID, args.Status)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("project %d not found", args.ProjectID)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"project_id": args.ProjectID, "status": args.Status}, nil
}

func (e *Executors) addTask(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.AddTask)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	due, err := parseDate(args.DueDate)
	if err != nil {
		return nil, err
	}
	task, err := e.store.CreateTask(ctx, models.Task{UserID: userID, ProjectID: args.ProjectID, Title: args.Title, DueDate: due})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("project %d not found", args.ProjectID)
	}
	return task, err
}

func (e *Executors) listTasks(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.ListTasks)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	tasks, err := e.store.ListTasks(ctx, userID, args.ProjectID, args.IncludeDone)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tasks": nonNil(tasks), "count": len(tasks)}, nil
}

func (e *Executors) createEstimate(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.CreateEstimate)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	est := models.Estimate{
		UserID:     userID,
		ClientName: args.ClientName,
		Title:      args.Title,
		Amount:     args.Amount,
		Notes:      args.Notes,
	}
	if args.ProjectID > 0 {
		est.ProjectID = &args.ProjectID
	}
	if args.ClientName != "" {
		client, err := e.findClient(ctx, userID, args.ClientName)
		if err != nil {
			return nil, err
		}
		if client != nil {
			est.ClientID = &client.ID
			est.ClientName = client.Name
		}
	}
	created, err := e.store.CreateEstimate(ctx, est)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("project %d not found", args.ProjectID)
	}
	return created, err
}

func (e *Executors) listEstimates(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.ListEstimates)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	estimates, err := e.store.ListEstimates(ctx, userID, args.Status, 0)
	if err != nil {
		return nil, err
	}
	return map[string]any{"estimates": nonNil(estimates), "count": len(estimates)}, nil
}

func (e *Executors) listInvoices(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.ListInvoices)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	invoices, err := e.store.ListInvoices(ctx, userID, args.Status, 0)
	if err != nil {
		return nil, err
	}
	return map[string]any{"invoices": nonNil(invoices), "count": len(invoices)}, nil
}

func (e *Executors) createInvoice(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.CreateInvoice)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	due, err := parseDate(args.DueDate)
	if err != nil {
		return nil, err
	}
	client, err := e.findClient(ctx, userID, args.ClientName)
	if err != nil {
		return nil, err
	}
	inv := models.Invoice{UserID: userID, ClientName: args.ClientName, Amount: args.Amount, DueDate: due}
	if client != nil {
		inv.ClientID = &client.ID
		inv.ClientName = client.Name
	}
	return e.store.CreateInvoice(ctx, inv)
}

func (e *Executors) logExpense(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.LogExpense)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	spent, err := parseDate(args.SpentAt)
	if err != nil {
		return nil, err
	}
	exp := models.Expense{UserID: userID, Category: args.Category, Amount: args.Amount, Note: args.Note}
	if spent != nil {
		exp.SpentAt = *spent
	}
	if args.ProjectID > 0 {
		exp.ProjectID = &args.ProjectID
	}
	created, err := e.store.CreateExpense(ctx, exp)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("project %d not found", args.ProjectID)
	}
	return created, err
}

// financialSummary по умолчанию считает текущий календарный месяц.
func (e *Executors) financialSummary(ctx context.Context, userID string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.GetFinancialSummary)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	now := e.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	if d, err := parseDate(args.From); err != nil {
		return nil, err
	} else if d != nil {
		from = *d
	}
	if d, err := parseDate(args.To); err != nil {
		return nil, err
	} else if d != nil {
		to = *d
	}
	if !to.After(from) {
		return nil, fmt.Errorf("period end %s must be after start %s", to.Format(tools.DateLayout), from.Format(tools.DateLayout))
	}
	return e.store.FinancialSummary(ctx, userID, from, to)
}

// draftEmail только готовит черновик; отправка возможна лишь после
// подтверждения пользователем.
func draftEmail(_ context.Context, _ string, cmd tools.Command) (any, error) {
	args, ok := cmd.(*tools.DraftEmail)
	if !ok {
		return nil, wrongCommand(cmd)
	}
	return &models.PendingApproval{
		ID:         uuid.NewString(),
		Kind:       "email",
		To:         args.To,
		Subject:    args.Subject,
		Body:       args.Body,
		ClientName: args.ClientName,
	}, nil
}

// findClient возвращает nil без ошибки, если клиента с таким именем нет.
func (e *Executors) findClient(ctx context.Context, userID, name string) (*models.Client, error) {
	client, err := e.store.FindClientByName(ctx, userID, name)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	return client, err
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(tools.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &t, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
