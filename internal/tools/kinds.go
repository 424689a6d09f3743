// Package tools описывает закрытый набор инструментов ассистентов: их
// типизированные аргументы, схемы параметров для модели и реестры по
// персонам. Аргументы модели декодируются и проверяются здесь, до
// передачи исполнителю.
package tools

// Kind имя инструмента. Набор закрыт: других инструментов не бывает.
type Kind string

const (
	KindLookupClient        Kind = "lookup_client"
	KindAddClient           Kind = "add_client"
	KindAddClientNote       Kind = "add_client_note"
	KindListProjects        Kind = "list_projects"
	KindAddProject          Kind = "add_project"
	KindUpdateProjectStatus Kind = "update_project_status"
	KindAddTask             Kind = "add_task"
	KindListTasks           Kind = "list_tasks"
	KindCreateEstimate      Kind = "create_estimate"
	KindListEstimates       Kind = "list_estimates"
	KindListInvoices        Kind = "list_invoices"
	KindCreateInvoice       Kind = "create_invoice"
	KindLogExpense          Kind = "log_expense"
	KindGetFinancialSummary Kind = "get_financial_summary"
	// KindDraftEmail только готовит письмо; отправка идёт отдельным
	// подтверждением человека.
	KindDraftEmail Kind = "draft_email"
)

// Command типизированные аргументы одного вызова инструмента.
type Command interface {
	Kind() Kind
}

// Статусы проектов, счетов и смет; DateLayout формат дат в аргументах.
const (
	projectStatuses  = "planned active on_hold done"
	invoiceStatuses  = "open paid overdue"
	estimateStatuses = "draft sent accepted rejected"
	DateLayout       = "2006-01-02"
)

type LookupClient struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
}

type AddClient struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type AddClientNote struct {
	ClientName string `json:"client_name" validate:"required"`
	Note       string `json:"note" validate:"required"`
}

type ListProjects struct {
	Status     string `json:"status,omitempty" validate:"omitempty,oneof=planned active on_hold done"`
	ClientName string `json:"client_name,omitempty"`
}

type AddProject struct {
	Name       string  `json:"name" validate:"required"`
	ClientName string  `json:"client_name,omitempty"`
	Address    string  `json:"address,omitempty"`
	Budget     float64 `json:"budget,omitempty" validate:"gte=0"`
	StartDate  string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateProjectStatus struct {
	ProjectID int64  `json:"project_id" validate:"required,min=1"`
	Status    string `json:"status" validate:"required,oneof=planned active on_hold done"`
}

type AddTask struct {
	ProjectID int64  `json:"project_id" validate:"required,min=1"`
	Title     string `json:"title" validate:"required"`
	DueDate   string `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type ListTasks struct {
	ProjectID   int64 `json:"project_id" validate:"required,min=1"`
	IncludeDone bool  `json:"include_done,omitempty"`
}

type CreateEstimate struct {
	Title      string  `json:"title" validate:"required"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	ClientName string  `json:"client_name,omitempty"`
	ProjectID  int64   `json:"project_id,omitempty" validate:"omitempty,min=1"`
	Notes      string  `json:"notes,omitempty"`
}

type ListEstimates struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=draft sent accepted rejected"`
}

type ListInvoices struct {
	Status string `json:"status,omitempty" validate:"omitempty,oneof=open paid overdue"`
}

type CreateInvoice struct {
	ClientName string  `json:"client_name" validate:"required"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	DueDate    string  `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type LogExpense struct {
	Category  string  `json:"category" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Note      string  `json:"note,omitempty"`
	ProjectID int64   `json:"project_id,omitempty" validate:"omitempty,min=1"`
	SpentAt   string  `json:"spent_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type GetFinancialSummary struct {
	From string `json:"from,omitempty" validate:"omitempty,datetime=2006-01-02"`
	To   string `json:"to,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type DraftEmail struct {
	To         string `json:"to" validate:"required,email"`
	Subject    string `json:"subject" validate:"required"`
	Body       string `json:"body" validate:"required"`
	ClientName string `json:"client_name,omitempty"`
}

func (LookupClient) Kind() Kind        { return KindLookupClient }
func (AddClient) Kind() Kind           { return KindAddClient }
func (AddClientNote) Kind() Kind       { return KindAddClientNote }
func (ListProjects) Kind() Kind        { return KindListProjects }
func (AddProject) Kind() Kind          { return KindAddProject }
func (UpdateProjectStatus) Kind() Kind { return KindUpdateProjectStatus }
func (AddTask) Kind() Kind             { return KindAddTask }
func (ListTasks) Kind() Kind           { return KindListTasks }
func (CreateEstimate) Kind() Kind      { return KindCreateEstimate }
func (ListEstimates) Kind() Kind       { return KindListEstimates }
func (ListInvoices) Kind() Kind        { return KindListInvoices }
func (CreateInvoice) Kind() Kind       { return KindCreateInvoice }
func (LogExpense) Kind() Kind          { return KindLogExpense }
func (GetFinancialSummary) Kind() Kind { return KindGetFinancialSummary }
func (DraftEmail) Kind() Kind          { return KindDraftEmail }
