package tools

import (
	"strings"

	"github.com/magabrotheeeer/contractor-assistant/internal/llm"
)

// Definition описание инструмента: что видит модель и как декодировать аргументы.
type Definition struct {
	Kind        Kind
	Description string
	Schema      llm.Schema
	newArgs     func() Command
}

// LLMTool объявление инструмента для модели.
func (d Definition) LLMTool() llm.Tool {
	return llm.Tool{Name: string(d.Kind), Description: d.Description, Parameters: d.Schema}
}

func str(desc string) llm.Property {
	return llm.Property{Type: "string", Description: desc}
}

func num(desc string) llm.Property {
	return llm.Property{Type: "number", Description: desc}
}

func integer(desc string) llm.Property {
	return llm.Property{Type: "integer", Description: desc}
}

func enum(desc, values string) llm.Property {
	return llm.Property{Type: "string", Description: desc, Enum: strings.Fields(values)}
}

func object(props map[string]llm.Property, required ...string) llm.Schema {
	return llm.Schema{Type: "object", Properties: props, Required: required}
}

// catalog все инструменты приложения.
var catalog = map[Kind]Definition{
	KindLookupClient: {
		Kind:        KindLookupClient,
		Description: "Search the contractor's clients by name, email or phone.",
		Schema: object(map[string]llm.Property{
			"query": str("Part of the client's name, email or phone"),
			"limit": integer("Maximum number of clients to return, 1-50"),
		}, "query"),
		newArgs: func() Command { return &LookupClient{} },
	},
	KindAddClient: {
		Kind:        KindAddClient,
		Description: "Create a new client record.",
		Schema: object(map[string]llm.Property{
			"name":    str("Client full name or company"),
			"email":   str("Email address"),
			"phone":   str("Phone number"),
			"address": str("Postal address"),
		}, "name"),
		newArgs: func() Command { return &AddClient{} },
	},
	KindAddClientNote: {
		Kind:        KindAddClientNote,
		Description: "Attach a CRM note to an existing client.",
		Schema: object(map[string]llm.Property{
			"client_name": str("Name of an existing client"),
			"note":        str("Note text"),
		}, "client_name", "note"),
		newArgs: func() Command { return &AddClientNote{} },
	},
	KindListProjects: {
		Kind:        KindListProjects,
		Description: "List the contractor's projects, optionally filtered by status or client.",
		Schema: object(map[string]llm.Property{
			"status":      enum("Project status", projectStatuses),
			"client_name": str("Only projects of this client"),
		}),
		newArgs: func() Command { return &ListProjects{} },
	},
	KindAddProject: {
		Kind:        KindAddProject,
		Description: "Create a project. If client_name matches an existing client the project is linked to it.",
		Schema: object(map[string]llm.Property{
			"name":        str("Project name"),
			"client_name": str("Client the project is for"),
			"address":     str("Job site address"),
			"budget":      num("Budget in dollars"),
			"start_date":  str("Start date, YYYY-MM-DD"),
		}, "name"),
		newArgs: func() Command { return &AddProject{} },
	},
	KindUpdateProjectStatus: {
		Kind:        KindUpdateProjectStatus,
		Description: "Change the status of a project.",
		Schema: object(map[string]llm.Property{
			"project_id": integer("Project id from list_projects"),
			"status":     enum("New status", projectStatuses),
		}, "project_id", "status"),
		newArgs: func() Command { return &UpdateProjectStatus{} },
	},
	KindAddTask: {
		Kind:        KindAddTask,
		Description: "Add a task to a project.",
		Schema: object(map[string]llm.Property{
			"project_id": integer("Project id from list_projects"),
			"title":      str("Task title"),
			"due_date":   str("Due date, YYYY-MM-DD"),
		}, "project_id", "title"),
		newArgs: func() Command { return &AddTask{} },
	},
	KindListTasks: {
		Kind:        KindListTasks,
		Description: "List tasks of a project.",
		Schema: object(map[string]llm.Property{
			"project_id":   integer("Project id from list_projects"),
			"include_done": {Type: "boolean", Description: "Include completed tasks"},
		}, "project_id"),
		newArgs: func() Command { return &ListTasks{} },
	},
	KindCreateEstimate: {
		Kind:        KindCreateEstimate,
		Description: "Save a draft estimate for a client or project.",
		Schema: object(map[string]llm.Property{
			"title":       str("Short estimate title"),
			"amount":      num("Total amount in dollars"),
			"client_name": str("Client the estimate is for"),
			"project_id":  integer("Related project id"),
			"notes":       str("Line items, assumptions, exclusions"),
		}, "title", "amount"),
		newArgs: func() Command { return &CreateEstimate{} },
	},
	KindListEstimates: {
		Kind:        KindListEstimates,
		Description: "List saved estimates.",
		Schema: object(map[string]llm.Property{
			"status": enum("Estimate status", estimateStatuses),
		}),
		newArgs: func() Command { return &ListEstimates{} },
	},
	KindListInvoices: {
		Kind:        KindListInvoices,
		Description: "List invoices, optionally by status.",
		Schema: object(map[string]llm.Property{
			"status": enum("Invoice status", invoiceStatuses),
		}),
		newArgs: func() Command { return &ListInvoices{} },
	},
	KindCreateInvoice: {
		Kind:        KindCreateInvoice,
		Description: "Create an open invoice for a client.",
		Schema: object(map[string]llm.Property{
			"client_name": str("Client to bill"),
			"amount":      num("Amount in dollars"),
			"due_date":    str("Due date, YYYY-MM-DD"),
		}, "client_name", "amount"),
		newArgs: func() Command { return &CreateInvoice{} },
	},
	KindLogExpense: {
		Kind:        KindLogExpense,
		Description: "Record a business expense.",
		Schema: object(map[string]llm.Property{
			"category":   str("Expense category, e.g. materials, fuel, subcontractor"),
			"amount":     num("Amount in dollars"),
			"note":       str("Free-form note"),
			"project_id": integer("Related project id"),
			"spent_at":   str("Date of the expense, YYYY-MM-DD"),
		}, "category", "amount"),
		newArgs: func() Command { return &LogExpense{} },
	},
	KindGetFinancialSummary: {
		Kind:        KindGetFinancialSummary,
		Description: "Summarize invoiced, paid, outstanding and expenses for a period. Defaults to the current month.",
		Schema: object(map[string]llm.Property{
			"from": str("Period start, YYYY-MM-DD"),
			"to":   str("Period end (exclusive), YYYY-MM-DD"),
		}),
		newArgs: func() Command { return &GetFinancialSummary{} },
	},
	KindDraftEmail: {
		Kind:        KindDraftEmail,
		Description: "Draft an email for the user to review. The email is NOT sent; the user approves it separately.",
		Schema: object(map[string]llm.Property{
			"to":          str("Recipient email address"),
			"subject":     str("Subject line"),
			"body":        str("Plain-text body"),
			"client_name": str("Client the email is for"),
		}, "to", "subject", "body"),
		newArgs: func() Command { return &DraftEmail{} },
	},
}

// Lookup возвращает описание инструмента по имени.
func Lookup(kind Kind) (Definition, bool) {
	d, ok := catalog[kind]
	return d, ok
}

// AllKinds возвращает все известные инструменты.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	return kinds
}
