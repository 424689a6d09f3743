package models

import "time"

// Client заказчик подрядчика.
type Client struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientNote заметка CRM о заказчике.
type ClientNote struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	ClientID  int64     `json:"client_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Project объект работ.
type Project struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"-"`
	ClientID   *int64     `json:"client_id"`
	ClientName string     `json:"client_name,omitempty"`
	Name       string     `json:"name"`
	Address    string     `json:"address,omitempty"`
	Status     string     `json:"status"`
	Budget     float64    `json:"budget,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Task задача внутри проекта.
type Task struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"-"`
	ProjectID int64      `json:"project_id"`
	Title     string     `json:"title"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"created_at"`
}

// Estimate смета.
type Estimate struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"-"`
	ClientID   *int64    `json:"client_id"`
	ClientName string    `json:"client_name,omitempty"`
	ProjectID  *int64    `json:"project_id,omitempty"`
	Title      string    `json:"title"`
	Amount     float64   `json:"amount"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Invoice счёт заказчику.
type Invoice struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"-"`
	ClientID   *int64     `json:"client_id"`
	ClientName string     `json:"client_name,omitempty"`
	Amount     float64    `json:"amount"`
	Status     string     `json:"status"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Expense расход подрядчика.
type Expense struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	ProjectID *int64    `json:"project_id,omitempty"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note,omitempty"`
	SpentAt   time.Time `json:"spent_at"`
	CreatedAt time.Time `json:"created_at"`
}

// FinancialSummary агрегаты по счетам и расходам за период.
type FinancialSummary struct {
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	Invoiced       float64   `json:"invoiced"`
	Paid           float64   `json:"paid"`
	Outstanding    float64   `json:"outstanding"`
	Expenses       float64   `json:"expenses"`
	NetCashflow    float64   `json:"net_cashflow"`
	OpenInvoiceCnt int       `json:"open_invoice_count"`
}
