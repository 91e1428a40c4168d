package erp

// DateLayout is the date format used by ERPNext.
const DateLayout = "2006-01-02"

// Document statuses used in filters and reports.
const (
	StatusPaid      = "Paid"
	StatusUnpaid    = "Unpaid"
	StatusOverdue   = "Overdue"
	StatusCancelled = "Cancelled"
	StatusDraft     = "Draft"
	StatusOpen      = "Open"
	StatusOrdered   = "Ordered"
)

// Customer is an ERPNext Customer document.
type Customer struct {
	Name          string `json:"name"`
	CustomerName  string `json:"customer_name"`
	CustomerType  string `json:"customer_type,omitempty"`
	CustomerGroup string `json:"customer_group,omitempty"`
	Territory     string `json:"territory,omitempty"`
	Email         string `json:"email_id,omitempty"`
	Mobile        string `json:"mobile_no,omitempty"`
}

// CustomerInput holds fields for a new customer.
type CustomerInput struct {
	Name      string
	Email     string
	Phone     string
	Type      string
	Group     string
	Territory string
}

// QuotationItem is a quotation line.
type QuotationItem struct {
	ItemCode    string  `json:"item_code"`
	ItemName    string  `json:"item_name,omitempty"`
	Qty         float64 `json:"qty"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Quotation is an ERPNext Quotation document.
type Quotation struct {
	Name            string          `json:"name"`
	PartyName       string          `json:"party_name"`
	CustomerName    string          `json:"customer_name,omitempty"`
	TransactionDate string          `json:"transaction_date,omitempty"`
	ValidTill       string          `json:"valid_till,omitempty"`
	GrandTotal      float64         `json:"grand_total"`
	Status          string          `json:"status,omitempty"`
	DocStatus       int             `json:"docstatus,omitempty"`
	Terms           string          `json:"terms,omitempty"`
	Items           []QuotationItem `json:"items,omitempty"`
}

// QuotationInput holds fields for a new quotation.
type QuotationInput struct {
	Customer  string
	Items     []QuotationItem
	ValidTill string
	Terms     string
}

// InvoiceItem is a sales invoice line.
type InvoiceItem struct {
	ItemCode string  `json:"item_code"`
	ItemName string  `json:"item_name"`
	Qty      float64 `json:"qty"`
	Rate     float64 `json:"rate"`
	Amount   float64 `json:"amount"`
}

// SalesInvoice is an ERPNext Sales Invoice document, POS or not.
type SalesInvoice struct {
	Name              string        `json:"name"`
	Customer          string        `json:"customer"`
	PostingDate       string        `json:"posting_date"`
	PostingTime       string        `json:"posting_time,omitempty"`
	DueDate           string        `json:"due_date,omitempty"`
	GrandTotal        float64       `json:"grand_total"`
	PaidAmount        float64       `json:"paid_amount,omitempty"`
	OutstandingAmount float64       `json:"outstanding_amount"`
	Status            string        `json:"status"`
	POSProfile        string        `json:"pos_profile,omitempty"`
	Owner             string        `json:"owner,omitempty"`
	Items             []InvoiceItem `json:"items,omitempty"`
}

// Item is an ERPNext Item document.
type Item struct {
	Name         string  `json:"name"`
	ItemCode     string  `json:"item_code"`
	ItemName     string  `json:"item_name"`
	ItemGroup    string  `json:"item_group,omitempty"`
	StockUOM     string  `json:"stock_uom,omitempty"`
	StandardRate float64 `json:"standard_rate"`
	IsStockItem  int     `json:"is_stock_item"`
	Description  string  `json:"description,omitempty"`
}

// UserSales aggregates sales by the user who created them.
type UserSales struct {
	User  string  `json:"user"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// DailyRevenue summarizes POS invoices of one day.
type DailyRevenue struct {
	Date         string      `json:"date"`
	TotalRevenue float64     `json:"total_revenue"`
	TotalPaid    float64     `json:"total_paid"`
	InvoiceCount int         `json:"invoice_count"`
	ByUser       []UserSales `json:"by_user"`
}

// ItemSales aggregates sold quantity and amount for one item.
type ItemSales struct {
	ItemCode string  `json:"item_code"`
	ItemName string  `json:"item_name"`
	Qty      float64 `json:"qty"`
	Amount   float64 `json:"amount"`
}

// POSOpening is a POS Opening Entry.
type POSOpening struct {
	Name        string `json:"name"`
	POSProfile  string `json:"pos_profile"`
	User        string `json:"user"`
	PostingDate string `json:"posting_date"`
	Status      string `json:"status"`
}

// POSClosing is a POS Closing Entry.
type POSClosing struct {
	Name          string  `json:"name"`
	POSProfile    string  `json:"pos_profile"`
	User          string  `json:"user"`
	PostingDate   string  `json:"posting_date"`
	GrandTotal    float64 `json:"grand_total"`
	NetTotal      float64 `json:"net_total"`
	TotalQuantity float64 `json:"total_quantity"`
}

// CashierStatus describes today's POS sessions.
type CashierStatus struct {
	Date           string       `json:"date"`
	Openings       []POSOpening `json:"openings"`
	Closings       []POSClosing `json:"closings"`
	HasOpenSession bool         `json:"has_open_session"`
}
