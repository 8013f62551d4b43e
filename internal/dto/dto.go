package dto

type InvoiceItemRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Taxed       bool   `json:"taxed"`
}

type CreateInvoiceRequest struct {
	Currency string                `json:"currency"`
	Items    []*InvoiceItemRequest `json:"items"`
}

type InvoiceItemResponse struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Taxed       bool   `json:"taxed"`
}

type InvoiceResponse struct {
	ID       uint                   `json:"id"`
	Currency string                 `json:"currency"`
	Status   string                 `json:"status"`
	Total    string                 `json:"total"`
	Items    []*InvoiceItemResponse `json:"items"`
}

type PayResponse struct {
	OrderID          string `json:"order_id"`
	OrderApprovalURL string `json:"order_approval_url"`
	Total            string `json:"total"`
	Fee              string `json:"fee"`
}
