package models

// ActionRequest is a button press forwarded by the chat front end.
type ActionRequest struct {
	Action    string `json:"action" binding:"required"`
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ActionResponse carries whichever view the action produced.
type ActionResponse struct {
	Action  string               `json:"action"`
	Cart    *CartView            `json:"cart,omitempty"`
	Session *SessionView         `json:"session,omitempty"`
	Result  *CommitResult        `json:"result,omitempty"`
	Balance *CashbackBalanceView `json:"cashback,omitempty"`
}
