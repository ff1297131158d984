package handlers

import (
	"github.com/gin-gonic/gin"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/domain/inventory"
	"bottleworks/internal/infrastructure/http/v1/dto"
	"bottleworks/internal/infrastructure/metrics"
)

// InventoryHandler serves the stock account and ledger endpoints.
type InventoryHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(service *inventory.Service) *InventoryHandler {
	return &InventoryHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Create handles POST /accounts.
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	account, err := h.service.CreateAccount(
		c.Request.Context(),
		inventory.AccountKind(req.Kind),
		req.Name, req.Unit, req.MinimumThreshold,
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromAccount(account))
}

// Get handles GET /accounts/:id.
func (h *InventoryHandler) Get(c *gin.Context) {
	accountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	account, err := h.service.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromAccount(account))
}

// List handles GET /accounts.
func (h *InventoryHandler) List(c *gin.Context) {
	var query dto.ListAccountsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	var kind *inventory.AccountKind
	if query.Kind != "" {
		k := inventory.AccountKind(query.Kind)
		if !k.Valid() {
			h.Error(c, apperror.NewValidation("unknown account kind").WithDetail("kind", query.Kind))
			return
		}
		kind = &k
	}

	accounts, err := h.service.ListAccounts(c.Request.Context(), kind)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, dto.FromAccount(a))
	}
	h.RespondList(c, items, len(items))
}

// PostPurchase handles POST /accounts/:id/purchases.
func (h *InventoryHandler) PostPurchase(c *gin.Context) {
	accountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PostPurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}

	txn, err := h.service.PostPurchase(c.Request.Context(), accountID, req.Quantity, req.UnitCost, req.Reference)
	if err != nil {
		h.recordRejection(err)
		h.Error(c, err)
		return
	}

	metrics.LedgerPostingsTotal.WithLabelValues(string(txn.Kind)).Inc()
	h.Created(c, dto.FromTransaction(txn))
}

// PostDamage handles POST /accounts/:id/damages.
// May return several ledger entries: material damage is costed per lot.
func (h *InventoryHandler) PostDamage(c *gin.Context) {
	accountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PostDamageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	txns, err := h.service.PostDamage(c.Request.Context(), accountID, req.Quantity, req.Reference)
	if err != nil {
		h.recordRejection(err)
		h.Error(c, err)
		return
	}

	for _, t := range txns {
		metrics.LedgerPostingsTotal.WithLabelValues(string(t.Kind)).Inc()
	}
	h.Created(c, dto.FromTransactions(txns))
}

// ListTransactions handles GET /accounts/:id/transactions.
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	accountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var query dto.ListTransactionsQuery
	if !h.BindQuery(c, &query) {
		return
	}

	txns, err := h.service.ListTransactions(c.Request.Context(), accountID, query.Limit, query.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromTransactions(txns)
	h.RespondList(c, items, len(items))
}

// ListLots handles GET /accounts/:id/lots.
func (h *InventoryHandler) ListLots(c *gin.Context) {
	accountID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	lots, err := h.service.ListLots(c.Request.Context(), accountID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromLots(lots)
	h.RespondList(c, items, len(items))
}

// recordRejection counts rejected postings by error code.
func (h *BaseHandler) recordRejection(err error) {
	if appErr, ok := apperror.AsAppError(err); ok {
		switch appErr.Code {
		case apperror.CodeInsufficientStock, apperror.CodeInsufficientLots,
			apperror.CodeInvalidQuantity, apperror.CodeConcurrentModification:
			metrics.LedgerPostingsRejected.WithLabelValues(appErr.Code).Inc()
		}
	}
}
