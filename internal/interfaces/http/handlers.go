package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/procurehub/purchase-workflow/internal/application/port"
	"github.com/procurehub/purchase-workflow/internal/application/service"
	appworkflow "github.com/procurehub/purchase-workflow/internal/application/workflow"
	"github.com/procurehub/purchase-workflow/internal/domain/entity"
	domainwf "github.com/procurehub/purchase-workflow/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine    appworkflow.WorkflowEngine
	queries   service.QueryService
	audit     service.AuditTrail
	threshold service.ThresholdPolicy
	directory service.ManagerDirectory
	reports   service.ReportService
	logger    Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine appworkflow.WorkflowEngine,
	queries service.QueryService,
	audit service.AuditTrail,
	threshold service.ThresholdPolicy,
	directory service.ManagerDirectory,
	reports service.ReportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:    engine,
		queries:   queries,
		audit:     audit,
		threshold: threshold,
		directory: directory,
		reports:   reports,
		logger:    logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// actionRequest carries the actor identity plus the per-transition payload
// fields. Each handler reads only the fields its transition needs.
type actionRequest struct {
	ActorID   string `json:"actor_id" binding:"required"`
	ActorName string `json:"actor_name"`
	ActorRole string `json:"actor_role" binding:"required"`
	Comments  string `json:"comments"`

	VendorVerificationStatus string `json:"vendor_verification_status"`
	AlternativeVendor        string `json:"alternative_vendor"`
	BudgetCode               string `json:"budget_code"`
	PaymentMethod            string `json:"payment_method"`
	LetterheadRef            string `json:"letterhead_ref"`
	DocumentTemplate         string `json:"document_template"`
	PaymentReference         string `json:"payment_reference"`
	TransactionID            string `json:"transaction_id"`
	PaymentDate              string `json:"payment_date"`
}

func (r actionRequest) actor() (entity.Actor, error) {
	role := entity.Role(strings.ToUpper(r.ActorRole))
	if !role.IsValid() {
		return entity.Actor{}, errors.New("unknown actor role: " + r.ActorRole)
	}
	return entity.Actor{ID: r.ActorID, Name: r.ActorName, Role: role}, nil
}

// listRequestsQuery represents query parameters for listing requests
type listRequestsQuery struct {
	Status      string `form:"status"`
	RequesterID string `form:"requester_id"`
	ManagerID   string `form:"manager_id"`
	Department  string `form:"department"`
	Priority    string `form:"priority"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// thresholdRequest represents the admin threshold update body
type thresholdRequest struct {
	Threshold decimal.Decimal `json:"threshold" binding:"required"`
}

// managerRequest represents the admin manager registration body
type managerRequest struct {
	ManagerID  string `json:"manager_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Department string `json:"department"`
	Active     *bool  `json:"active"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var input appworkflow.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	req, err := h.engine.Create(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, "create request", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q listRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	filter := port.RequestFilter{
		RequesterID: q.RequesterID,
		ManagerID:   q.ManagerID,
		Department:  q.Department,
		Priority:    q.Priority,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}

	var requests []*entity.PurchaseRequest
	var err error
	if q.Status != "" {
		status := domainwf.Status(strings.ToUpper(q.Status))
		requests, err = h.queries.FindByStatus(c.Request.Context(), status, filter)
	} else {
		requests, err = h.queries.List(c.Request.Context(), filter)
	}
	if err != nil {
		h.writeError(c, "list requests", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.queries.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get request", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	history, err := h.audit.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "get history", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// transition binds the action body and runs fn, writing the updated request
// or a mapped error
func (h *Handlers) transition(c *gin.Context, name string, fn func(actionRequest, entity.Actor) (*entity.PurchaseRequest, error)) {
	var body actionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	actor, err := body.actor()
	if err != nil {
		h.badRequest(c, err.Error(), nil)
		return
	}

	req, err := fn(body, actor)
	if err != nil {
		h.writeError(c, name, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// ApproveManagerStage handles POST /api/requests/:id/approve
func (h *Handlers) ApproveManagerStage(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "manager approve", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.ApproveManagerStage(c.Request.Context(), id, actor, body.Comments)
	})
}

// RejectManagerStage handles POST /api/requests/:id/reject
func (h *Handlers) RejectManagerStage(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "manager reject", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.RejectManagerStage(c.Request.Context(), id, actor, body.Comments)
	})
}

// ApproveProcurement handles POST /api/requests/:id/procurement/approve
func (h *Handlers) ApproveProcurement(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "procurement approve", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.ApproveProcurement(c.Request.Context(), id, actor, body.Comments, body.VendorVerificationStatus)
	})
}

// RejectProcurement handles POST /api/requests/:id/procurement/reject
func (h *Handlers) RejectProcurement(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "procurement reject", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.RejectProcurement(c.Request.Context(), id, actor, body.Comments)
	})
}

// RequestAlternativeVendor handles POST /api/requests/:id/procurement/alternative-vendor
func (h *Handlers) RequestAlternativeVendor(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "request alternative vendor", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.RequestAlternativeVendor(c.Request.Context(), id, actor, body.Comments, body.AlternativeVendor)
	})
}

// ApproveFinance handles POST /api/requests/:id/finance/approve
func (h *Handlers) ApproveFinance(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "finance approve", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.ApproveFinance(c.Request.Context(), id, actor, body.Comments, body.BudgetCode, body.PaymentMethod)
	})
}

// RejectFinance handles POST /api/requests/:id/finance/reject
func (h *Handlers) RejectFinance(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "finance reject", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.RejectFinance(c.Request.Context(), id, actor, body.Comments)
	})
}

// SubmitPaymentLetter handles POST /api/requests/:id/payment-letter
func (h *Handlers) SubmitPaymentLetter(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "submit payment letter", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.SubmitPaymentLetter(c.Request.Context(), id, actor, body.LetterheadRef, body.DocumentTemplate)
	})
}

// ConfirmPayment handles POST /api/requests/:id/payment/confirm
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "confirm payment", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.ConfirmPayment(c.Request.Context(), id, actor, appworkflow.ConfirmPaymentInput{
			PaymentReference: body.PaymentReference,
			TransactionID:    body.TransactionID,
			PaymentDate:      body.PaymentDate,
			PaymentMethod:    body.PaymentMethod,
			Comments:         body.Comments,
		})
	})
}

// ConfirmDelivery handles POST /api/requests/:id/delivery/confirm
func (h *Handlers) ConfirmDelivery(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "confirm delivery", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.ConfirmDelivery(c.Request.Context(), id, actor, body.Comments)
	})
}

// CancelRequest handles POST /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	id := c.Param("id")
	h.transition(c, "cancel request", func(body actionRequest, actor entity.Actor) (*entity.PurchaseRequest, error) {
		return h.engine.Cancel(c.Request.Context(), id, actor, body.Comments)
	})
}

// PendingForRole handles GET /api/queues/roles/:role
func (h *Handlers) PendingForRole(c *gin.Context) {
	role := entity.Role(strings.ToUpper(c.Param("role")))
	if !role.IsValid() {
		h.badRequest(c, "unknown role: "+c.Param("role"), nil)
		return
	}

	requests, err := h.queries.FindPendingForRole(c.Request.Context(), role)
	if err != nil {
		h.writeError(c, "pending for role", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// PendingForManager handles GET /api/queues/managers/:managerID
func (h *Handlers) PendingForManager(c *gin.Context) {
	requests, err := h.queries.FindPendingForManager(c.Request.Context(), c.Param("managerID"))
	if err != nil {
		h.writeError(c, "pending for manager", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// Dashboard handles GET /api/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	stats, err := h.queries.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, "dashboard stats", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ExportRegister handles POST /api/reports/register
func (h *Handlers) ExportRegister(c *gin.Context) {
	path, err := h.reports.ExportRegister(c.Request.Context())
	if err != nil {
		h.writeError(c, "export register", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"report_path": path},
	})
}

// GetThreshold handles GET /api/admin/threshold
func (h *Handlers) GetThreshold(c *gin.Context) {
	value, err := h.threshold.Threshold(c.Request.Context())
	if err != nil {
		h.writeError(c, "get threshold", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"threshold": value},
	})
}

// SetThreshold handles PUT /api/admin/threshold
func (h *Handlers) SetThreshold(c *gin.Context) {
	var body thresholdRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	if err := h.threshold.SetThreshold(c.Request.Context(), body.Threshold); err != nil {
		h.writeError(c, "set threshold", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"threshold": body.Threshold},
	})
}

// ListManagers handles GET /api/admin/managers
func (h *Handlers) ListManagers(c *gin.Context) {
	managers, err := h.directory.ListActive(c.Request.Context())
	if err != nil {
		h.writeError(c, "list managers", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: managers})
}

// RegisterManager handles POST /api/admin/managers
func (h *Handlers) RegisterManager(c *gin.Context) {
	var body managerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	active := true
	if body.Active != nil {
		active = *body.Active
	}

	assignment := &entity.ManagerAssignment{
		ManagerID:  body.ManagerID,
		Name:       body.Name,
		Email:      body.Email,
		Department: body.Department,
		Active:     active,
	}

	if err := h.directory.Register(c.Request.Context(), assignment); err != nil {
		h.writeError(c, "register manager", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: assignment})
}

// badRequest writes a 400 response
func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	if err != nil {
		h.logger.Error("Bad request", "error", err)
	}
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// writeError maps domain errors to HTTP status codes. Storage and other
// unexpected errors carry driver detail, so the client gets a fixed message
// and the full error goes to the log only.
func (h *Handlers) writeError(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainwf.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domainwf.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domainwf.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainwf.ErrInvalidState):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Operation failed", "operation", op, "error", err)
		c.JSON(status, Response{Success: false, Error: "temporary storage failure, please retry"})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}
