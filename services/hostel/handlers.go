package main

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pavitra93/go-hostel-management-system/shared/hostel"
	"github.com/pavitra93/go-hostel-management-system/shared/middleware"
	"github.com/pavitra93/go-hostel-management-system/shared/models"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

// Handler serves the hostel API on top of the consistency core
type Handler struct {
	svc *hostel.Service
}

// NewHandler creates a handler for svc
func NewHandler(svc *hostel.Service) *Handler {
	return &Handler{svc: svc}
}

// authorize loads a hostel and checks the caller owns it. It writes the
// error response itself and returns nil when the request must stop.
func (h *Handler) authorize(c *gin.Context, hostelID string) *models.Hostel {
	identity, ok := middleware.GetIdentityFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "User identity required")
		return nil
	}
	hs, err := h.svc.Hostels.Get(c.Request.Context(), hostelID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return nil
	}
	if hs.OwnerID != identity.UserID {
		utils.ForbiddenResponse(c, "You do not manage this hostel")
		return nil
	}
	return hs
}

// refresh recomputes the stats snapshot after a mutation that changed counts
func (h *Handler) refresh(c *gin.Context, hostelID string) {
	h.svc.Stats.RefreshQuietly(c.Request.Context(), hostelID)
}

// Hostels

// CreateHostelRequest represents the create hostel request
type CreateHostelRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

func (h *Handler) handleCreateHostel(c *gin.Context) {
	identity, _ := middleware.GetIdentityFromContext(c)

	var req CreateHostelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	hs, err := h.svc.Hostels.Create(c.Request.Context(), hostel.CreateHostelInput{
		OwnerID: identity.UserID,
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Hostel created successfully", hs)
}

func (h *Handler) handleListHostels(c *gin.Context) {
	identity, _ := middleware.GetIdentityFromContext(c)

	hostels, err := h.svc.Hostels.List(c.Request.Context(), identity.UserID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Hostels retrieved successfully", hostels)
}

func (h *Handler) handleGetHostel(c *gin.Context) {
	hs := h.authorize(c, c.Param("id"))
	if hs == nil {
		return
	}
	utils.OKResponse(c, "Hostel retrieved successfully", hs)
}

func (h *Handler) handleUpdateHostel(c *gin.Context) {
	if h.authorize(c, c.Param("id")) == nil {
		return
	}

	var req hostel.HostelUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	hs, err := h.svc.Hostels.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Hostel updated successfully", hs)
}

func (h *Handler) handleDeactivateHostel(c *gin.Context) {
	if h.authorize(c, c.Param("id")) == nil {
		return
	}

	hs, err := h.svc.Hostels.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Hostel deactivated successfully", hs)
}

// Rooms

// CreateRoomRequest represents the create room request
type CreateRoomRequest struct {
	RoomNumber string          `json:"roomNumber" binding:"required"`
	RoomType   string          `json:"roomType"`
	Floor      int             `json:"floor"`
	TotalBeds  int             `json:"totalBeds" binding:"required"`
	RentPerBed decimal.Decimal `json:"rentPerBed"`
}

func (h *Handler) handleCreateRoom(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	room, err := h.svc.Rooms.CreateRoom(c.Request.Context(), hostel.CreateRoomInput{
		HostelID:   hostelID,
		RoomNumber: req.RoomNumber,
		RoomType:   req.RoomType,
		Floor:      req.Floor,
		TotalBeds:  req.TotalBeds,
		RentPerBed: req.RentPerBed,
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, hostelID)
	utils.CreatedResponse(c, "Room created successfully", room)
}

func (h *Handler) handleListRooms(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	rooms, err := h.svc.Rooms.ListRooms(c.Request.Context(), hostelID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Rooms retrieved successfully", rooms)
}

func (h *Handler) handleListAvailableRooms(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	rooms, err := h.svc.Rooms.ListAvailableRooms(c.Request.Context(), hostelID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Available rooms retrieved successfully", rooms)
}

// loadRoom loads the room named by :id and checks hostel ownership
func (h *Handler) loadRoom(c *gin.Context) *models.Room {
	room, err := h.svc.Rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return nil
	}
	if h.authorize(c, room.HostelID) == nil {
		return nil
	}
	return room
}

func (h *Handler) handleGetRoom(c *gin.Context) {
	room := h.loadRoom(c)
	if room == nil {
		return
	}
	utils.OKResponse(c, "Room retrieved successfully", room)
}

func (h *Handler) handleUpdateRoom(c *gin.Context) {
	room := h.loadRoom(c)
	if room == nil {
		return
	}

	var req hostel.RoomUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	updated, err := h.svc.Rooms.UpdateRoom(c.Request.Context(), room.ID, req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Room updated successfully", updated)
}

func (h *Handler) handleDeleteRoom(c *gin.Context) {
	room := h.loadRoom(c)
	if room == nil {
		return
	}

	if err := h.svc.Rooms.DeleteRoom(c.Request.Context(), room.ID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, room.HostelID)
	utils.OKResponse(c, "Room deleted successfully", nil)
}

// AssignBedRequest represents the assign bed request
type AssignBedRequest struct {
	TenantID string `json:"tenantId" binding:"required"`
}

func bedParam(c *gin.Context) (int, bool) {
	bed, err := strconv.Atoi(c.Param("bed"))
	if err != nil {
		utils.BadRequestResponse(c, "Bed number must be an integer")
		return 0, false
	}
	return bed, true
}

func (h *Handler) handleAssignBed(c *gin.Context) {
	room := h.loadRoom(c)
	if room == nil {
		return
	}
	bed, ok := bedParam(c)
	if !ok {
		return
	}

	var req AssignBedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	if err := h.svc.Rooms.AssignBed(c.Request.Context(), room.ID, bed, req.TenantID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, room.HostelID)
	utils.OKResponse(c, "Bed assigned successfully", nil)
}

func (h *Handler) handleReleaseBed(c *gin.Context) {
	room := h.loadRoom(c)
	if room == nil {
		return
	}
	bed, ok := bedParam(c)
	if !ok {
		return
	}

	if err := h.svc.Rooms.ReleaseBed(c.Request.Context(), room.ID, bed); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, room.HostelID)
	utils.OKResponse(c, "Bed released successfully", nil)
}

// Tenants

func (h *Handler) handleRegisterTenant(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	var req hostel.RegisterTenantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	req.HostelID = hostelID

	tenant, err := h.svc.Tenants.Register(c.Request.Context(), req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, hostelID)
	utils.CreatedResponse(c, "Tenant registered successfully", tenant)
}

func (h *Handler) handleListTenants(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	tenants, err := h.svc.Tenants.List(c.Request.Context(), hostelID, models.TenantStatus(c.Query("status")))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Tenants retrieved successfully", tenants)
}

func (h *Handler) loadTenant(c *gin.Context) *models.Tenant {
	tenant, err := h.svc.Tenants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return nil
	}
	if h.authorize(c, tenant.HostelID) == nil {
		return nil
	}
	return tenant
}

func (h *Handler) handleGetTenant(c *gin.Context) {
	tenant := h.loadTenant(c)
	if tenant == nil {
		return
	}
	utils.OKResponse(c, "Tenant retrieved successfully", tenant)
}

func (h *Handler) handleUpdateTenant(c *gin.Context) {
	tenant := h.loadTenant(c)
	if tenant == nil {
		return
	}

	var req hostel.TenantUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	updated, err := h.svc.Tenants.Update(c.Request.Context(), tenant.ID, req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Tenant updated successfully", updated)
}

func (h *Handler) handleDeleteTenant(c *gin.Context) {
	tenant := h.loadTenant(c)
	if tenant == nil {
		return
	}

	if err := h.svc.Tenants.Delete(c.Request.Context(), tenant.ID); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, tenant.HostelID)
	utils.OKResponse(c, "Tenant deleted successfully", nil)
}

// CheckInRequest represents the check-in request
type CheckInRequest struct {
	RoomID    string `json:"roomId" binding:"required"`
	BedNumber int    `json:"bedNumber" binding:"required"`
}

func (h *Handler) handleCheckIn(c *gin.Context) {
	tenant := h.loadTenant(c)
	if tenant == nil {
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}

	updated, err := h.svc.Tenants.CheckIn(c.Request.Context(), tenant.ID, req.RoomID, req.BedNumber)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, tenant.HostelID)
	utils.OKResponse(c, "Tenant checked in successfully", updated)
}

func (h *Handler) handleCheckOut(c *gin.Context) {
	tenant := h.loadTenant(c)
	if tenant == nil {
		return
	}

	updated, err := h.svc.Tenants.CheckOut(c.Request.Context(), tenant.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	h.refresh(c, tenant.HostelID)
	utils.OKResponse(c, "Tenant checked out successfully", updated)
}

func (h *Handler) handleTenantPayments(c *gin.Context) {
	tenant := h.loadTenant(c)
	if tenant == nil {
		return
	}

	payments, err := h.svc.Payments.TenantPayments(c.Request.Context(), tenant.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Payments retrieved successfully", payments)
}

// Payments

func (h *Handler) handleRecordPayment(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	var req hostel.RecordPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request format")
		return
	}
	req.HostelID = hostelID

	payment, err := h.svc.Payments.RecordPayment(c.Request.Context(), req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.CreatedResponse(c, "Payment recorded successfully", payment)
}

// parseDate accepts RFC3339 timestamps or plain dates
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// dateQuery reads the from/to query parameters. A plain to date covers the
// whole day.
func dateQuery(c *gin.Context) (from, to *time.Time, ok bool) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid from date")
		return nil, nil, false
	}
	to, err = parseDate(c.Query("to"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid to date")
		return nil, nil, false
	}
	if to != nil && !strings.Contains(c.Query("to"), "T") {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return from, to, true
}

func (h *Handler) handleListPayments(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}
	from, to, ok := dateQuery(c)
	if !ok {
		return
	}

	payments, err := h.svc.Payments.ListPayments(c.Request.Context(), hostel.PaymentFilter{
		HostelID: hostelID,
		TenantID: c.Query("tenantId"),
		Status:   models.PaymentStatus(c.Query("status")),
		From:     from,
		To:       to,
	})
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Payments retrieved successfully", payments)
}

func (h *Handler) handlePaymentStats(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}
	from, to, ok := dateQuery(c)
	if !ok {
		return
	}

	var period *hostel.DateRange
	if from != nil || to != nil {
		if from == nil || to == nil {
			utils.BadRequestResponse(c, "Both from and to are required for a date range")
			return
		}
		period = &hostel.DateRange{From: *from, To: *to}
	}

	stats, err := h.svc.Payments.ComputeStats(c.Request.Context(), hostelID, period)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Payment stats retrieved successfully", stats)
}

func (h *Handler) loadPayment(c *gin.Context) *models.Payment {
	payment, err := h.svc.Payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return nil
	}
	if h.authorize(c, payment.HostelID) == nil {
		return nil
	}
	return payment
}

func (h *Handler) handleGetPayment(c *gin.Context) {
	payment := h.loadPayment(c)
	if payment == nil {
		return
	}
	utils.OKResponse(c, "Payment retrieved successfully", payment)
}

// CompletePaymentRequest represents the mark-completed request
type CompletePaymentRequest struct {
	PaymentDate *time.Time `json:"paymentDate"`
}

func (h *Handler) handleCompletePayment(c *gin.Context) {
	payment := h.loadPayment(c)
	if payment == nil {
		return
	}

	var req CompletePaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}
	}
	var paidAt time.Time
	if req.PaymentDate != nil {
		paidAt = *req.PaymentDate
	}

	updated, err := h.svc.Payments.MarkCompleted(c.Request.Context(), payment.ID, paidAt)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Payment marked as completed", updated)
}

func (h *Handler) handleCancelPayment(c *gin.Context) {
	payment := h.loadPayment(c)
	if payment == nil {
		return
	}

	updated, err := h.svc.Payments.CancelPayment(c.Request.Context(), payment.ID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Payment cancelled successfully", updated)
}

// handleListPending lists pending payments of one hostel, or of every
// hostel the caller owns when hostelId is omitted
func (h *Handler) handleListPending(c *gin.Context) {
	ctx := c.Request.Context()

	if hostelID := c.Query("hostelId"); hostelID != "" {
		if h.authorize(c, hostelID) == nil {
			return
		}
		payments, err := h.svc.Payments.ListPending(ctx, hostelID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		utils.OKResponse(c, "Pending payments retrieved successfully", payments)
		return
	}

	identity, _ := middleware.GetIdentityFromContext(c)
	hostels, err := h.svc.Hostels.List(ctx, identity.UserID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	pending := []models.Payment{}
	for _, hs := range hostels {
		payments, err := h.svc.Payments.ListPending(ctx, hs.ID)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		pending = append(pending, payments...)
	}
	// ListPending orders each hostel by due date; keep that across hostels
	sortByDueDate(pending)
	utils.OKResponse(c, "Pending payments retrieved successfully", pending)
}

// Stats

func (h *Handler) handleGetStats(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	stats, err := h.svc.Stats.Cached(c.Request.Context(), hostelID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Stats retrieved successfully", stats)
}

func (h *Handler) handleRefreshStats(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	stats, err := h.svc.Stats.Refresh(c.Request.Context(), hostelID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Stats refreshed successfully", stats)
}

func (h *Handler) handleOverview(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	overview, err := h.svc.Overview(c.Request.Context(), hostelID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.OKResponse(c, "Overview retrieved successfully", overview)
}

func (h *Handler) handleReconcile(c *gin.Context) {
	hostelID := c.Param("id")
	if h.authorize(c, hostelID) == nil {
		return
	}

	report, err := h.svc.Reconciler.Reconcile(c.Request.Context(), hostelID)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	message := "Hostel is consistent"
	if !report.Consistent() {
		message = "Mismatches found"
	}
	utils.OKResponse(c, message, report)
}

func sortByDueDate(payments []models.Payment) {
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].DueDate.Before(payments[j].DueDate)
	})
}
