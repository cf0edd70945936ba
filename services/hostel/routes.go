package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/go-hostel-management-system/shared/middleware"
	"github.com/pavitra93/go-hostel-management-system/shared/utils"
)

// setupRouter registers the hostel API. Every route except /health expects
// the identity headers set by the gateway.
func setupRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Hostel service is healthy", nil)
	})

	api := router.Group("/")
	api.Use(middleware.RequireForwardedIdentity())

	hostels := api.Group("/hostels")
	{
		hostels.POST("", h.handleCreateHostel)
		hostels.GET("", h.handleListHostels)
		hostels.GET("/:id", h.handleGetHostel)
		hostels.PUT("/:id", h.handleUpdateHostel)
		hostels.POST("/:id/deactivate", h.handleDeactivateHostel)

		hostels.POST("/:id/rooms", h.handleCreateRoom)
		hostels.GET("/:id/rooms", h.handleListRooms)
		hostels.GET("/:id/rooms/available", h.handleListAvailableRooms)

		hostels.POST("/:id/tenants", h.handleRegisterTenant)
		hostels.GET("/:id/tenants", h.handleListTenants)

		hostels.POST("/:id/payments", h.handleRecordPayment)
		hostels.GET("/:id/payments", h.handleListPayments)
		hostels.GET("/:id/payments/stats", h.handlePaymentStats)

		hostels.GET("/:id/stats", h.handleGetStats)
		hostels.POST("/:id/stats/refresh", h.handleRefreshStats)
		hostels.GET("/:id/overview", h.handleOverview)
		hostels.POST("/:id/reconcile", h.handleReconcile)
	}

	rooms := api.Group("/rooms")
	{
		rooms.GET("/:id", h.handleGetRoom)
		rooms.PUT("/:id", h.handleUpdateRoom)
		rooms.DELETE("/:id", h.handleDeleteRoom)
		rooms.POST("/:id/beds/:bed/assign", h.handleAssignBed)
		rooms.POST("/:id/beds/:bed/release", h.handleReleaseBed)
	}

	tenants := api.Group("/tenants")
	{
		tenants.GET("/:id", h.handleGetTenant)
		tenants.PUT("/:id", h.handleUpdateTenant)
		tenants.DELETE("/:id", h.handleDeleteTenant)
		tenants.POST("/:id/check-in", h.handleCheckIn)
		tenants.POST("/:id/check-out", h.handleCheckOut)
		tenants.GET("/:id/payments", h.handleTenantPayments)
	}

	payments := api.Group("/payments")
	{
		payments.GET("/pending", h.handleListPending)
		payments.GET("/:id", h.handleGetPayment)
		payments.POST("/:id/complete", h.handleCompletePayment)
		payments.POST("/:id/cancel", h.handleCancelPayment)
	}

	return router
}
