package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homechef/entity"
	"homechef/pkg/resp"
	"homechef/services"
	"homechef/utils"
)

type OrderController struct {
	Orders *services.OrderService
	Log    *zap.Logger
}

func NewOrderController(orders *services.OrderService, log *zap.Logger) *OrderController {
	return &OrderController{Orders: orders, Log: log}
}

// POST /orders
func (oc *OrderController) Create(c *gin.Context) {
	var req services.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	o, err := oc.Orders.Create(c.Request.Context(), utils.CurrentUserID(c), &req)
	if err != nil {
		fail(c, oc.Log, err)
		return
	}
	resp.Created(c, o)
}

// GET /orders/:id
func (oc *OrderController) Detail(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid order id")
		return
	}
	o, err := oc.Orders.Get(c.Request.Context(), utils.CurrentUserID(c), utils.CurrentRole(c), id)
	if err != nil {
		fail(c, oc.Log, err)
		return
	}
	resp.OK(c, o)
}

type updateStatusReq struct {
	Status entity.OrderStatus `json:"status" binding:"required"`
}

// PUT /orders/:id/status
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid order id")
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}

	o, err := oc.Orders.UpdateStatus(c.Request.Context(), utils.CurrentUserID(c), id, req.Status)
	if err != nil {
		fail(c, oc.Log, err)
		return
	}
	resp.OK(c, o)
}

// PUT /orders/:id/cancel
func (oc *OrderController) Cancel(c *gin.Context) {
	id, ok := utils.ParamUint(c, "id")
	if !ok {
		resp.BadRequest(c, "invalid order id")
		return
	}
	o, err := oc.Orders.Cancel(c.Request.Context(), utils.CurrentUserID(c), id)
	if err != nil {
		fail(c, oc.Log, err)
		return
	}
	resp.OK(c, o)
}
