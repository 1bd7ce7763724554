package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizhub/internal/actorcontext"
	invoicedomain "github.com/smallbiznis/bizhub/internal/invoice/domain"
	"github.com/smallbiznis/bizhub/pkg/db/pagination"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": invoice})
}

type listInvoicesQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query listInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoicesRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoice(c *gin.Context) {
	invoiceID, err := invoicedomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}

func (s *Server) AddInvoiceItem(c *gin.Context) {
	invoiceID, err := invoicedomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req invoicedomain.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.invoiceSvc.AddItem(c.Request.Context(), invoiceID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

type listInvoiceItemsQuery struct {
	IncludeVoided bool `form:"include_voided"`
}

func (s *Server) ListInvoiceItems(c *gin.Context) {
	invoiceID, err := invoicedomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query listInvoiceItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var items []invoicedomain.InvoiceItem
	if query.IncludeVoided {
		items, err = s.invoiceSvc.ListItems(c.Request.Context(), invoiceID)
	} else {
		items, err = s.invoiceSvc.ListActiveItems(c.Request.Context(), invoiceID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) VoidInvoiceItem(c *gin.Context) {
	if _, err := invoicedomain.ParseID(c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	itemID, err := invoicedomain.ParseID(c.Param("itemId"))
	if err != nil {
		AbortWithError(c, invoicedomain.ErrItemNotFound)
		return
	}

	var req invoicedomain.VoidItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	var actor *snowflake.ID
	if id, ok := actorcontext.ActorFromContext(ctx); ok {
		actor = &id
	}

	item, err := s.invoiceSvc.VoidItem(ctx, itemID, actor, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
