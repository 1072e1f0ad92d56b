package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tarumnet/mikrobill/internal/providers/pdf"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
)

// CreateSale records a manual ledger entry, for payments taken outside the
// activation flow.
func (s *Server) CreateSale(c *gin.Context) {
	var req saledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		ClientID string `form:"client_id"`
		From     string `form:"from"`
		To       string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListRequest{
		ClientID: strings.TrimSpace(query.ClientID),
		From:     strings.TrimSpace(query.From),
		To:       strings.TrimSpace(query.To),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	resp, err := s.saleSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteSale(c *gin.Context) {
	if err := s.saleSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) GetSaleReceipt(c *gin.Context) {
	sale, err := s.saleSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.receipts.GenerateReceipt(c.Request.Context(), pdf.ReceiptData{
		ReceiptNumber: sale.ID.String(),
		ClientName:    sale.ClientName,
		Contact:       sale.Contact,
		PlanName:      sale.PlanName,
		Currency:      sale.Currency,
		Price:         sale.PlanPrice,
		Discount:      sale.Discount,
		Total:         sale.Total,
		SoldAt:        sale.SoldAt,
		Footer:        s.portal.Get().ReceiptFooter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="receipt-`+sale.ID.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}
