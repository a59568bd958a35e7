package transport

import (
	"bytes"
	"net/http"
	"time"

	"boutique/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeaders = []string{
	"ID", "Title", "Brand", "Category", "Size", "Color",
	"Price", "Stock", "ImageURL", "CreatedAt",
}

// AdminHandler serves the back-office endpoints
type AdminHandler struct {
	productService service.ProductService
	orderStream    http.Handler
	logger         *zap.Logger
}

// NewAdminHandler creates a new AdminHandler. orderStream upgrades a request
// to the live order feed.
func NewAdminHandler(productService service.ProductService, orderStream http.Handler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		productService: productService,
		orderStream:    orderStream,
		logger:         logger,
	}
}

// RegisterRoutes registers the admin routes; every one needs the admin role
func (h *AdminHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	mw = mw.withDefaults()

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Auth, mw.Admin)
		r.Get("/products/export", h.ExportProducts)
		if h.orderStream != nil {
			r.Handle("/orders/stream", h.orderStream)
		}
	})
}

// ExportProducts downloads the whole catalog as a spreadsheet
func (h *AdminHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.Export(r.Context())
	if err != nil {
		respondError(w, h.logger, "Export products", err)
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		respondError(w, h.logger, "Export products", err)
		return
	}

	headerRow := sheet.AddRow()
	for _, header := range exportHeaders {
		headerRow.AddCell().SetString(header)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetString(p.Title)
		row.AddCell().SetString(p.Brand)
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.Size)
		row.AddCell().SetString(p.Color)
		row.AddCell().SetFloat(p.Price.InexactFloat64())
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetString(p.CreatedAt.UTC().Format(time.RFC3339))
	}

	// render fully first so a failure can still answer with JSON
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		respondError(w, h.logger, "Export products", err)
		return
	}

	h.logger.Info("Catalog exported", zap.Int("products", len(products)))

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("Failed to write export", zap.Error(err))
	}
}
