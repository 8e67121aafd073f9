package handler

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/coletas-service/internal/document"
	"github.com/mmeshcher/coletas-service/internal/model"
)

// Invoice отдаёт счёт по накладной в формате PDF.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, document.InvoiceFilename, document.WriteInvoice)
}

// Label отдаёт транспортную этикетку по накладной в формате PDF.
func (h *Handler) Label(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, document.LabelFilename, document.WriteLabel)
}

func (h *Handler) servePDF(
	w http.ResponseWriter,
	r *http.Request,
	filename func(string) string,
	render func(io.Writer, *model.Shipment) error,
) {
	nf := chi.URLParam(r, "nf")

	sh, err := h.service.ShipmentByInvoice(r.Context(), nf)
	if err != nil {
		h.writeError(w, r, err, zap.String("invoice_number", nf))
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, sh); err != nil {
		h.writeError(w, r, err, zap.String("invoice_number", nf))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment(filename(sh.InvoiceNumber)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// attachment формирует Content-Disposition; имя файла экранируется по RFC 2045/2231.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
