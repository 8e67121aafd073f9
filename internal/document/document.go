// Package document формирует PDF-счёт и транспортную этикетку для груза.
package document

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/mmeshcher/coletas-service/internal/model"
)

const (
	companyName    = "Transportes Linhares"
	companyAddress = "Rua Santo Antônio, 1372, Centro, Ouro Branco"
	dateLayout     = "02/01/2006"
	fontFamily     = "Helvetica"
)

// InvoiceFilename имя файла счёта для заголовка Content-Disposition.
func InvoiceFilename(invoiceNumber string) string {
	return "fatura_" + invoiceNumber + ".pdf"
}

// LabelFilename имя файла этикетки для заголовка Content-Disposition.
func LabelFilename(invoiceNumber string) string {
	return "etiqueta_" + invoiceNumber + ".pdf"
}

// WriteInvoice выводит демонстрационный счёт формата A4.
func WriteInvoice(w io.Writer, s *model.Shipment) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 20)
	pdf.CellFormat(0, 10, tr(companyName), "", 1, "C", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 6, tr(companyAddress), "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont(fontFamily, "B", 18)
	pdf.CellFormat(0, 10, tr("FATURA (Demonstração)"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont(fontFamily, "", 12)
	pdf.CellFormat(90, 7, tr("Nota Fiscal: "+s.InvoiceNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Data Emissão: "+s.CreatedAt.Format(dateLayout)), "", 1, "R", false, 0, "")
	line(pdf, tr("Cliente: "+s.ClientName))
	line(pdf, tr("Remetente (CPF/CNPJ): "+s.SenderTaxID))
	line(pdf, tr("Destinatário (CPF/CNPJ): "+s.RecipientTaxID))
	pdf.Ln(6)

	weight := "N/A"
	if s.WeightKg != nil {
		weight = strconv.FormatFloat(*s.WeightKg, 'f', -1, 64)
	}
	line(pdf, tr(fmt.Sprintf("Serviço: Transporte de carga (%s Kg)", weight)))
	pdf.MultiCell(0, 7, tr("Endereço de Coleta: "+s.PickupAddress), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 9, tr("Valor Total: R$ "+s.FreightValue.StringFixed(2)), "", 1, "R", false, 0, "")

	due := "A combinar"
	if s.DueDate != nil {
		due = s.DueDate.Format(dateLayout)
	}
	pdf.SetFont(fontFamily, "", 12)
	pdf.CellFormat(0, 7, tr("Data de Vencimento: "+due), "", 1, "R", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 6, tr("Este documento não é um boleto bancário."), "", 1, "C", false, 0, "")

	return output(pdf, w)
}

// WriteLabel выводит этикетку 4x6 дюймов для наклейки на груз.
func WriteLabel(w io.Writer, s *model.Shipment) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: 288, Ht: 432},
	})
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(false, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 14)
	pdf.CellFormat(0, 18, tr("ETIQUETA DE VOLUME"), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(fontFamily, "", 10)
	pdf.MultiCell(0, 13, tr("REMETENTE: "+s.ClientName), "", "L", false)
	pdf.MultiCell(0, 13, tr("ENDEREÇO: "+s.PickupAddress), "", "L", false)
	pdf.Ln(10)

	pdf.SetFont(fontFamily, "BU", 12)
	pdf.CellFormat(0, 15, tr("DESTINATÁRIO (CPF/CNPJ):"), "", 1, "L", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 13, tr(s.RecipientTaxID), "", 1, "L", false, 0, "")
	pdf.Ln(10)

	pdf.CellFormat(0, 13, tr("NF: "+s.InvoiceNumber), "", 1, "L", false, 0, "")
	if s.OrderNumber != "" {
		pdf.SetFont(fontFamily, "B", 16)
		pdf.CellFormat(0, 20, tr(s.OrderNumber), "", 1, "L", false, 0, "")
	}

	return output(pdf, w)
}

func line(pdf *fpdf.Fpdf, text string) {
	pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	pdf.SetCreationDate(time.Now())
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
