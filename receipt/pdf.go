package receipt

import (
	"bytes"
	"fmt"

	"taproom-backend/models"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// VenueInfo is the header and footer content, read from settings.
type VenueInfo struct {
	Name    string
	Address string
	Phone   string
	Footer  string
	BaseURL string
}

const (
	pageMargin = 15.0
	lineHeight = 7.0
	qrSide     = 35.0
)

// column widths: item, qty, unit, points, subtotal
var columns = []float64{80, 18, 28, 22, 32}

// Render lays out an A4 receipt for order. Long orders flow onto further
// pages with the table header repeated.
func Render(order *models.Order, items []models.OrderItem, venue VenueInfo) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin+10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin - 5)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, tr(venue.Footer), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(venue.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if venue.Address != "" {
		pdf.CellFormat(0, 5, tr(venue.Address), "", 1, "L", false, 0, "")
	}
	if venue.Phone != "" {
		pdf.CellFormat(0, 5, tr(venue.Phone), "", 1, "L", false, 0, "")
	}

	if venue.BaseURL != "" {
		png, err := EncodeQR(OrderQRPayload(venue.BaseURL, order), DefaultQRSize)
		if err != nil {
			return nil, err
		}
		pageW, _ := pdf.GetPageSize()
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("order-qr", opts, bytes.NewReader(png))
		pdf.ImageOptions("order-qr", pageW-pageMargin-qrSide, pageMargin, qrSide, qrSide, false, opts, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, lineHeight, "Order "+order.OrderNumber, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, order.CreatedAt.Format("02 Jan 2006 15:04"), "", 1, "L", false, 0, "")
	if order.TableNumber != "" {
		pdf.CellFormat(0, 5, tr("Table "+order.TableNumber), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Status: "+string(order.Status), "", 1, "L", false, 0, "")
	if pdf.GetY() < pageMargin+qrSide+5 {
		pdf.SetY(pageMargin + qrSide + 5)
	}
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(235, 235, 235)
		for i, h := range []string{"Item", "Qty", "Unit", "Points", "Subtotal"} {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(columns[i], lineHeight, h, "B", 0, align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}
	header()

	_, pageH := pdf.GetPageSize()
	for _, item := range items {
		if pdf.GetY()+lineHeight > pageH-pageMargin-10 {
			pdf.AddPage()
			header()
		}
		pdf.CellFormat(columns[0], lineHeight, tr(item.ProductName), "", 0, "L", false, 0, "")
		pdf.CellFormat(columns[1], lineHeight, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[2], lineHeight, money(item.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[3], lineHeight, fmt.Sprintf("%d", item.UnitPoints*item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[4], lineHeight, money(item.Subtotal), "", 1, "R", false, 0, "")
	}

	labelW := columns[0] + columns[1] + columns[2] + columns[3]
	total := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, lineHeight, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[4], lineHeight, value, "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	total("Subtotal", money(order.Subtotal), false)
	if order.Discount.IsPositive() {
		total("Discount", "-"+money(order.Discount), false)
	}
	total("Total", money(order.Total), true)

	points := fmt.Sprintf("%d pts", order.PointsToEarn)
	if order.PointsEarned > 0 {
		points = fmt.Sprintf("%d pts credited", order.PointsEarned)
	}
	total("Points", points, false)

	if order.Status == models.OrderStatusRejected && order.RejectionReason != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, tr("Rejected: "+order.RejectionReason), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
