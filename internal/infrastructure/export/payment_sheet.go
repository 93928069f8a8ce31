package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/entity"
)

const (
	sheetName   = "Remittance"
	tableHeader = 6 // row of the claim table header
)

var columns = []string{"Claim ID", "Kind", "Applicant", "Description", "Amount", "Status after payment", "Bank code", "Bank account"}

// PaymentSheet renders a payment as a single-sheet remittance workbook
type PaymentSheet struct {
	companyName string
	logger      *zap.Logger
}

// NewPaymentSheet creates an exporter stamping companyName on every sheet
func NewPaymentSheet(companyName string, logger *zap.Logger) *PaymentSheet {
	return &PaymentSheet{
		companyName: companyName,
		logger:      logger,
	}
}

// Write implements port.PaymentExporter. claims are matched to payment items by id;
// items without a loaded claim still get a row.
func (ps *PaymentSheet) Write(w io.Writer, payment *entity.Payment, claims []*entity.Claim) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	byID := make(map[string]*entity.Claim, len(claims))
	for _, c := range claims {
		byID[c.ID] = c
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	ps.setCell(f, "A1", ps.companyName)
	ps.setCell(f, "A2", "Payment")
	ps.setCell(f, "B2", payment.ID)
	ps.setCell(f, "A3", "Payee")
	ps.setCell(f, "B3", payment.Payee)
	ps.setCell(f, "A4", "Payment date")
	ps.setCell(f, "B4", payment.PaymentDate.Format("2006-01-02"))

	for i, title := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableHeader)
		ps.setCell(f, cell, title)
	}
	_ = f.SetRowStyle(sheetName, tableHeader, tableHeader, boldStyle)

	row := tableHeader
	for _, item := range payment.Items {
		row++
		values := []interface{}{item.ClaimID, "", "", "", item.Amount.InexactFloat64(), string(item.ResultStatus), "", ""}
		if c, ok := byID[item.ClaimID]; ok {
			values[1] = string(c.Kind)
			values[2] = c.ApplicantID
			values[3] = describe(c)
			if c.PaymentDetail != nil {
				values[6] = c.PaymentDetail.BankCode
				values[7] = c.PaymentDetail.BankAccount
			}
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	totalRow := row + 1
	ps.setCell(f, fmt.Sprintf("D%d", totalRow), "Total")
	ps.setCell(f, fmt.Sprintf("E%d", totalRow), payment.Amount.InexactFloat64())
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("E%d", tableHeader+1), fmt.Sprintf("E%d", totalRow), moneyStyle)
	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "D", "D", 40)

	if err := f.Write(w); err != nil {
		ps.logger.Error("Failed to write remittance workbook",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	ps.logger.Info("Remittance workbook written",
		zap.String("payment_id", payment.ID),
		zap.Int("items", len(payment.Items)))
	return nil
}

func (ps *PaymentSheet) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		ps.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func describe(c *entity.Claim) string {
	if c.PaymentDetail != nil {
		return c.PaymentDetail.TransactionContent
	}
	parts := make([]string, 0, len(c.LineItems))
	for _, li := range c.LineItems {
		if li.Description != "" {
			parts = append(parts, li.Description)
		}
	}
	return strings.Join(parts, "; ")
}

var _ port.PaymentExporter = (*PaymentSheet)(nil)
