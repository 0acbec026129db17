package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"github.com/xuri/excelize/v2"
)

const cameraSheet = "Cameras"

// CameraExportHeader is the header row of the camera export.
var CameraExportHeader = []string{
	"Code",
	"Name",
	"Location",
	"Status",
	"Detection Online",
	"Detection Service URL",
	"Connected At",
	"Disconnected At",
	"Last Maintenance At",
	"Updated At",
}

var cameraColumnWidths = []float64{12, 24, 24, 14, 16, 32, 20, 20, 20, 20}

// GenerateCameraExport renders cameras into an XLSX workbook.
func GenerateCameraExport(cams []*domain.Camera) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(cameraSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range CameraExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(cameraSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(cameraSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(cameraSheet, name, name, cameraColumnWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, c := range cams {
		row := []any{
			c.Code,
			c.Name,
			c.Location,
			string(c.Status),
			yesNo(c.DetectionOnline),
			c.ServiceURL(),
			formatNullTime(c.ConnectedAt.Time, c.ConnectedAt.Valid),
			formatNullTime(c.DisconnectedAt.Time, c.DisconnectedAt.Valid),
			formatNullTime(c.LastMaintenanceAt.Time, c.LastMaintenanceAt.Valid),
			formatNullTime(c.UpdatedAt, !c.UpdatedAt.IsZero()),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(cameraSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatNullTime(t time.Time, valid bool) string {
	if !valid {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
