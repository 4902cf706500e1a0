// Package export renders the staff occupancy workbook.
package export

import (
	"fmt"
	"time"

	"villamar/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Reservations"

const (
	iconConfirmed = "✅"
	iconPending   = "⏳"
	iconCancelled = "❌"
)

// BuildOccupancyWorkbook produces one sheet with cottages as rows and
// calendar days as columns. Each cell lists the reservations holding a
// slot that day plus the booked/total tally.
func BuildOccupancyWorkbook(
	cottages []*models.Cottage,
	daily map[string][]*models.Reservation,
	startDate, endDate time.Time,
) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format(models.DayFormat), endDate.Format(models.DayFormat)))

	dateColumns := writeDateHeaders(f, startDate, endDate)
	writeCottageHeaders(f, cottages)
	writeOccupancy(f, daily, cottages, dateColumns)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 22)
	}

	lastCol := columnName(len(dateColumns) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func writeDateHeaders(f *excelize.File, startDate, endDate time.Time) map[string]int {
	col := 2
	current := startDate
	dateColumns := make(map[string]int)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for !current.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, current.Format("01-02"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateColumns[current.Format(models.DayFormat)] = col

		col++
		current = current.AddDate(0, 0, 1)
	}
	return dateColumns
}

func writeCottageHeaders(f *excelize.File, cottages []*models.Cottage) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	row := 3
	for _, cottage := range cottages {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%d)", cottage.Name, cottage.MaxCapacity))
		_ = f.SetCellStyle(sheetName, cell, cell, style)
		row++
	}
}

func writeOccupancy(
	f *excelize.File,
	daily map[string][]*models.Reservation,
	cottages []*models.Cottage,
	dateColumns map[string]int,
) {
	for dateKey, reservations := range daily {
		col, exists := dateColumns[dateKey]
		if !exists {
			continue
		}

		byCottage := make(map[string][]*models.Reservation)
		for _, reservation := range reservations {
			byCottage[reservation.CottageID] = append(byCottage[reservation.CottageID], reservation)
		}

		row := 3
		for _, cottage := range cottages {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			cellReservations := byCottage[cottage.ID]

			booked := int64(0)
			for _, reservation := range cellReservations {
				if reservation.Status != models.StatusCancelled {
					booked++
				}
			}

			var cellValue string
			if len(cellReservations) > 0 {
				for _, reservation := range cellReservations {
					cellValue += fmt.Sprintf("%s %s (%s)\n",
						statusIcon(reservation.Status), reservation.GuestName, reservation.ContactNumber)
				}
				cellValue += fmt.Sprintf("\nBooked: %d/%d", booked, cottage.MaxCapacity)
			} else {
				cellValue = fmt.Sprintf("Free\n\nAvailable: %d/%d", cottage.MaxCapacity, cottage.MaxCapacity)
			}
			_ = f.SetCellValue(sheetName, cell, cellValue)

			if styleID, err := cellStyle(f, cellReservations, booked, cottage.MaxCapacity); err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
			row++
		}
	}
}

func statusIcon(status string) string {
	switch status {
	case models.StatusConfirmed, models.StatusCompleted:
		return iconConfirmed
	case models.StatusPending:
		return iconPending
	case models.StatusCancelled:
		return iconCancelled
	default:
		return "❓"
	}
}

// cellStyle picks the fill by occupancy state: white when empty, red
// when full, yellow while any pending reservation remains, green when
// everything is confirmed.
func cellStyle(f *excelize.File, reservations []*models.Reservation, booked, capacity int64) (int, error) {
	fill := func(color string) (int, error) {
		return f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{
				Horizontal: "left",
				Vertical:   "top",
				WrapText:   true,
			},
		})
	}

	var active []*models.Reservation
	for _, reservation := range reservations {
		if reservation.Status != models.StatusCancelled {
			active = append(active, reservation)
		}
	}

	if len(active) == 0 {
		return fill("#FFFFFF")
	}
	if booked >= capacity {
		return fill("#FFC7CE")
	}
	for _, reservation := range active {
		if reservation.Status == models.StatusPending {
			return fill("#FFEB9C")
		}
	}
	return fill("#C6EFCE")
}

func columnName(colCount int) string {
	if colCount <= 26 {
		return string(rune('A' + colCount - 1))
	}
	firstChar := string(rune('A' + (colCount-1)/26 - 1))
	secondChar := string(rune('A' + (colCount-1)%26))
	return firstChar + secondChar
}
