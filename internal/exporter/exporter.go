// Package exporter turns a filtered and sorted roster view into a
// downloadable spreadsheet. Pure mapping from record fields to display
// columns; the heavy lifting is excelize's (xlsx) or encoding/csv's.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"chessreg/internal/model"
)

const SheetName = "Player Registrations"

// Headers in export column order.
var Headers = []string{
	"Full Name",
	"Name with Initials",
	"FIDE ID",
	"Date of Birth",
	"Gender",
	"Contact Number",
	"Age Category",
	"Payment Status",
	"Reference Number",
	"Registration Date",
}

// Filename builds the download name for the given date and extension,
// e.g. chess_registrations_2026-08-30.xlsx.
func Filename(date time.Time, ext string) string {
	return fmt.Sprintf("chess_registrations_%s.%s", date.Format("2006-01-02"), ext)
}

// Row maps one registration to its display columns. Payment status is
// title-cased with underscores replaced ("paid_to_thuva" -> "Paid To Thuva").
func Row(reg model.Registration) []string {
	return []string{
		reg.FullName,
		reg.NameWithInitials,
		reg.FideID,
		reg.DateOfBirth.Format("2006-01-02"),
		reg.Gender,
		reg.ContactNumber,
		reg.AgeCategory,
		displayStatus(reg.PaymentStatus),
		reg.ReferenceNumber,
		reg.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func displayStatus(status string) string {
	words := strings.Split(status, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// WriteXLSX writes one sheet with a header row and one row per record.
func WriteXLSX(w io.Writer, records []model.Registration) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := writeXLSXRow(f, 1, Headers); err != nil {
		return err
	}
	for i, reg := range records {
		if err := writeXLSXRow(f, i+2, Row(reg)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeXLSXRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to build cell name: %w", err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
		return fmt.Errorf("failed to set row %d: %w", rowNum, err)
	}
	return nil
}

// WriteCSV writes the same columns as WriteXLSX in csv form.
func WriteCSV(w io.Writer, records []model.Registration) error {
	csvw := csv.NewWriter(w)
	if err := csvw.Write(Headers); err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}
	for _, reg := range records {
		if err := csvw.Write(Row(reg)); err != nil {
			return fmt.Errorf("could not write csv record: %w", err)
		}
	}
	csvw.Flush()
	return csvw.Error()
}
