package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const classSheet = "Class Analytics"

// ClassReportWorkbook renders a class report as an .xlsx file: one row per
// student followed by the class average.
func ClassReportWorkbook(report *ClassReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(classSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []interface{}{"Roll Number", "First Name", "Last Name", "Student ID", "Completed Attempts", "Average %"}
	if err := f.SetSheetRow(classSheet, "A1", &headers); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(classSheet, "A1", "F1", bold); err != nil {
		return nil, err
	}

	for i, st := range report.Students {
		row := []interface{}{st.RollNumber, st.FirstName, st.LastName, st.UserID.String(), st.Attempts, st.Average}
		if err := f.SetSheetRow(classSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	footer := len(report.Students) + 3
	f.SetCellValue(classSheet, fmt.Sprintf("A%d", footer), "Class average")
	f.SetCellValue(classSheet, fmt.Sprintf("F%d", footer), report.ClassAverage)
	if err := f.SetCellStyle(classSheet, fmt.Sprintf("A%d", footer), fmt.Sprintf("F%d", footer), bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
