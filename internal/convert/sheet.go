package convert

import (
	"context"
	"errors"
	"io"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"doc-convert/internal/render"
)

// spreadsheetToPDF renders the first sheet as an HTML table through the
// same intermediate path as word-to-pdf.
type spreadsheetToPDF struct {
	renderer render.Renderer
}

func (s *spreadsheetToPDF) Convert(ctx context.Context, req *Request) error {
	var (
		sheet string
		rows  [][]string
		err   error
	)
	if isLegacyExcel(req.Upload.MIME) {
		sheet, rows, err = readXLS(req.Upload.Path)
	} else {
		sheet, rows, err = readXLSX(req.Upload.Path)
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var header []string
	if len(rows) > 0 {
		header, rows = rows[0], rows[1:]
	}
	doc := render.TableDocument(req.Upload.Name+" - "+sheet, header, rows)
	return renderIntermediate(ctx, s.renderer, req, func(w io.Writer) error {
		return render.WriteDocument(w, doc)
	})
}

func readXLSX(path string) (string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", nil, contentErr("open xlsx", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, contentErr("open xlsx", errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", nil, contentErr("read sheet "+sheets[0], err)
	}
	return sheets[0], rows, nil
}

func readXLS(path string) (string, [][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return "", nil, contentErr("open xls", err)
	}
	if wb.NumSheets() == 0 {
		return "", nil, contentErr("open xls", errors.New("workbook has no sheets"))
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return "", nil, contentErr("open xls", errors.New("first sheet is unreadable"))
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return sheet.Name, rows, nil
}
