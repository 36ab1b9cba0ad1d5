// Package input reads batch company lists from CSV and XLSX files.
package input

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/insight-cli/internal/model"
)

// Recognized header names, lower-cased.
var (
	urlHeaders   = []string{"url", "website", "domain", "site", "company_url"}
	nameHeaders  = []string{"name", "company", "company_name"}
	depthHeaders = []string{"depth", "crawl_depth"}
	toolHeaders  = []string{"tool_mode", "tools"}
)

// columns maps header positions. -1 means absent.
type columns struct {
	url, name, depth, tool int
}

// headerless rows are url[,name].
var headerless = columns{url: 0, name: 1, depth: -1, tool: -1}

// Read loads company queries from path. The format follows the file
// extension. A header row is detected by a recognized URL column name;
// without one, rows are read as url[,name]. Rows with no URL are skipped.
func Read(ctx context.Context, path string) ([]model.CompanyQuery, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		rows, err = ReadCSV(ctx, path, CSVOptions{TrimSpace: true, LazyQuotes: true, Comment: '#'})
	case ".xlsx":
		rows, err = ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("input: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}
	return Queries(rows), nil
}

// Queries converts raw rows into company queries.
func Queries(rows [][]string) []model.CompanyQuery {
	if len(rows) == 0 {
		return nil
	}

	cols, hasHeader := detectHeader(rows[0])
	if hasHeader {
		rows = rows[1:]
	}

	var out []model.CompanyQuery
	for i, row := range rows {
		q := model.CompanyQuery{
			URL:  cell(row, cols.url),
			Name: cell(row, cols.name),
		}
		if q.URL == "" {
			continue
		}
		if v := cell(row, cols.depth); v != "" {
			depth, err := strconv.Atoi(v)
			if err != nil || depth < 0 {
				zap.L().Warn("input: invalid crawl depth, using default",
					zap.Int("row", i+1),
					zap.String("value", v),
				)
			} else {
				q.CrawlDepth = depth
			}
		}
		if v := cell(row, cols.tool); v != "" {
			q.ToolMode, _ = strconv.ParseBool(strings.ToLower(v))
		}
		out = append(out, q)
	}
	return out
}

func detectHeader(row []string) (columns, bool) {
	cols := columns{url: -1, name: -1, depth: -1, tool: -1}
	for i, h := range row {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
		switch {
		case cols.url < 0 && contains(urlHeaders, h):
			cols.url = i
		case cols.name < 0 && contains(nameHeaders, h):
			cols.name = i
		case cols.depth < 0 && contains(depthHeaders, h):
			cols.depth = i
		case cols.tool < 0 && contains(toolHeaders, h):
			cols.tool = i
		}
	}
	if cols.url < 0 {
		return headerless, false
	}
	return cols, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
