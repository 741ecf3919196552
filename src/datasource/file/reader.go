// reader.go
package file

import (
	"AviationEmission/src/config"
	"AviationEmission/src/processor"
	"AviationEmission/src/utils"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// 源文件中视为缺失的取值
var naValues = []string{"", "NA", "NaN"}

var routeColumns = []string{processor.ColADEP, processor.ColADES, processor.ColNameADES}

// routeRecord 航线表parquet文件的行结构
type routeRecord struct {
	ADEP     *string `parquet:"name=ADEP, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	ADES     *string `parquet:"name=ADES, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	NameADES *string `parquet:"name=NAME_ADES, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// ScoreOptions 评分表读取参数
type ScoreOptions struct {
	Encoding  string // CSV字符编码(WHATWG名称)，空为utf-8
	SheetName string // xlsx工作表，空为第一个
}

// Sources 基于本地文件的数据源
type Sources struct {
	RoutePaths []string
	OriginCode string
	ScorePath  string
	Score      ScoreOptions
}

// NewSources 根据配置创建文件数据源
func NewSources(cfg *config.Config) Sources {
	return Sources{
		RoutePaths: cfg.RoutePaths(),
		OriginCode: cfg.OriginCode,
		ScorePath:  cfg.ScorePath(),
		Score:      ScoreOptions{Encoding: cfg.ScoreEncoding, SheetName: cfg.SheetName},
	}
}

func (s Sources) Routes() ([]processor.RouteRow, error) {
	return ReadRoutes(s.RoutePaths, s.OriginCode)
}

func (s Sources) Scores() (dataframe.DataFrame, error) {
	return ReadScores(s.ScorePath, s.Score)
}

// Files 数据源涉及的全部文件
func (s Sources) Files() []string {
	return append(append([]string(nil), s.RoutePaths...), s.ScorePath)
}

// ReadRoutes 依次读取航线表，每个文件单独按出发机场过滤后拼接
func ReadRoutes(paths []string, originCode string) ([]processor.RouteRow, error) {
	var out []processor.RouteRow
	for _, path := range paths {
		var (
			rows []processor.RouteRow
			err  error
		)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".parquet":
			rows, err = readRoutesParquet(path)
		case ".xlsx":
			rows, err = readRoutesXLSX(path)
		default:
			err = fmt.Errorf("%w: 不支持的航线表格式 %s", processor.ErrSourceUnavailable, path)
		}
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.Departure == originCode {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func readRoutesParquet(path string) ([]processor.RouteRow, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 打开 %s 失败: %v", processor.ErrSourceUnavailable, path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(routeRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("%w: 读取 %s 失败: %v", processor.ErrSourceUnavailable, path, err)
	}
	defer pr.ReadStop()

	var names []string
	for _, el := range pr.Footer.Schema {
		names = append(names, el.Name)
	}
	if missing := missingNames(names, routeColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s 缺少列 %s", processor.ErrSchemaMismatch, path, strings.Join(missing, ", "))
	}

	records := make([]routeRecord, int(pr.GetNumRows()))
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("%w: 读取 %s 失败: %v", processor.ErrSourceUnavailable, path, err)
	}

	rows := make([]processor.RouteRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, processor.RouteRow{
			Departure:       deref(rec.ADEP),
			Destination:     deref(rec.ADES),
			DestinationName: deref(rec.NameADES),
		})
	}
	return rows, nil
}

func readRoutesXLSX(path string) ([]processor.RouteRow, error) {
	df, err := ReadXLSX(path, "")
	if err != nil {
		return nil, err
	}
	if missing := utils.MissingColumns(df, routeColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s 缺少列 %s", processor.ErrSchemaMismatch, path, strings.Join(missing, ", "))
	}

	adep, ades, name := df.Col(processor.ColADEP), df.Col(processor.ColADES), df.Col(processor.ColNameADES)
	rows := make([]processor.RouteRow, df.Nrow())
	for i := range rows {
		rows[i] = processor.RouteRow{
			Departure:       utils.ElemString(adep.Elem(i)),
			Destination:     utils.ElemString(ades.Elem(i)),
			DestinationName: utils.ElemString(name.Elem(i)),
		}
	}
	return rows, nil
}

// ReadXLSX 用tealeg/xlsx读取工作表，sheetName为空时读取第一个工作表
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("%w: xlsx打开失败 %s: %v", processor.ErrSourceUnavailable, filePath, err)
	}
	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("%w: excel文件中没有工作表 %s", processor.ErrSchemaMismatch, filePath)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.New(), fmt.Errorf("%w: %s 中没有工作表 %q", processor.ErrSchemaMismatch, filePath, sheetName)
		}
		sheet = s
	}
	return convertSheetToDataFrame(sheet), nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为字符串列的DataFrame，第一行是标题行
func convertSheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) == 0 {
		return dataframe.New()
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}
	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			v := ""
			if row != nil && i < len(row.Cells) {
				v = row.Cells[i].Value
			}
			columns[i] = append(columns[i], nullable(v))
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}
	return dataframe.New(seriesList...)
}

// ReadScores 读取评分表(csv或xlsx)，所有列均为字符串
func ReadScores(path string, opts ScoreOptions) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readScoresCSV(path, opts.Encoding)
	case ".xlsx":
		return readScoresXLSX(path, opts.SheetName)
	default:
		return dataframe.New(), fmt.Errorf("%w: 不支持的评分表格式 %s", processor.ErrSourceUnavailable, path)
	}
}

func readScoresCSV(path, encoding string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.New(), fmt.Errorf("%w: %v", processor.ErrSourceUnavailable, err)
	}
	defer f.Close()

	r, err := decodeReader(f, encoding)
	if err != nil {
		return dataframe.New(), err
	}
	df := dataframe.ReadCSV(r,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("%w: 解析 %s 失败: %v", processor.ErrSchemaMismatch, path, df.Err)
	}
	return df, nil
}

// decodeReader 按编码名称把输入转为UTF-8
func decodeReader(input io.Reader, encoding string) (io.Reader, error) {
	if encoding == "" {
		return input, nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("未知的字符编码 %q: %w", encoding, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

func readScoresXLSX(path, sheetName string) (dataframe.DataFrame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return dataframe.New(), fmt.Errorf("%w: %v", processor.ErrSourceUnavailable, err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return dataframe.New(), fmt.Errorf("%w: excel文件中没有工作表 %s", processor.ErrSchemaMismatch, path)
		}
		sheetName = sheets[0]
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return dataframe.New(), fmt.Errorf("%w: 读取工作表 %q 失败: %v", processor.ErrSchemaMismatch, sheetName, err)
	}
	if len(rows) == 0 {
		return dataframe.New(), fmt.Errorf("%w: 工作表 %q 为空", processor.ErrSchemaMismatch, sheetName)
	}

	// GetRows会省略行尾的空单元格
	width := len(rows[0])
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row[:width]
	}

	df := dataframe.LoadRecords(rows,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(naValues),
	)
	if df.Err != nil {
		return dataframe.New(), fmt.Errorf("%w: 解析 %s 失败: %v", processor.ErrSchemaMismatch, path, df.Err)
	}
	return df, nil
}

func missingNames(have, want []string) []string {
	var missing []string
	for _, w := range want {
		if !utils.Contains(have, w) {
			missing = append(missing, w)
		}
	}
	return missing
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// nullable 空单元格记为缺失
func nullable(s string) string {
	if utils.Contains(naValues, s) {
		return "NaN"
	}
	return s
}
