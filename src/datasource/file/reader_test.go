package file

import (
	"AviationEmission/src/config"
	"AviationEmission/src/processor"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func str(s string) *string { return &s }

func writeRoutesParquet(t *testing.T, path string, recs []routeRecord) {
	t.Helper()
	fw, err := local.NewLocalFileWriter(path)
	require.NoError(t, err)
	pw, err := writer.NewParquetWriter(fw, new(routeRecord), 1)
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, pw.Write(rec))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())
}

func writeRoutesXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))
}

func TestReadRoutesParquet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flights_2023.parquet")
	writeRoutesParquet(t, path, []routeRecord{
		{ADEP: str("EHAM"), ADES: str("EBBR"), NameADES: str("Brussels")},
		{ADEP: str("EDDF"), ADES: str("EBBR"), NameADES: str("Bruxelles")},
		{ADEP: str("EHAM"), ADES: str("LFPG"), NameADES: nil},
	})

	rows, err := ReadRoutes([]string{path}, "EHAM")
	require.NoError(t, err)
	assert.Equal(t, []processor.RouteRow{
		{Departure: "EHAM", Destination: "EBBR", DestinationName: "Brussels"},
		{Departure: "EHAM", Destination: "LFPG", DestinationName: ""},
	}, rows)
}

func TestReadRoutesConcatenatesFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.parquet")
	second := filepath.Join(dir, "b.xlsx")
	writeRoutesParquet(t, first, []routeRecord{
		{ADEP: str("EHAM"), ADES: str("EBBR"), NameADES: str("Brussels")},
	})
	writeRoutesXLSX(t, second, [][]string{
		{"ADEP", "ADES", "NAME_ADES", "ENTRY_TIME"},
		{"EHAM", "EBBR", "Brussels", "2023-01-01"},
		{"LEMD", "EHAM", "Amsterdam", "2023-01-02"},
		{"EHAM", "EDDH", "Hamburg", "2023-01-03"},
	})

	rows, err := ReadRoutes([]string{first, second}, "EHAM")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Brussels", rows[0].DestinationName)
	assert.Equal(t, "Brussels", rows[1].DestinationName)
	assert.Equal(t, "Hamburg", rows[2].DestinationName)
}

func TestReadRoutesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadRoutes([]string{filepath.Join(dir, "missing.parquet")}, "EHAM")
	assert.True(t, errors.Is(err, processor.ErrSourceUnavailable))

	_, err = ReadRoutes([]string{filepath.Join(dir, "routes.json")}, "EHAM")
	assert.True(t, errors.Is(err, processor.ErrSourceUnavailable))

	bad := filepath.Join(dir, "bad.xlsx")
	writeRoutesXLSX(t, bad, [][]string{{"ADEP", "ADES"}, {"EHAM", "EBBR"}})
	_, err = ReadRoutes([]string{bad}, "EHAM")
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "NAME_ADES")
}

func TestReadXLSXShortRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.xlsx")
	writeRoutesXLSX(t, path, [][]string{
		{"ADEP", "ADES", "NAME_ADES"},
		{"EHAM", "EBBR"},
	})

	df, err := ReadXLSX(path, "")
	require.NoError(t, err)
	assert.Equal(t, 1, df.Nrow())
	assert.True(t, df.Col("NAME_ADES").Elem(0).IsNA())

	_, err = ReadXLSX(path, "Routes")
	assert.True(t, errors.Is(err, processor.ErrSchemaMismatch))
}

const scoreHeader = "ADEP,ADES,AC Operator,AC Type,Aircraft Variant,Engine Model,Actual Distance Flown (km),CO2 Rating,Sustainability Rating,CO2 per Passenger (kg/km/passenger)\n"

func TestReadScoresCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	data := scoreHeader +
		"EHAM,EBBR,KLM,E190,E190-100,,170,C,NA,0.2\n" +
		"EHAM,LFPG,AFR,A320,A320neo,PW1127G,0400,A,B,0.05\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	df, err := ReadScores(path, ScoreOptions{Encoding: "utf-8"})
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.True(t, df.Col(processor.ColEngine).Elem(0).IsNA())
	assert.True(t, df.Col(processor.ColSustainability).Elem(0).IsNA())
	// 不做类型推断，保留原始文本
	assert.Equal(t, "0400", df.Col(processor.ColDistance).Elem(1).String())
}

func TestReadScoresCSVWithEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	line := "EHAM,EDDL,DLH,A320,A320-200,CFM56-5B4,180,C,C,0.12\n"
	raw := scoreHeader + line
	encoded, err := charmap.Windows1252.NewEncoder().String(raw + "EHAM,EDDL,DLH,A320,Düsseldorf,CFM56,180,C,C,0.1\n")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(encoded), 0644))

	df, err := ReadScores(path, ScoreOptions{Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, "Düsseldorf", df.Col(processor.ColVariant).Elem(1).String())

	_, err = ReadScores(path, ScoreOptions{Encoding: "klingon"})
	assert.Error(t, err)
}

func TestReadScoresXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	f := excelize.NewFile()
	header := []interface{}{"ADEP", "ADES", "AC Operator", "Engine Model", "CO2 Rating"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	full := []interface{}{"EHAM", "EBBR", "KLM", "CF34-10E", "C"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &full))
	short := []interface{}{"EHAM", "LFPG", "AFR"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &short))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	df, err := ReadScores(path, ScoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())
	assert.Equal(t, 5, df.Ncol())
	assert.True(t, df.Col("CO2 Rating").Elem(1).IsNA())

	_, err = ReadScores(path, ScoreOptions{SheetName: "Scores"})
	assert.True(t, errors.Is(err, processor.ErrSchemaMismatch))
}

func TestReadScoresMissingFile(t *testing.T) {
	_, err := ReadScores(filepath.Join(t.TempDir(), "scores.csv"), ScoreOptions{})
	assert.True(t, errors.Is(err, processor.ErrSourceUnavailable))
}

func TestNewSources(t *testing.T) {
	cfg, err := config.Parse([]byte(`{
		"data_dir": "data",
		"route_files": ["a.parquet", "/abs/b.xlsx"],
		"score_file": "scores.csv",
		"score_encoding": "windows-1252"
	}`))
	require.NoError(t, err)

	src := NewSources(cfg)
	assert.Equal(t, []string{filepath.Join("data", "a.parquet"), "/abs/b.xlsx"}, src.RoutePaths)
	assert.Equal(t, "EHAM", src.OriginCode)
	assert.Equal(t, "windows-1252", src.Score.Encoding)
	assert.Len(t, src.Files(), 3)
}

func TestSourcesFeedPreparer(t *testing.T) {
	dir := t.TempDir()
	routes := filepath.Join(dir, "routes.parquet")
	writeRoutesParquet(t, routes, []routeRecord{
		{ADEP: str("EHAM"), ADES: str("EBBR"), NameADES: str("Brussels")},
	})
	scores := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(scores, []byte(scoreHeader+
		"EHAM,EBBR,KLM,E190,E190-100,CF34-10E,170,C,D,0.2\n"), 0644))

	src := Sources{RoutePaths: []string{routes}, OriginCode: "EHAM", ScorePath: scores}
	p := processor.NewPreparer(src, processor.Options{OriginCode: "EHAM", OriginLabel: "Schiphol"}, nil)
	table, err := p.Prepare(processor.Km(500))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Schiphol → Brussels", table.Row(0).RouteLabel)
}

func TestFileMonitorReportsTrackedFiles(t *testing.T) {
	dir := t.TempDir()
	tracked := filepath.Join(dir, "scores.csv")

	m, err := NewFileMonitor([]string{tracked})
	require.NoError(t, err)

	events := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(func(path string, op fsnotify.Op) { events <- path })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(tracked, []byte("x"), 0644))

	select {
	case path := <-events:
		assert.Equal(t, tracked, path)
	case <-time.After(5 * time.Second):
		t.Fatal("没有收到文件变化事件")
	}

	require.NoError(t, m.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch没有退出")
	}
}
