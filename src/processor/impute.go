package processor

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// 按字段类型显式声明参与缺失值填充的列
type numericField struct {
	name string
	ref  func(*FlightRecord) *Num
}

type categoricalField struct {
	name string
	ref  func(*FlightRecord) *string
}

var numericFields = []numericField{
	{ColDistance, func(r *FlightRecord) *Num { return &r.DistanceKm }},
	{ColCO2PerPaxKm, func(r *FlightRecord) *Num { return &r.CO2PerPaxKm }},
	{ColTotalCO2, func(r *FlightRecord) *Num { return &r.TotalCO2Kg }},
	{ColADEPLat, func(r *FlightRecord) *Num { return &r.OriginLat }},
	{ColADEPLon, func(r *FlightRecord) *Num { return &r.OriginLon }},
	{ColADESLat, func(r *FlightRecord) *Num { return &r.DestinationLat }},
	{ColADESLon, func(r *FlightRecord) *Num { return &r.DestinationLon }},
}

func numericColumns() []string {
	names := make([]string, 0, len(numericFields))
	for _, f := range numericFields {
		names = append(names, f.name)
	}
	return names
}

var categoricalFields = []categoricalField{
	{ColADEP, func(r *FlightRecord) *string { return &r.OriginCode }},
	{ColADES, func(r *FlightRecord) *string { return &r.DestinationCode }},
	{ColOperator, func(r *FlightRecord) *string { return &r.OperatorCode }},
	{ColAircraftType, func(r *FlightRecord) *string { return &r.AircraftType }},
	{ColVariant, func(r *FlightRecord) *string { return &r.AircraftVariant }},
	{ColEngine, func(r *FlightRecord) *string { return &r.EngineModel }},
	{ColCO2Rating, func(r *FlightRecord) *string { return &r.CO2Rating }},
	{ColSustainability, func(r *FlightRecord) *string { return &r.Sustainability }},
}

// imputeByDestination 按目的地分组填充缺失值:
// 数值列用组内中位数，分类列用组内众数。
// 目的地缺失的行不属于任何分组，保持原样。
func imputeByDestination(rows []FlightRecord) []FlightRecord {
	out := make([]FlightRecord, len(rows))
	copy(out, rows)

	for _, idx := range groupIndices(out) {
		for _, f := range numericFields {
			fillMedian(out, idx, f)
		}
		for _, f := range categoricalFields {
			fillMode(out, idx, f)
		}
	}
	return out
}

// groupIndices 目的地 -> 行号，按目的地名排序保证遍历顺序稳定
func groupIndices(rows []FlightRecord) [][]int {
	groups := make(map[string][]int)
	var keys []string
	for i, r := range rows {
		if r.Destination == "" {
			continue
		}
		if _, ok := groups[r.Destination]; !ok {
			keys = append(keys, r.Destination)
		}
		groups[r.Destination] = append(groups[r.Destination], i)
	}
	sort.Strings(keys)

	out := make([][]int, 0, len(keys))
	for _, k := range keys {
		out = append(out, groups[k])
	}
	return out
}

func fillMedian(rows []FlightRecord, idx []int, f numericField) {
	var observed stats.Float64Data
	missing := false
	for _, i := range idx {
		v := f.ref(&rows[i])
		if v.Valid {
			observed = append(observed, v.Value)
		} else {
			missing = true
		}
	}
	if !missing || len(observed) == 0 {
		return
	}

	median, err := stats.Median(observed)
	if err != nil {
		return
	}
	for _, i := range idx {
		if v := f.ref(&rows[i]); !v.Valid {
			*v = Some(median)
		}
	}
}

func fillMode(rows []FlightRecord, idx []int, f categoricalField) {
	counts := make(map[string]int)
	missing := false
	for _, i := range idx {
		v := *f.ref(&rows[i])
		if v == "" {
			missing = true
			continue
		}
		counts[v]++
	}
	if !missing || len(counts) == 0 {
		return
	}

	mode := modeOf(counts)
	for _, i := range idx {
		if v := f.ref(&rows[i]); *v == "" {
			*v = mode
		}
	}
}

// modeOf 出现次数最多的值，并列时取字典序最小者
func modeOf(counts map[string]int) string {
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best
}
