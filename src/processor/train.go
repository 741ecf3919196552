package processor

import (
	"AviationEmission/src/utils"
	"fmt"
	"sort"
)

// Mode 火车行程中的交通方式
type Mode string

const (
	ModeEurostar  Mode = "Eurostar"
	ModeICE       Mode = "ICE"
	ModeIntercity Mode = "Intercity"
	ModeRegional  Mode = "Regional train"
	ModeBus       Mode = "Bus"
)

// Phrase 带冠词的显示文本，如 "an ICE"
func (m Mode) Phrase() string {
	switch m {
	case ModeICE, ModeIntercity:
		return "an " + string(m)
	default:
		return "a " + string(m)
	}
}

// Segment 行程中的一段
type Segment struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Mode       Mode    `json:"mode"`
	DistanceKm float64 `json:"distance_km"`
}

// Itinerary 到某一目的地的有序分段
type Itinerary []Segment

// TrainTotal 每个目的地的火车行程合计
type TrainTotal struct {
	Destination     string  `json:"destination"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	TotalCO2Kg      float64 `json:"total_co2_kg"`
}

// 每人每公里排放(kg CO2)
var emissionFactors = map[Mode]float64{
	ModeEurostar:  0.009,
	ModeIntercity: 0.0114,
	ModeRegional:  0.0292,
	ModeBus:       0.0947,
	ModeICE:       0.0032,
}

var itineraries = map[string]Itinerary{
	"Billund": {
		{"Amsterdam", "Osnabrück", ModeICE, 215},
		{"Osnabrück", "Hamburg", ModeICE, 192},
		{"Hamburg", "Flensburg", ModeIntercity, 141},
		{"Flensburg", "Kolding", ModeIntercity, 80},
		{"Kolding", "Vejle", ModeIntercity, 45},
		{"Vejle", "Billund", ModeBus, 33},
	},
	"Birmingham": {
		{"Amsterdam", "Brussels", ModeEurostar, 176},
		{"Brussels", "London", ModeEurostar, 317},
		{"London", "Birmingham", ModeRegional, 163},
	},
	"Bremen": {
		{"Amsterdam", "Osnabrück", ModeICE, 215},
		{"Osnabrück", "Bremen", ModeICE, 103},
	},
	"Brussels": {
		{"Amsterdam", "Brussels", ModeEurostar, 176},
	},
	"Düsseldorf": {
		{"Amsterdam", "Arnhem", ModeIntercity, 97},
		{"Arnhem", "Düsseldorf", ModeIntercity, 105},
	},
	"Frankfurt": {
		{"Amsterdam", "Cologne", ModeICE, 214},
		{"Cologne", "Frankfurt", ModeICE, 152},
	},
	"Hamburg": {
		{"Amsterdam", "Osnabrück", ModeICE, 215},
		{"Osnabrück", "Hamburg", ModeICE, 192},
	},
	"Hanover": {
		{"Amsterdam", "Hannover", ModeICE, 329},
	},
	"London": {
		{"Amsterdam", "Brussels", ModeEurostar, 176},
		{"Brussels", "London", ModeEurostar, 317},
	},
	"Luxembourg": {
		{"Amsterdam", "Brussels", ModeEurostar, 176},
		{"Brussels", "Luxembourg", ModeIntercity, 186},
	},
	"Paris": {
		{"Amsterdam", "Paris", ModeEurostar, 431},
	},
}

// Itineraries 返回行程常量的副本
func Itineraries() map[string]Itinerary {
	out := make(map[string]Itinerary, len(itineraries))
	for dest, it := range itineraries {
		out[dest] = append(Itinerary(nil), it...)
	}
	return out
}

// EmissionFactors 返回排放系数常量的副本
func EmissionFactors() map[Mode]float64 {
	out := make(map[Mode]float64, len(emissionFactors))
	for m, f := range emissionFactors {
		out[m] = f
	}
	return out
}

// ComputeTotals 按目的地汇总距离和排放，排放保留两位小数。
// 分段使用了系数表中不存在的交通方式时返回ErrUnknownMode。
func ComputeTotals(itins map[string]Itinerary, factors map[Mode]float64) ([]TrainTotal, error) {
	dests := make([]string, 0, len(itins))
	for d := range itins {
		dests = append(dests, d)
	}
	sort.Strings(dests)

	totals := make([]TrainTotal, 0, len(dests))
	for _, d := range dests {
		var km, co2 float64
		for i, seg := range itins[d] {
			f, ok := factors[seg.Mode]
			if !ok {
				return nil, fmt.Errorf("%w: %s 第%d段 %q", ErrUnknownMode, d, i+1, seg.Mode)
			}
			km += seg.DistanceKm
			co2 += seg.DistanceKm * f
		}
		totals = append(totals, TrainTotal{
			Destination:     d,
			TotalDistanceKm: km,
			TotalCO2Kg:      utils.Round(co2, 2),
		})
	}
	return totals, nil
}

// TrainModel 火车行程、排放系数和汇总结果
type TrainModel struct {
	itineraries map[string]Itinerary
	factors     map[Mode]float64
	totals      []TrainTotal
}

// Emissions 基于常量数据计算火车排放模型
func Emissions() (TrainModel, error) {
	return NewTrainModel(Itineraries(), EmissionFactors())
}

func NewTrainModel(itins map[string]Itinerary, factors map[Mode]float64) (TrainModel, error) {
	totals, err := ComputeTotals(itins, factors)
	if err != nil {
		return TrainModel{}, err
	}
	return TrainModel{itineraries: itins, factors: factors, totals: totals}, nil
}

// Destinations 按名称排序的目的地列表
func (m TrainModel) Destinations() []string {
	out := make([]string, 0, len(m.totals))
	for _, t := range m.totals {
		out = append(out, t.Destination)
	}
	return out
}

func (m TrainModel) Totals() []TrainTotal {
	return append([]TrainTotal(nil), m.totals...)
}

func (m TrainModel) Itinerary(dest string) (Itinerary, bool) {
	it, ok := m.itineraries[dest]
	if !ok {
		return nil, false
	}
	return append(Itinerary(nil), it...), true
}

func (m TrainModel) Factor(mode Mode) (float64, bool) {
	f, ok := m.factors[mode]
	return f, ok
}

// Step 行程中的一步及其排放
type Step struct {
	Segment
	Phrase string  `json:"phrase"`
	CO2Kg  float64 `json:"co2_kg"`
}

// Journey 到目的地的完整行程
type Journey struct {
	Destination     string  `json:"destination"`
	Steps           []Step  `json:"steps"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	TotalCO2Kg      float64 `json:"total_co2_kg"`
}

// Journey 逐段计算排放，合计不做舍入(由展示层格式化)
func (m TrainModel) Journey(dest string) (Journey, bool) {
	it, ok := m.itineraries[dest]
	if !ok {
		return Journey{}, false
	}
	j := Journey{Destination: dest, Steps: make([]Step, 0, len(it))}
	for _, seg := range it {
		co2 := seg.DistanceKm * m.factors[seg.Mode]
		j.Steps = append(j.Steps, Step{Segment: seg, Phrase: seg.Mode.Phrase(), CO2Kg: co2})
		j.TotalDistanceKm += seg.DistanceKm
		j.TotalCO2Kg += co2
	}
	return j, true
}
