package dashboard

import (
	"AviationEmission/src/processor"
	"AviationEmission/src/utils"
	"errors"
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/skypies/geo"
)

// NoSelection 下拉框的默认选项
const NoSelection = "No selection"

var (
	ErrUnknownDimension = errors.New("unknown ranking dimension")
	ErrUnknownMetric    = errors.New("unknown ranking metric")
)

// MapRoute 地图上的一条航线
type MapRoute struct {
	Origin         string        `json:"origin"`
	Destination    string        `json:"destination"`
	Route          string        `json:"route"`
	OriginLat      processor.Num `json:"origin_lat"`
	OriginLon      processor.Num `json:"origin_lon"`
	DestinationLat processor.Num `json:"destination_lat"`
	DestinationLon processor.Num `json:"destination_lon"`
	GreatCircleKm  processor.Num `json:"great_circle_km"`
}

// MapRoutes 短途航线按(出发地, 目的地)去重，保留第一次出现的行
func (s *Session) MapRoutes() []MapRoute {
	type pair struct{ origin, dest string }
	seen := make(map[pair]struct{})
	var out []MapRoute
	for _, r := range s.ShortHaul.Rows() {
		k := pair{r.Origin, r.Destination}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		m := MapRoute{
			Origin:         r.Origin,
			Destination:    r.Destination,
			Route:          r.RouteLabel,
			OriginLat:      r.OriginLat,
			OriginLon:      r.OriginLon,
			DestinationLat: r.DestinationLat,
			DestinationLon: r.DestinationLon,
		}
		if r.OriginLat.Valid && r.OriginLon.Valid && r.DestinationLat.Valid && r.DestinationLon.Valid {
			from := geo.Latlong{Lat: r.OriginLat.Value, Long: r.OriginLon.Value}
			to := geo.Latlong{Lat: r.DestinationLat.Value, Long: r.DestinationLon.Value}
			m.GreatCircleKm = processor.Some(utils.Round(from.DistKM(to), 2))
		}
		out = append(out, m)
	}
	return out
}

// RouteOptions 排序后的航线名称，不含缺失值
func (s *Session) RouteOptions() []string {
	var out []string
	for _, m := range s.MapRoutes() {
		if m.Route != "" && !utils.Contains(out, m.Route) {
			out = append(out, m.Route)
		}
	}
	sort.Strings(out)
	return out
}

// RouteFlight 航线详情表中的一行
type RouteFlight struct {
	Operator          string        `json:"operator"`
	AircraftVariant   string        `json:"aircraft_variant"`
	EngineModel       string        `json:"engine_model"`
	DistanceKm        processor.Num `json:"distance_km"`
	CO2Rating         string        `json:"co2_rating"`
	CO2RatingNum      processor.Num `json:"co2_rating_num"`
	CO2PerPassenger   processor.Num `json:"co2_per_passenger"`
	Sustainability    string        `json:"sustainability_rating"`
	SustainabilityNum processor.Num `json:"sustainability_rating_num"`
}

// RouteFlightsView 选中航线的航班列表，Info非空时表示空状态
type RouteFlightsView struct {
	Route   string        `json:"route"`
	Flights []RouteFlight `json:"flights"`
	Info    string        `json:"info,omitempty"`
}

// RouteFlights 按CO2评级降序、人均CO2升序、可持续评级升序排列(缺失值在后)，
// 去重后距离和人均CO2保留两位小数
func (s *Session) RouteFlights(route string) RouteFlightsView {
	view := RouteFlightsView{Route: route, Flights: []RouteFlight{}}
	if route == "" || route == NoSelection {
		view.Info = "Select a flight to view the corresponding data."
		return view
	}

	rows := s.ShortHaul.Filter(func(r processor.FlightRecord) bool { return r.RouteLabel == route }).Rows()
	if len(rows) == 0 {
		view.Info = fmt.Sprintf("No flights found for route %s.", route)
		return view
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if c := compareNum(a.CO2RatingNum, b.CO2RatingNum, true); c != 0 {
			return c < 0
		}
		if c := compareNum(a.CO2PerPassenger, b.CO2PerPassenger, false); c != 0 {
			return c < 0
		}
		return compareNum(a.SustainabilityNum, b.SustainabilityNum, false) < 0
	})

	type key struct {
		rating, perPax            processor.Num
		operator, variant, engine string
	}
	seen := make(map[key]struct{})
	for _, r := range rows {
		k := key{r.CO2RatingNum, r.CO2PerPassenger, r.OperatorName, r.AircraftVariant, r.EngineModel}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		view.Flights = append(view.Flights, RouteFlight{
			Operator:          r.OperatorName,
			AircraftVariant:   r.AircraftVariant,
			EngineModel:       r.EngineModel,
			DistanceKm:        roundNum(r.DistanceKm),
			CO2Rating:         r.CO2Rating,
			CO2RatingNum:      r.CO2RatingNum,
			CO2PerPassenger:   roundNum(r.CO2PerPassenger),
			Sustainability:    r.Sustainability,
			SustainabilityNum: r.SustainabilityNum,
		})
	}
	return view
}

// JourneyView 火车替代行程，Info非空时表示空状态
type JourneyView struct {
	Destination string             `json:"destination"`
	Journey     *processor.Journey `json:"journey,omitempty"`
	Info        string             `json:"info,omitempty"`
}

func (s *Session) TrainJourney(dest string) JourneyView {
	view := JourneyView{Destination: dest}
	if dest == "" || dest == NoSelection {
		view.Info = "Select a flight to view the corresponding train replacement."
		return view
	}
	j, ok := s.Train.Journey(dest)
	if !ok {
		view.Info = fmt.Sprintf("No train itinerary for %s.", dest)
		return view
	}
	j.TotalCO2Kg = utils.Round(j.TotalCO2Kg, 2)
	view.Journey = &j
	return view
}

// ComparisonRow 同一目的地的火车与航班人均排放
type ComparisonRow struct {
	Destination           string        `json:"destination"`
	TrainCO2Kg            processor.Num `json:"train_co2_kg"`
	FlightCO2PerPassenger processor.Num `json:"flight_co2_per_passenger"`
}

// Comparison 火车合计排放与短途航班的人均排放均值，按目的地排序
func (s *Session) Comparison() []ComparisonRow {
	flights := groupMeans(s.ShortHaul.Rows(),
		func(r processor.FlightRecord) string { return r.Destination },
		func(r processor.FlightRecord) processor.Num { return r.CO2PerPassenger })

	byDest := make(map[string]*ComparisonRow)
	for _, t := range s.Train.Totals() {
		byDest[t.Destination] = &ComparisonRow{Destination: t.Destination, TrainCO2Kg: processor.Some(t.TotalCO2Kg)}
	}
	for dest, mean := range flights {
		row, ok := byDest[dest]
		if !ok {
			row = &ComparisonRow{Destination: dest}
			byDest[dest] = row
		}
		row.FlightCO2PerPassenger = mean
	}

	out := make([]ComparisonRow, 0, len(byDest))
	for _, row := range byDest {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}

// Dimension 排名的分组维度
type Dimension string

const (
	DimensionEngine  Dimension = "engine"
	DimensionAirline Dimension = "airline"
	DimensionVariant Dimension = "variant"
)

// Metric 排名的排序指标
type Metric string

const (
	MetricCO2Rating       Metric = "co2_rating"
	MetricCO2PerPassenger Metric = "co2_per_passenger"
	MetricSustainability  Metric = "sustainability"
)

// rankingKey 分组键及其是否排除Unknown。航司名称来自代码表，只排除缺失值。
type rankingKey struct {
	of          func(processor.FlightRecord) string
	dropUnknown bool
}

var dimensionKeys = map[Dimension]rankingKey{
	DimensionEngine:  {func(r processor.FlightRecord) string { return r.EngineModel }, true},
	DimensionAirline: {func(r processor.FlightRecord) string { return r.OperatorName }, false},
	DimensionVariant: {func(r processor.FlightRecord) string { return r.AircraftVariant }, true},
}

// RankingRow 某一分组的指标均值
type RankingRow struct {
	Key               string        `json:"key"`
	CO2RatingNum      processor.Num `json:"co2_rating_num"`
	CO2PerPassenger   processor.Num `json:"co2_per_passenger"`
	SustainabilityNum processor.Num `json:"sustainability_rating_num"`
}

// RankingView 排名结果，Metric为实际使用的排序指标
type RankingView struct {
	Dimension Dimension    `json:"dimension"`
	Metric    Metric       `json:"metric"`
	Ranking   []RankingRow `json:"ranking"`
}

// Ranking 全量航班按维度分组求均值。评级越高越好(降序)，人均CO2越低越好(升序)。
// metric为空时按CO2评级排序。分组键缺失的行不参与排名，发动机和机型还排除Unknown。
func (s *Session) Ranking(dim Dimension, metric Metric) (RankingView, error) {
	key, ok := dimensionKeys[dim]
	if !ok {
		return RankingView{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
	keyOf := key.of
	if metric == "" {
		metric = MetricCO2Rating
	}
	var (
		value func(RankingRow) processor.Num
		desc  bool
	)
	switch metric {
	case MetricCO2Rating:
		value, desc = func(r RankingRow) processor.Num { return r.CO2RatingNum }, true
	case MetricCO2PerPassenger:
		value, desc = func(r RankingRow) processor.Num { return r.CO2PerPassenger }, false
	case MetricSustainability:
		value, desc = func(r RankingRow) processor.Num { return r.SustainabilityNum }, true
	default:
		return RankingView{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	rows := s.All.Filter(func(r processor.FlightRecord) bool {
		k := keyOf(r)
		return k != "" && !(key.dropUnknown && k == "Unknown")
	}).Rows()

	rating := groupMeans(rows, keyOf, func(r processor.FlightRecord) processor.Num { return r.CO2RatingNum })
	perPax := groupMeans(rows, keyOf, func(r processor.FlightRecord) processor.Num { return r.CO2PerPassenger })
	sustain := groupMeans(rows, keyOf, func(r processor.FlightRecord) processor.Num { return r.SustainabilityNum })

	out := make([]RankingRow, 0, len(rating))
	for k := range rating {
		out = append(out, RankingRow{
			Key:               k,
			CO2RatingNum:      rating[k],
			CO2PerPassenger:   perPax[k],
			SustainabilityNum: sustain[k],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := compareNum(value(out[i]), value(out[j]), desc); c != 0 {
			return c < 0
		}
		return out[i].Key < out[j].Key
	})
	return RankingView{Dimension: dim, Metric: metric, Ranking: out}, nil
}

// groupMeans 按键分组求均值，组内没有有效值时结果缺失
func groupMeans(rows []processor.FlightRecord, keyOf func(processor.FlightRecord) string,
	valueOf func(processor.FlightRecord) processor.Num) map[string]processor.Num {
	values := make(map[string]stats.Float64Data)
	for _, r := range rows {
		k := keyOf(r)
		if k == "" {
			continue
		}
		if _, ok := values[k]; !ok {
			values[k] = nil
		}
		if v := valueOf(r); v.Valid {
			values[k] = append(values[k], v.Value)
		}
	}

	out := make(map[string]processor.Num, len(values))
	for k, data := range values {
		mean, err := stats.Mean(data)
		if err != nil {
			out[k] = processor.Num{}
			continue
		}
		out[k] = processor.Some(mean)
	}
	return out
}

// compareNum 比较两个可缺失数值，缺失值总是排在后面
func compareNum(a, b processor.Num, desc bool) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return 1
	case !b.Valid:
		return -1
	case a.Value == b.Value:
		return 0
	case (a.Value > b.Value) == desc:
		return -1
	default:
		return 1
	}
}

func roundNum(n processor.Num) processor.Num {
	if !n.Valid {
		return n
	}
	return processor.Some(utils.Round(n.Value, 2))
}
