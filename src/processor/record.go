package processor

import (
	"encoding/json"
	"errors"
	"math"
)

// 源数据列名
const (
	ColADEP           = "ADEP"
	ColADES           = "ADES"
	ColNameADES       = "NAME_ADES"
	ColOperator       = "AC Operator"
	ColAircraftType   = "AC Type"
	ColVariant        = "Aircraft Variant"
	ColEngine         = "Engine Model"
	ColDistance       = "Actual Distance Flown (km)"
	ColCO2Rating      = "CO2 Rating"
	ColSustainability = "Sustainability Rating"
	ColCO2PerPaxKm    = "CO2 per Passenger (kg/km/passenger)"
	ColTotalCO2       = "Total CO2 Emissions (kg)"
	ColADEPLat        = "ADEP Latitude"
	ColADEPLon        = "ADEP Longitude"
	ColADESLat        = "ADES Latitude"
	ColADESLon        = "ADES Longitude"

	// 合并后插入的描述列
	ColOrigin      = "Origin"
	ColDestination = "Destination"
)

// RequiredScoreColumns 评分表必须包含的列
var RequiredScoreColumns = []string{
	ColADEP, ColADES, ColOperator, ColAircraftType, ColVariant, ColEngine,
	ColDistance, ColCO2Rating, ColSustainability, ColCO2PerPaxKm,
}

// DroppedColumns 清洗时删除的列(不存在时忽略)
var DroppedColumns = []string{
	"CO2 per FC seat (kg/km/seat)",
	"CO2 per PEC seat (kg/km/seat)",
	"Jet Engine type",
}

var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrUnknownMode       = errors.New("unknown transport mode")
)

// Num 可缺失的数值
type Num struct {
	Value float64
	Valid bool
}

// Some 构造有效数值
func Some(v float64) Num {
	if math.IsNaN(v) {
		return Num{}
	}
	return Num{Value: v, Valid: true}
}

// Float 缺失时返回NaN
func (n Num) Float() float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Value
}

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// RouteRow 航线表中的一行
type RouteRow struct {
	Departure       string // ADEP
	Destination     string // ADES
	DestinationName string // NAME_ADES
}

// FlightRecord 清洗后的一条航班评分记录
type FlightRecord struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`

	OriginCode      string `json:"origin_code"`
	DestinationCode string `json:"destination_code"`
	OperatorCode    string `json:"operator_code"`
	OperatorName    string `json:"operator_name"`
	AircraftType    string `json:"aircraft_type"`
	AircraftVariant string `json:"aircraft_variant"`
	EngineModel     string `json:"engine_model"`

	CO2Rating      string `json:"co2_rating"`
	Sustainability string `json:"sustainability_rating"`

	DistanceKm     Num `json:"distance_km"`
	CO2PerPaxKm    Num `json:"co2_per_passenger_km"`
	TotalCO2Kg     Num `json:"total_co2_kg"`
	OriginLat      Num `json:"origin_lat"`
	OriginLon      Num `json:"origin_lon"`
	DestinationLat Num `json:"destination_lat"`
	DestinationLon Num `json:"destination_lon"`

	// 派生列
	CO2RatingNum      Num    `json:"co2_rating_num"`
	SustainabilityNum Num    `json:"sustainability_rating_num"`
	CO2PerPassenger   Num    `json:"co2_per_passenger"`
	RouteLabel        string `json:"route"`
}

// FlightTable 只读的航班记录表，所有变换都返回新表
type FlightTable struct {
	rows []FlightRecord
}

// NewFlightTable 复制传入的记录构造新表
func NewFlightTable(rows []FlightRecord) FlightTable {
	cp := make([]FlightRecord, len(rows))
	copy(cp, rows)
	return FlightTable{rows: cp}
}

func (t FlightTable) Len() int { return len(t.rows) }

// Row 返回第i行的副本
func (t FlightTable) Row(i int) FlightRecord { return t.rows[i] }

// Rows 返回全部记录的副本
func (t FlightTable) Rows() []FlightRecord {
	cp := make([]FlightRecord, len(t.rows))
	copy(cp, t.rows)
	return cp
}

// Filter 返回满足条件的记录组成的新表
func (t FlightTable) Filter(keep func(FlightRecord) bool) FlightTable {
	out := make([]FlightRecord, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return FlightTable{rows: out}
}
