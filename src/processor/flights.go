package processor

import (
	"AviationEmission/src/utils"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Sources 提供航线表和评分表
type Sources interface {
	Routes() ([]RouteRow, error)
	Scores() (dataframe.DataFrame, error)
}

// Logger 处理过程中的日志输出
type Logger interface {
	Info(msg string)
	Warning(msg string)
}

// Options 数据准备参数
type Options struct {
	OriginCode  string // 出发机场代码，两个数据源都按它过滤
	OriginLabel string // 出发机场显示名称
}

// Preparer 加载、合并、清洗航班数据，按距离上限缓存结果
type Preparer struct {
	src  Sources
	opts Options
	log  Logger

	mu    sync.Mutex
	cache map[string]FlightTable
}

func NewPreparer(src Sources, opts Options, log Logger) *Preparer {
	return &Preparer{
		src:   src,
		opts:  opts,
		log:   log,
		cache: make(map[string]FlightTable),
	}
}

// Km 构造距离上限参数
func Km(v float64) *float64 { return &v }

func limitKey(maxDistanceKm *float64) string {
	if maxDistanceKm == nil {
		return "all"
	}
	return strconv.FormatFloat(*maxDistanceKm, 'g', -1, 64)
}

// Prepare 返回清洗后的航班表，maxDistanceKm为nil时不限距离。
// 同一距离上限只计算一次，数据文件变化不会自动失效。
func (p *Preparer) Prepare(maxDistanceKm *float64) (FlightTable, error) {
	key := limitKey(maxDistanceKm)

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.cache[key]; ok {
		return t, nil
	}
	t, err := p.build(maxDistanceKm)
	if err != nil {
		return FlightTable{}, err
	}
	p.cache[key] = t
	p.info(fmt.Sprintf("航班表准备完毕(距离上限: %s): %d 行", key, t.Len()))
	return t, nil
}

func (p *Preparer) build(maxDistanceKm *float64) (FlightTable, error) {
	routes, err := p.src.Routes()
	if err != nil {
		return FlightTable{}, fmt.Errorf("读取航线表失败: %w", err)
	}
	scores, err := p.src.Scores()
	if err != nil {
		return FlightTable{}, fmt.Errorf("读取评分表失败: %w", err)
	}
	if missing := utils.MissingColumns(scores, RequiredScoreColumns...); len(missing) > 0 {
		return FlightTable{}, fmt.Errorf("%w: 评分表缺少列 %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	// 1-2. 航线表投影为 (ADES, NAME_ADES) 后左连接
	scores = scores.Filter(dataframe.F{Colname: ColADEP, Comparator: series.Eq, Comparando: p.opts.OriginCode})
	if scores.Err != nil {
		return FlightTable{}, fmt.Errorf("按出发机场过滤失败: %w", scores.Err)
	}
	merged := scores.LeftJoin(p.destinationNames(routes), ColADES)
	if merged.Err != nil {
		return FlightTable{}, fmt.Errorf("合并目的地名称失败: %w", merged.Err)
	}

	// 3. 插入出发地和目的地列
	merged = p.insertDescriptive(merged)
	if merged.Err != nil {
		return FlightTable{}, fmt.Errorf("插入描述列失败: %w", merged.Err)
	}

	// 4. 去除完全重复的行，数值列按数值比较
	merged = utils.NormalizeNumeric(merged, numericColumns()...)
	if merged.Err != nil {
		return FlightTable{}, fmt.Errorf("数值列规整失败: %w", merged.Err)
	}
	merged = utils.DropDuplicates(merged)

	// 5. 距离过滤必须在删列和填充之前
	if maxDistanceKm != nil {
		limit := *maxDistanceKm
		merged = merged.Filter(dataframe.F{
			Colname:    ColDistance,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				v, ok := utils.ElemFloat(el)
				return ok && v <= limit
			},
		})
		if merged.Err != nil {
			return FlightTable{}, fmt.Errorf("距离过滤失败: %w", merged.Err)
		}
	}

	// 6. 删除不再使用的列
	merged = utils.DropIfPresent(merged, DroppedColumns...)

	// 7. 分组填充缺失值
	rows := imputeByDestination(toRecords(merged))

	// 8. 派生列
	rows = p.derive(rows)

	// 9. 按目的地排序
	sortByDestination(rows)

	return FlightTable{rows: rows}, nil
}

// destinationNames 航线表按出发机场过滤后的 (ADES, NAME_ADES) 去重投影
func (p *Preparer) destinationNames(routes []RouteRow) dataframe.DataFrame {
	var codes, names []string
	seen := make(map[RouteRow]struct{})
	namesPerCode := make(map[string]int)
	for _, r := range routes {
		if r.Departure != p.opts.OriginCode {
			continue
		}
		key := RouteRow{Destination: r.Destination, DestinationName: r.DestinationName}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		namesPerCode[r.Destination]++
		codes = append(codes, nullable(r.Destination))
		names = append(names, nullable(r.DestinationName))
	}

	var fanOut []string
	for code, n := range namesPerCode {
		if n > 1 {
			fanOut = append(fanOut, code)
		}
	}
	if len(fanOut) > 0 {
		sort.Strings(fanOut)
		p.warning(fmt.Sprintf("目的地代码对应多个名称，合并后会出现重复行: %s", strings.Join(fanOut, ", ")))
	}

	return dataframe.New(
		series.New(codes, series.String, ColADES),
		series.New(names, series.String, ColNameADES),
	)
}

// insertDescriptive 在最前面插入出发地常量列和目的地名称列
func (p *Preparer) insertDescriptive(df dataframe.DataFrame) dataframe.DataFrame {
	origin := make([]string, df.Nrow())
	for i := range origin {
		origin[i] = p.opts.OriginLabel
	}
	lead := dataframe.New(
		series.New(origin, series.String, ColOrigin),
		df.Col(ColNameADES).Copy(),
	).Rename(ColDestination, ColNameADES)
	return lead.CBind(df.Drop(ColNameADES))
}

func (p *Preparer) derive(rows []FlightRecord) []FlightRecord {
	unmapped := make(map[string]struct{})
	for i := range rows {
		r := &rows[i]
		r.CO2RatingNum = RatingNum(r.CO2Rating)
		r.SustainabilityNum = RatingNum(r.Sustainability)

		if name, ok := AirlineName(r.OperatorCode); ok {
			r.OperatorName = name
		} else if r.OperatorCode != "" {
			unmapped[r.OperatorCode] = struct{}{}
		}

		if r.Destination != "" {
			r.RouteLabel = r.Origin + " → " + r.Destination
		}
		if r.CO2PerPaxKm.Valid && r.DistanceKm.Valid {
			r.CO2PerPassenger = Some(r.CO2PerPaxKm.Value * r.DistanceKm.Value)
		}
	}

	if len(unmapped) > 0 {
		codes := make([]string, 0, len(unmapped))
		for c := range unmapped {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		p.warning(fmt.Sprintf("未知航司代码，航司名称留空: %s", strings.Join(codes, ", ")))
	}
	return rows
}

// sortByDestination 按目的地升序稳定排序，目的地缺失的排在最后
func sortByDestination(rows []FlightRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Destination, rows[j].Destination
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a < b
	})
}

// toRecords DataFrame(全部为字符串列)转为强类型记录
func toRecords(df dataframe.DataFrame) []FlightRecord {
	str := func(name string) func(int) string {
		if !utils.HasColumn(df, name) {
			return func(int) string { return "" }
		}
		col := df.Col(name)
		return func(i int) string { return utils.ElemString(col.Elem(i)) }
	}
	num := func(name string) func(int) Num {
		if !utils.HasColumn(df, name) {
			return func(int) Num { return Num{} }
		}
		col := df.Col(name)
		return func(i int) Num {
			v, ok := utils.ElemFloat(col.Elem(i))
			if !ok {
				return Num{}
			}
			return Some(v)
		}
	}

	origin, dest := str(ColOrigin), str(ColDestination)
	adep, ades := str(ColADEP), str(ColADES)
	operator, acType, variant, engine := str(ColOperator), str(ColAircraftType), str(ColVariant), str(ColEngine)
	co2Rating, sustain := str(ColCO2Rating), str(ColSustainability)
	distance, perPaxKm, total := num(ColDistance), num(ColCO2PerPaxKm), num(ColTotalCO2)
	adepLat, adepLon, adesLat, adesLon := num(ColADEPLat), num(ColADEPLon), num(ColADESLat), num(ColADESLon)

	rows := make([]FlightRecord, df.Nrow())
	for i := range rows {
		rows[i] = FlightRecord{
			Origin:          origin(i),
			Destination:     dest(i),
			OriginCode:      adep(i),
			DestinationCode: ades(i),
			OperatorCode:    operator(i),
			AircraftType:    acType(i),
			AircraftVariant: variant(i),
			EngineModel:     engine(i),
			CO2Rating:       co2Rating(i),
			Sustainability:  sustain(i),
			DistanceKm:      distance(i),
			CO2PerPaxKm:     perPaxKm(i),
			TotalCO2Kg:      total(i),
			OriginLat:       adepLat(i),
			OriginLon:       adepLon(i),
			DestinationLat:  adesLat(i),
			DestinationLon:  adesLon(i),
		}
	}
	return rows
}

// nullable 空串在gota中记为缺失
func nullable(s string) string {
	if s == "" {
		return "NaN"
	}
	return s
}

func (p *Preparer) info(msg string) {
	if p.log != nil {
		p.log.Info(msg)
	}
}

func (p *Preparer) warning(msg string) {
	if p.log != nil {
		p.log.Warning(msg)
	}
}
