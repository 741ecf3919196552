package processor

// ratingMap A-G标签转数值，A最好为7，G最差为1
var ratingMap = map[string]float64{
	"A": 7,
	"B": 6,
	"C": 5,
	"D": 4,
	"E": 3,
	"F": 2,
	"G": 1,
}

// airlineMap 航司ICAO代码到全称
var airlineMap = map[string]string{
	"KLM": "KLM Royal Dutch Airlines",
	"TRA": "Transavia",
	"SXS": "SunExpress",
	"AEE": "Aegean Airlines",
	"VLG": "Vueling Airlines",
	"EZS": "easyJet Switzerland",
	"ASL": "ASL Airlines",
	"AMC": "Air Malta Charter",
	"ROT": "TAROM",
	"RYR": "Ryanair",
	"EIN": "Aer Lingus",
	"DLH": "Lufthansa",
	"CPA": "Cathay Pacific",
	"FIN": "Finnair",
	"THY": "Turkish Airlines",
	"PGT": "Pegasus Airlines",
	"ICE": "Icelandair",
	"TAP": "TAP Air Portugal",
	"BAW": "British Airways",
	"AEA": "Air Europa",
	"IBE": "Iberia",
	"AFR": "Air France",
	"UAE": "Emirates",
	"BTI": "airBaltic",
	"AUA": "Austrian Airlines",
	"LOT": "LOT Polish Airlines",
	"CTN": "Croatia Airlines",
	"SWR": "SWISS International Air Lines",
}

// RatingNum 标签字母转数值，未知字母返回缺失值
func RatingNum(letter string) Num {
	v, ok := ratingMap[letter]
	if !ok {
		return Num{}
	}
	return Some(v)
}

// AirlineName 航司代码转全称
func AirlineName(code string) (string, bool) {
	name, ok := airlineMap[code]
	return name, ok
}
