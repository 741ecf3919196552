package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// MissingColumns 返回df中不存在的列名(保持传入顺序)
func MissingColumns(df dataframe.DataFrame, names ...string) []string {
	var missing []string
	for _, name := range names {
		if !HasColumn(df, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// DropIfPresent 删除存在的列，不存在的列忽略
func DropIfPresent(df dataframe.DataFrame, names ...string) dataframe.DataFrame {
	var present []string
	for _, name := range names {
		if HasColumn(df, name) {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return df
	}
	return df.Drop(present)
}

// DropDuplicates 删除完全重复的行，保留第一次出现的行
func DropDuplicates(df dataframe.DataFrame) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}

	records := df.Records()[1:] // 跳过列名
	seen := make(map[string]struct{}, len(records))
	keep := make([]int, 0, len(records))
	for i, row := range records {
		key := strings.Join(row, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	if len(keep) == len(records) {
		return df
	}
	return df.Subset(keep)
}

// NormalizeNumeric 把数值列统一为最短的十进制文本(170.0 -> 170)，
// 缺失或无法解析的值记为缺失。不存在的列忽略。
func NormalizeNumeric(df dataframe.DataFrame, names ...string) dataframe.DataFrame {
	for _, name := range names {
		if !HasColumn(df, name) {
			continue
		}
		col := df.Col(name)
		values := make([]string, col.Len())
		for i := range values {
			if v, ok := ElemFloat(col.Elem(i)); ok {
				values[i] = strconv.FormatFloat(v, 'g', -1, 64)
			} else {
				values[i] = "NaN"
			}
		}
		df = df.Mutate(series.New(values, series.String, name))
	}
	return df
}

// ElemFloat 将元素解析为float64，缺失或无法解析时返回false
func ElemFloat(e series.Element) (float64, bool) {
	if e.IsNA() {
		return math.NaN(), false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(e.String()), 64)
	if err != nil || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}

// ElemString 返回元素字符串，缺失时返回空串
func ElemString(e series.Element) string {
	if e.IsNA() {
		return ""
	}
	return e.String()
}

// Round 按十进制正确舍入到places位小数(与格式化输出一致)
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
