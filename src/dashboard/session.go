package dashboard

import (
	"AviationEmission/src/processor"
	"fmt"
	"sync/atomic"
)

// Session 一次会话中只构建一次的只读数据，所有视图共用
type Session struct {
	ShortHaulKm float64
	ShortHaul   processor.FlightTable // 距离上限内的航班
	All         processor.FlightTable // 不限距离的航班
	Train       processor.TrainModel

	log   processor.Logger
	stale atomic.Bool
}

// NewSession 准备短途表、全量表和火车模型，任何一步失败都返回错误
func NewSession(p *processor.Preparer, shortHaulKm float64, log processor.Logger) (*Session, error) {
	short, err := p.Prepare(processor.Km(shortHaulKm))
	if err != nil {
		return nil, fmt.Errorf("准备短途航班表失败: %w", err)
	}
	all, err := p.Prepare(nil)
	if err != nil {
		return nil, fmt.Errorf("准备全量航班表失败: %w", err)
	}
	train, err := processor.Emissions()
	if err != nil {
		return nil, fmt.Errorf("计算火车排放失败: %w", err)
	}

	s := &Session{
		ShortHaulKm: shortHaulKm,
		ShortHaul:   short,
		All:         all,
		Train:       train,
		log:         log,
	}
	s.info(fmt.Sprintf("会话数据已就绪: 短途 %d 行, 全量 %d 行, 火车目的地 %d 个",
		short.Len(), all.Len(), len(train.Destinations())))
	return s, nil
}

// MarkStale 数据文件在会话建立后发生变化。数据不会重新加载。
func (s *Session) MarkStale(path string) {
	if !s.stale.Swap(true) {
		s.warning(fmt.Sprintf("数据文件已变化，当前会话数据已过期，重启后生效: %s", path))
	}
}

func (s *Session) Stale() bool {
	return s.stale.Load()
}

func (s *Session) info(msg string) {
	if s.log != nil {
		s.log.Info(msg)
	}
}

func (s *Session) warning(msg string) {
	if s.log != nil {
		s.log.Warning(msg)
	}
}
