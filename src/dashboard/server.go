package dashboard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// LogStream 提供实时日志订阅
type LogStream interface {
	Subscribe() <-chan string
	Unsubscribe(sub <-chan string)
}

// Server 仪表盘的HTTP接口
type Server struct {
	router      *gin.Engine
	session     *Session
	logs        LogStream
	ratingImage string
}

// NewServer 注册全部路由。logs为nil时不提供/logs
func NewServer(session *Session, logs LogStream, ratingImage string) *Server {
	s := &Server{
		router:      gin.Default(),
		session:     session,
		logs:        logs,
		ratingImage: ratingImage,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/routes", s.handleRoutes)
	api.GET("/routes/flights", s.handleRouteFlights)
	api.GET("/trains", s.handleTrains)
	api.GET("/trains/:destination", s.handleTrainJourney)
	api.GET("/comparison", s.handleComparison)
	api.GET("/rankings/:dimension", s.handleRanking)

	s.router.GET("/assets/rating-label", s.handleRatingImage)
	if s.logs != nil {
		s.router.GET("/logs", s.handleLogs)
	}
}

// Handler 供http.Server使用
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRoutes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"max_distance":  s.session.ShortHaulKm,
		"routes":        s.session.MapRoutes(),
		"options":       append([]string{NoSelection}, s.session.RouteOptions()...),
		"stale_session": s.session.Stale(),
	})
}

func (s *Server) handleRouteFlights(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.RouteFlights(c.DefaultQuery("route", NoSelection)))
}

func (s *Server) handleTrains(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"destinations": append([]string{NoSelection}, s.session.Train.Destinations()...),
		"totals":       s.session.Train.Totals(),
	})
}

func (s *Server) handleTrainJourney(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.TrainJourney(c.Param("destination")))
}

func (s *Server) handleComparison(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"max_distance": s.session.ShortHaulKm,
		"comparison":   s.session.Comparison(),
	})
}

func (s *Server) handleRanking(c *gin.Context) {
	dim := Dimension(c.Param("dimension"))
	metric := Metric(c.Query("metric"))

	view, err := s.session.Ranking(dim, metric)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrUnknownDimension) || errors.Is(err, ErrUnknownMetric) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleRatingImage(c *gin.Context) {
	if s.ratingImage == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "rating label image not configured"})
		return
	}
	c.File(s.ratingImage)
}

// handleLogs 持续输出日志，直到客户端断开或订阅关闭
func (s *Server) handleLogs(c *gin.Context) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)

	logChan := s.logs.Subscribe()
	defer s.logs.Unsubscribe(logChan)

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprintln(c.Writer, msg); err != nil {
				return
			}
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
