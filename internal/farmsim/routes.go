package farmsim

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/luki/smartfarm/internal/device"
	"github.com/luki/smartfarm/internal/reading"
)

// Handler builds the gin engine with every route.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Origins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.POST("/register", s.handleRegister)
	r.POST("/login", s.handleLogin)
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	auth := r.Group("/")
	auth.Use(s.requireToken())
	auth.GET("/data_retrieval", s.handleDataRetrieval)
	auth.POST("/retrieve_sensor_data", s.handleRetrieve)
	auth.POST("/data_simulation", s.handleDataSimulation)
	for _, a := range device.Actions() {
		auth.POST("/"+string(a), s.handleAction(a))
	}
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		s.logger.Info("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", code,
			"duration", time.Since(start).String(),
		)
	}
}

// handleDataRetrieval returns every stored reading. With ?parameter=p the
// rows carry only that parameter.
func (s *Server) handleDataRetrieval(c *gin.Context) {
	readings := s.Readings()

	if raw := c.Query("parameter"); raw != "" && raw != "all" {
		p, err := reading.ParseParameter(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		for i, r := range readings {
			readings[i] = reading.SensorReading{Timestamp: r.Timestamp}
			readings[i].Set(p, r.Get(p))
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": readings})
}

func (s *Server) handleRetrieve(c *gin.Context) {
	r := s.Simulate()
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Sensor data retrieved",
		"data":    r,
	})
}

// handleDataSimulation appends a reading copied from the latest one with
// the posted {parameter: value} pairs applied.
func (s *Server) handleDataSimulation(c *gin.Context) {
	var in map[string]json.RawMessage
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid input"})
		return
	}

	var next reading.SensorReading
	if all := s.Readings(); len(all) > 0 {
		next = all[len(all)-1]
	}
	next.Timestamp = s.cfg.Now().Format(timeLayout)

	for key, raw := range in {
		p, err := reading.ParseParameter(key)
		if err != nil {
			continue
		}
		var v reading.Value
		_ = v.UnmarshalJSON(raw)
		next.Set(p, v)
	}
	s.Append(next)

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Smart Farm data updated successfully!",
		"data":    next,
	})
}

func (s *Server) handleAction(a device.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.setRelay(a)
		s.metrics.actions.WithLabelValues(string(a)).Inc()
		s.logger.Info("device action", "action", a, "user", c.GetString(userKey))
		c.JSON(http.StatusOK, gin.H{"message": actionMessages[a]})
	}
}

var actionMessages = map[device.Action]string{
	device.OpenWindow:  "Window opened",
	device.CloseWindow: "Window closed",
	device.LightOn:     "Light turned on",
	device.LightOff:    "Light turned off",
	device.OpenFan:     "Fan turned on",
	device.CloseFan:    "Fan turned off",
}
