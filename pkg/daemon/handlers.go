package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/version"
)

// Router returns the HTTP API served on the daemon socket.
func (d *Daemon) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/reading", d.getReading)
	router.POST("/reset", d.reset)
	router.GET("/config", d.getConfig)
	router.PUT("/poll-interval", d.setPollInterval)
	router.PUT("/relearn-schedule", d.setRelearnSchedule)
	router.GET("/ticks", d.getTicks)
	router.GET("/version", getVersion)
	router.GET("/ws", d.streamEvents)

	return router
}

func (d *Daemon) getReading(c *gin.Context) {
	r, ok := d.latest.Load()
	if !ok {
		c.IndentedJSON(http.StatusNotFound, "no reading yet")
		return
	}
	c.IndentedJSON(http.StatusOK, r)
}

func (d *Daemon) reset(c *gin.Context) {
	d.Reset(ResetReasonManual)
	c.IndentedJSON(http.StatusOK, "ok")
}

func (d *Daemon) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(d.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func (d *Daemon) setPollInterval(c *gin.Context) {
	var s string
	if err := c.BindJSON(&s); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	interval, err := time.ParseDuration(s)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.conf.SetPollInterval(interval); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if err := d.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.Infof("set poll interval to %s", interval)

	// Start the new interval now instead of after the old one.
	d.Refresh()

	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set poll interval to %s", interval))
}

func (d *Daemon) setRelearnSchedule(c *gin.Context) {
	var expr string
	if err := c.BindJSON(&expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if err := d.conf.SetRelearnSchedule(expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if err := d.scheduler.Schedule(expr); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if err := d.conf.Save(); err != nil {
		logrus.Errorf("saveConfig failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	if expr == "" {
		logrus.Info("relearn schedule disabled")
		c.IndentedJSON(http.StatusCreated, "relearn schedule disabled")
		return
	}

	logrus.Infof("set relearn schedule to %q", expr)
	c.IndentedJSON(http.StatusCreated, fmt.Sprintf("set relearn schedule to %q", expr))
}

func (d *Daemon) getTicks(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, d.recorder.GetRecordsString())
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}
