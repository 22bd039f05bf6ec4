package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/statusline"
)

// bench is the status the server hands out. A raw override, when set, is
// served verbatim instead of the formatted reading so a board can be fed
// truncated or malformed lines.
type bench struct {
	mu      sync.RWMutex
	current state.State
	raw     string
}

func newBench() *bench {
	s := state.New()
	for f := state.Field(0); f < state.FieldCount; f++ {
		s.Set(f, 0)
	}
	return &bench{current: s}
}

func (b *bench) line() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.raw != "" {
		return b.raw
	}
	return statusline.Format(statusline.FromState(b.current))
}

func fieldByName(name string) (state.Field, bool) {
	for f := state.Field(0); f < state.FieldCount; f++ {
		if f.String() == name {
			return f, true
		}
	}
	return state.FieldCount, false
}

func newRouter(b *bench, path string, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(recoveryMiddleware(logger), loggingMiddleware(logger))

	r.GET(path, func(c *gin.Context) {
		c.String(http.StatusOK, "<html><body>%s</body></html>\n", b.line())
	})

	r.GET("/values", func(c *gin.Context) {
		b.mu.RLock()
		values := make(map[string]int, state.FieldCount)
		for f := state.Field(0); f < state.FieldCount; f++ {
			values[f.String()] = b.current.Get(f)
		}
		raw := b.raw
		b.mu.RUnlock()

		c.JSON(http.StatusOK, gin.H{"ok": true, "values": values, "raw": raw})
	})

	r.PUT("/values", func(c *gin.Context) {
		var values map[string]int
		if err := c.ShouldBindJSON(&values); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
		for name := range values {
			if _, ok := fieldByName(name); !ok {
				c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unknown field " + name})
				return
			}
		}

		b.mu.Lock()
		for name, v := range values {
			f, _ := fieldByName(name)
			b.current.Set(f, v)
		}
		b.current.FetchedAt = time.Now()
		b.mu.Unlock()

		c.JSON(http.StatusOK, gin.H{"ok": true, "line": b.line()})
	})

	r.PUT("/raw", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
		b.mu.Lock()
		b.raw = string(body)
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.DELETE("/raw", func(c *gin.Context) {
		b.mu.Lock()
		b.raw = ""
		b.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

// loggingMiddleware logs each request with duration and status.
func loggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
			"ip", c.ClientIP(),
		)
	}
}

// recoveryMiddleware catches panics and returns a 500 error.
func recoveryMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", "error", r, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"ok":    false,
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
