package handlers

import (
	"net/http"

	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/cache"
	"github.com/Ayushcodespy/Agro-Trade-Digital-Portal/internal/database"

	"github.com/gin-gonic/gin"
)

// GetSystemStatus reports whether the backing stores are reachable. The
// frontend shows this on its maintenance screen.
func GetSystemStatus(c *gin.Context) {
	dbStatus := "ok"
	if sqlDB, err := database.DB.DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error"
	}

	cacheStatus := "disabled"
	if cache.RDB != nil {
		cacheStatus = "ok"
		if err := cache.RDB.Ping(c.Request.Context()).Err(); err != nil {
			cacheStatus = "error"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
