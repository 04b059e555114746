package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Values live in the signed session cookie, so the whole store has to fit
// in one cookie.
const (
	kvPrefix     = "kv:"
	maxKeyLen    = 64
	maxValueSize = 2048
)

var (
	errBadKey      = errors.New("invalid key")
	errValueTooBig = errors.New("value too large")
)

func kvKey(c *gin.Context) (string, error) {
	key := c.Param("key")
	if key == "" || len(key) > maxKeyLen || strings.ContainsAny(key, " \t\r\n") {
		return "", errBadKey
	}
	return kvPrefix + key, nil
}

func kvGet(c *gin.Context) {
	key, err := kvKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raw, ok := sessions.Default(c).Get(key).(string)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(raw))
}

func kvPut(c *gin.Context) {
	key, err := kvKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxValueSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) > maxValueSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errValueTooBig.Error()})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be JSON"})
		return
	}

	s := sessions.Default(c)
	s.Set(key, string(body))
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("key", key).Msg("kv save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func kvDelete(c *gin.Context) {
	key, err := kvKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := sessions.Default(c)
	s.Delete(key)
	if err := s.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("key", key).Msg("kv delete")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
