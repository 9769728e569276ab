package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) uuid.UUID {
	value, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil
	}
	switch v := value.(type) {
	case uuid.UUID:
		return v
	case string:
		if parsed, err := uuid.Parse(v); err == nil {
			return parsed
		}
	}
	return uuid.Nil
}

// currentIsAdmin reads the admin flag set by the auth middleware.
func currentIsAdmin(c *gin.Context) bool {
	value, ok := c.Get("is_admin")
	if !ok {
		return false
	}
	isAdmin, _ := value.(bool)
	return isAdmin
}

// uuidParam parses a path parameter as a UUID.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads limit/offset query parameters with defaults.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
