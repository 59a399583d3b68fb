package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func paging(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = defaultPageSize, 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, 0, false
		}
		limit = min(n, maxPageSize)
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

func badPaging(c *gin.Context) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_paging", Message: "limit and offset must be non-negative integers", Code: http.StatusBadRequest})
}

// GetRuns returns recorded workflow runs, newest first
func (h *Handlers) GetRuns(c *gin.Context) {
	limit, offset, ok := paging(c)
	if !ok {
		badPaging(c)
		return
	}
	runs, err := h.repo.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "database_error", Message: "Failed to fetch runs", Code: http.StatusInternalServerError})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// GetLatestRun returns the summary of the latest run in this process
func (h *Handlers) GetLatestRun(c *gin.Context) {
	summary, ok := h.runs.LastSummary()
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "No run completed yet", Code: http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetAttachments returns archived attachments, newest first
func (h *Handlers) GetAttachments(c *gin.Context) {
	limit, offset, ok := paging(c)
	if !ok {
		badPaging(c)
		return
	}
	recs, err := h.repo.ListAttachments(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "database_error", Message: "Failed to fetch attachments", Code: http.StatusInternalServerError})
		return
	}
	c.JSON(http.StatusOK, recs)
}
