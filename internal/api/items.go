package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lostmahbles/listial-api/internal/api/middleware"
	"github.com/lostmahbles/listial-api/internal/store"

	"github.com/gin-gonic/gin"
)

type addItemRequest struct {
	Text string `json:"text"`
}

type updateItemRequest struct {
	Completed *bool `json:"completed"`
}

type clearItemsRequest struct {
	Clear *bool `json:"clear"`
}

// handleAddItem 在清单末尾追加条目并返回全部条目。
//
// POST /lists/:id/items
func (s *Server) handleAddItem(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	listID, ok := parseListID(c)
	if !ok {
		return
	}

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := s.lists.AddItem(c.Request.Context(), listID, user.ID, req.Text)
	if err != nil {
		if errors.Is(err, store.ErrTextRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.respondListError(c, err, "add item failed")
		return
	}

	resp := make([]itemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toItemResponse(&items[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

// handleUpdateItem 修改条目的完成标记。
//
// PUT /lists/:id/items/:item_id — completed 必须是显式布尔，
// true/false 都接受，条目可以被重新打开。
func (s *Server) handleUpdateItem(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	listID, ok := parseListID(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	var req updateItemRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}
	if req.Completed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "completed must be a boolean"})
		return
	}

	item, err := s.lists.SetItemCompleted(c.Request.Context(), listID, uint(itemID), user.ID, *req.Completed)
	if err != nil {
		s.respondListError(c, err, "update item failed")
		return
	}
	c.JSON(http.StatusOK, toItemResponse(item))
}

// handleClearCompleted 一次性移除清单里所有已完成条目。
//
// PUT /lists/:id/items — 请求体必须带 {"clear": true}，
// 防止空 PUT 误清空；重复调用是无操作。
func (s *Server) handleClearCompleted(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	listID, ok := parseListID(c)
	if !ok {
		return
	}

	var req clearItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Clear == nil || !*req.Clear {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clear directive required"})
		return
	}

	list, err := s.lists.ClearCompleted(c.Request.Context(), listID, user.ID)
	if err != nil {
		s.respondListError(c, err, "clear items failed")
		return
	}
	c.JSON(http.StatusOK, toListResponse(list))
}
