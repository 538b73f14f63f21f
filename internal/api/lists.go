package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lostmahbles/listial-api/internal/api/middleware"
	"github.com/lostmahbles/listial-api/internal/model"
	"github.com/lostmahbles/listial-api/internal/pkg/metrics"
	"github.com/lostmahbles/listial-api/internal/store"

	"github.com/gin-gonic/gin"
)

// createListRequest 创建清单的请求参数。
type createListRequest struct {
	Title string `json:"title"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

type respondInviteRequest struct {
	Accept *bool `json:"accept"`
}

// listResponse 对外的清单形态：成员以用户 ID 投影，邀请以邮箱投影。
type listResponse struct {
	ID            uint           `json:"id"`
	Title         string         `json:"title"`
	UserIDs       []uint         `json:"user_ids"`
	InvitedEmails []string       `json:"invited_emails"`
	Items         []itemResponse `json:"items"`
}

type itemResponse struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type invitationResponse struct {
	ListID uint   `json:"list_id"`
	Email  string `json:"email"`
}

func toListResponse(l *model.List) listResponse {
	resp := listResponse{
		ID:            l.ID,
		Title:         l.Title,
		UserIDs:       make([]uint, 0, len(l.Members)),
		InvitedEmails: make([]string, 0, len(l.Invites)),
		Items:         make([]itemResponse, 0, len(l.Items)),
	}
	for _, m := range l.Members {
		resp.UserIDs = append(resp.UserIDs, m.UserID)
	}
	for _, inv := range l.Invites {
		resp.InvitedEmails = append(resp.InvitedEmails, inv.Email)
	}
	for _, item := range l.Items {
		resp.Items = append(resp.Items, toItemResponse(&item))
	}
	return resp
}

func toItemResponse(item *model.ListItem) itemResponse {
	return itemResponse{ID: item.ID, Text: item.Text, Completed: item.Completed}
}

// handleCreateList 处理创建清单的请求，创建者成为唯一成员。
//
// POST /lists
func (s *Server) handleCreateList(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	allowed, err := s.quota.CanAddList(c.Request.Context(), user.ID)
	if err != nil {
		s.logger.Error("quota check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "list quota exceeded"})
		return
	}

	list, err := s.lists.Create(c.Request.Context(), req.Title, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrTitleRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("create list failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create list failed"})
		return
	}

	metrics.ListsCreatedTotal.Inc()
	c.JSON(http.StatusOK, toListResponse(list))
}

// handleListLists 返回用户可见的全部清单：已是成员的，加上其邮箱
// 被邀请但还没答复的。
//
// GET /lists
func (s *Server) handleListLists(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	lists, err := s.lists.ListsFor(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		s.logger.Error("list lists failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "list lists failed"})
		return
	}

	resp := make([]listResponse, 0, len(lists)) // 保证空结果编码为 [] 而不是 null
	for i := range lists {
		resp = append(resp, toListResponse(&lists[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// handleShowList 返回单张清单，仅限成员。
//
// GET /lists/:id
func (s *Server) handleShowList(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	listID, ok := parseListID(c)
	if !ok {
		return
	}

	list, err := s.lists.Get(c.Request.Context(), listID, user.ID)
	if err != nil {
		s.respondListError(c, err, "load list failed")
		return
	}
	c.JSON(http.StatusOK, toListResponse(list))
}

// handleDeleteList 把当前用户移出清单；最后一名成员离开时清单删除。
//
// DELETE /lists/:id
func (s *Server) handleDeleteList(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	listID, ok := parseListID(c)
	if !ok {
		return
	}

	deleted, err := s.lists.RemoveMember(c.Request.Context(), listID, user.ID)
	if err != nil {
		s.respondListError(c, err, "leave list failed")
		return
	}
	if deleted {
		metrics.ListsDeletedTotal.Inc()
	}
	c.JSON(http.StatusOK, nil)
}

// handleInvite 把邮箱加入清单的受邀名单并尽力发送通知邮件。
//
// POST /lists/:id/invitation
func (s *Server) handleInvite(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	listID, ok := parseListID(c)
	if !ok {
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invite, err := s.lists.Invite(c.Request.Context(), listID, user.ID, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrEmailRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.respondListError(c, err, "invite failed")
		return
	}

	metrics.InvitationsSentTotal.Inc()

	// 邮件失败不影响邀请本身。
	if list, loadErr := s.lists.Get(c.Request.Context(), listID, user.ID); loadErr == nil {
		if sendErr := s.notifier.SendInvitation(c.Request.Context(), listID, invite.Email, list.Title, user.Email); sendErr != nil {
			s.logger.Warn("send invitation email failed",
				slog.String("email", invite.Email),
				slog.String("error", sendErr.Error()),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"invitation": invitationResponse{ListID: invite.ListID, Email: invite.Email}})
}

// handleRespondInvite 接受或拒绝邀请。请求体必须带布尔 accept；
// 接受返回更新后的清单，拒绝返回空成功。
//
// PUT /lists/:id/invitation
func (s *Server) handleRespondInvite(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	listID, ok := parseListID(c)
	if !ok {
		return
	}

	var req respondInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Accept == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accept must be a boolean"})
		return
	}

	list, err := s.lists.RespondToInvite(c.Request.Context(), listID, user, *req.Accept)
	if err != nil {
		s.respondListError(c, err, "answer invitation failed")
		return
	}

	if *req.Accept {
		metrics.InvitationsAcceptedTotal.Inc()
		c.JSON(http.StatusOK, toListResponse(list))
		return
	}
	metrics.InvitationsDeclinedTotal.Inc()
	c.JSON(http.StatusOK, nil)
}

// respondListError 把存储层错误映射到响应：ErrNotFound → 404，其余 → 500。
func (s *Server) respondListError(c *gin.Context, err error, logMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}
	s.logger.Error(logMsg, slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": logMsg})
}

// parseListID 解析 :id 路径参数，非法值按清单不存在处理。
func parseListID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return 0, false
	}
	return uint(id), true
}
