package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"

	"github.com/CryLyo/EduBot/internal/queue"
	queuesvc "github.com/CryLyo/EduBot/internal/services/queues"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// scopeFromPath parses the :guild/:channel path segments.
func scopeFromPath(c *gin.Context) (queue.Scope, bool) {
	guild, err := strconv.ParseInt(c.Param("guild"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild id"})
		return queue.Scope{}, false
	}
	channel, err := strconv.ParseInt(c.Param("channel"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return queue.Scope{}, false
	}
	return queue.Scope{Guild: guild, Channel: channel}, true
}

func idxFromPath(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question index"})
		return 0, false
	}
	return idx, true
}

// respond writes the service outcome, translating the error taxonomy to
// HTTP statuses. Informational outcomes arrive as results, not errors.
func (s *Server) respond(c *gin.Context, res *queuesvc.Result, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case pkgerrors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "this channel doesn't have a queue"})
	case pkgerrors.Is(err, queue.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "this channel already has a queue"})
	case pkgerrors.Is(err, queuesvc.ErrWrongKind),
		pkgerrors.Is(err, queue.ErrTopicRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed",
			logpkg.Str("path", c.FullPath()), logpkg.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (s *Server) listQueues(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queues": s.svc.List(c.Request.Context())})
}

type makeQueueRequest struct {
	Guild       int64  `json:"guild" binding:"required"`
	Channel     int64  `json:"channel" binding:"required"`
	GuildName   string `json:"guildname"`
	ChannelName string `json:"channame"`
	Kind        string `json:"kind" binding:"required"`
}

func (s *Server) makeQueue(c *gin.Context) {
	var req makeQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := queue.Kind(req.Kind)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown queue kind"})
		return
	}
	scope := queue.Scope{Guild: req.Guild, Channel: req.Channel}
	names := queue.Names{Guild: req.GuildName, Channel: req.ChannelName}
	res, err := s.svc.MakeQueue(c.Request.Context(), scope, names, kind)
	s.respond(c, res, err)
}

func (s *Server) deleteQueue(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	res, err := s.svc.DeleteQueue(c.Request.Context(), scope)
	s.respond(c, res, err)
}

type convertRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Topic string `json:"topic"`
}

func (s *Server) convert(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Convert(c.Request.Context(), scope, queue.Kind(req.Kind), req.Topic)
	s.respond(c, res, err)
}

type memberRequest struct {
	Participant int64  `json:"participant" binding:"required"`
	Topic       string `json:"topic"`
}

func (s *Server) join(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Join(c.Request.Context(), scope, req.Participant, req.Topic)
	s.respond(c, res, err)
}

func (s *Server) leave(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Leave(c.Request.Context(), scope, req.Participant, req.Topic)
	s.respond(c, res, err)
}

func (s *Server) whereIs(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	participant, err := strconv.ParseInt(c.Param("participant"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}
	res, err := s.svc.WhereAmI(c.Request.Context(), scope, participant)
	s.respond(c, res, err)
}

func (s *Server) entries(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	entries, err := s.svc.Entries(c.Request.Context(), scope, c.Query("filter"))
	if err != nil {
		if pkgerrors.Is(err, queue.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "this channel doesn't have a queue"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type takeNextRequest struct {
	Operator int64  `json:"operator" binding:"required"`
	Topic    string `json:"topic"`
	All      bool   `json:"all"`
}

func (s *Server) takeNext(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	var req takeNextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.TakeNext(c.Request.Context(), scope, req.Operator, req.Topic, req.All)
	s.respond(c, res, err)
}

type putBackRequest struct {
	Operator int64 `json:"operator" binding:"required"`
	Position *int  `json:"position"`
}

func (s *Server) putBack(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	var req putBackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pos := 10
	if req.Position != nil {
		pos = *req.Position
	}
	res, err := s.svc.PutBack(c.Request.Context(), scope, req.Operator, pos)
	s.respond(c, res, err)
}

type topicRequest struct {
	Topic string `json:"topic" binding:"required"`
}

func (s *Server) startReviewing(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.StartReviewing(c.Request.Context(), scope, req.Topic)
	s.respond(c, res, err)
}

func (s *Server) stopReviewing(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	res, err := s.svc.StopReviewing(c.Request.Context(), scope, c.Param("topic"))
	s.respond(c, res, err)
}

func (s *Server) listQuestions(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	participant, _ := strconv.ParseInt(c.Query("participant"), 10, 64)
	res, err := s.svc.Follow(c.Request.Context(), scope, participant, 0)
	s.respond(c, res, err)
}

type askRequest struct {
	Asker int64  `json:"asker" binding:"required"`
	Text  string `json:"text"`
}

func (s *Server) ask(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Ask(c.Request.Context(), scope, req.Asker, req.Text)
	s.respond(c, res, err)
}

type followRequest struct {
	Participant int64 `json:"participant" binding:"required"`
}

func (s *Server) follow(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	idx, ok := idxFromPath(c)
	if !ok {
		return
	}
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Follow(c.Request.Context(), scope, req.Participant, idx)
	s.respond(c, res, err)
}

type answerRequest struct {
	Operator int64  `json:"operator" binding:"required"`
	Text     string `json:"text"`
}

func (s *Server) answer(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	idx, ok := idxFromPath(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Answer(c.Request.Context(), scope, req.Operator, idx, req.Text)
	s.respond(c, res, err)
}

type amendRequest struct {
	By   int64  `json:"by" binding:"required"`
	Text string `json:"text" binding:"required"`
}

func (s *Server) amend(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	idx, ok := idxFromPath(c)
	if !ok {
		return
	}
	var req amendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.svc.Amend(c.Request.Context(), scope, req.By, idx, req.Text)
	s.respond(c, res, err)
}

func (s *Server) saveOne(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	res, err := s.svc.Save(c.Request.Context(), scope)
	s.respond(c, res, err)
}

func (s *Server) loadOne(c *gin.Context) {
	scope, ok := scopeFromPath(c)
	if !ok {
		return
	}
	res, err := s.svc.Load(c.Request.Context(), scope)
	s.respond(c, res, err)
}

func (s *Server) saveAll(c *gin.Context) {
	res, err := s.svc.SaveAll(c.Request.Context())
	s.respond(c, res, err)
}

func (s *Server) loadAll(c *gin.Context) {
	res, err := s.svc.LoadAll(c.Request.Context())
	s.respond(c, res, err)
}
