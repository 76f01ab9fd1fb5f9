package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/vaultdrop/internal/api"
	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/dmitrijs2005/vaultdrop/internal/server/services"
	"github.com/dmitrijs2005/vaultdrop/internal/server/wire"
	"github.com/gin-gonic/gin"
)

// access reads the vault password from the header, falling back to the
// query string used by older browser links.
func access(c *gin.Context, bodyPassword string) services.Access {
	pw := c.GetHeader(common.PasswordHeaderName)
	if pw == "" {
		pw = bodyPassword
	}
	if pw == "" {
		pw = c.Query("password")
	}
	return services.Access{Password: pw, Client: c.ClientIP()}
}

func (s *Server) register(c *gin.Context) {
	var req api.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := s.users.Register(c.Request.Context(), services.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wire.User(u, u.Plan.Quota()))
}

func (s *Server) login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pair, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.TokenPair(pair))
}

func (s *Server) refresh(c *gin.Context) {
	var req api.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pair, err := s.users.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.TokenPair(pair))
}

func (s *Server) profile(c *gin.Context) {
	p, err := s.users.Profile(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.User(p.User, p.Quota))
}

func (s *Server) updateProfile(c *gin.Context) {
	var req api.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := s.users.UpdateProfile(c.Request.Context(), identity(c), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.User(p.User, p.Quota))
}

func (s *Server) authorizeUpload(c *gin.Context) {
	var req api.AuthorizeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	slots, err := s.transfers.AuthorizeUpload(c.Request.Context(), identity(c), wire.UploadFiles(req.Files))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.Slots(slots))
}

func (s *Server) createTransfer(c *gin.Context) {
	var req api.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	created, err := s.transfers.CreateTransfer(c.Request.Context(), identity(c), wire.CreateInput(&req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wire.Created(created))
}

func (s *Server) listTransfers(c *gin.Context) {
	list, err := s.transfers.ListOwned(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.ListTransfersResponse{Transfers: wire.Summaries(list)})
}

func (s *Server) getTransfer(c *gin.Context) {
	env, err := s.transfers.GetTransfer(c.Request.Context(), c.Param("id"), access(c, ""))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.Envelope(env))
}

func (s *Server) resolveDownload(c *gin.Context) {
	var req api.ResolveDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	f, err := s.transfers.ResolveDownload(c.Request.Context(), c.Param("id"), access(c, req.Password), req.FileIndex, req.ClickID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.ResolvedFile(*f))
}

func (s *Server) deleteTransfer(c *gin.Context) {
	if err := s.transfers.DeleteTransfer(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listComments(c *gin.Context) {
	list, err := s.comments.List(c.Request.Context(), c.Param("id"), access(c, ""))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": wire.Comments(list)})
}

func (s *Server) postComment(c *gin.Context) {
	var req api.PostCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cm, err := s.comments.Post(c.Request.Context(), identity(c), c.Param("id"), access(c, ""), wire.CommentInput(&req))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, wire.Comment(cm))
}

func (s *Server) adminTransfers(c *gin.Context) {
	o, err := s.transfers.AdminOverview(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wire.Overview(o))
}

func (s *Server) adminUsers(c *gin.Context) {
	list, err := s.users.ListUsers(c.Request.Context(), identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": wire.Users(list)})
}

func (s *Server) adminBlock(c *gin.Context) {
	var req api.SetBlockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.users.SetBlocked(c.Request.Context(), identity(c), c.Param("id"), req.Blocked); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
