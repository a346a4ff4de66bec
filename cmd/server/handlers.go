package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/personalization"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/pipeline"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/regression"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/validator"
)

func (s *apiServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "generation-quality-pipeline",
		"suites":  len(regression.SuiteNames()),
	})
}

type analyzeRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *apiServer) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.pipeline.Analyzer().Analyze(req.Text))
}

type personalizeRequest struct {
	Text            string                                   `json:"text" binding:"required"`
	Template        string                                   `json:"template"`
	SessionID       string                                   `json:"session_id"`
	Recommendations []personalization.ExternalRecommendation `json:"recommendations"`
}

func (s *apiServer) personalize(c *gin.Context) {
	var req personalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Template == "" {
		req.Template = "react-vite-app"
	}

	analysis := s.pipeline.Analyzer().Analyze(req.Text)
	sess, ok := s.loadSession(c, req.SessionID)
	if !ok {
		return
	}

	template := s.pipeline.Engine().Personalize(req.Template, analysis, sess, req.Recommendations)
	c.JSON(http.StatusOK, gin.H{
		"analysis": analysis,
		"template": template,
	})
}

type validateRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *apiServer) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artifact, err := validator.LoadArtifact(req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, appCtx := s.pipeline.Validator().ValidateWithContext(c.Request.Context(), artifact)
	c.JSON(http.StatusOK, gin.H{
		"result":      result,
		"app_context": appCtx,
	})
}

func (s *apiServer) runPipeline(c *gin.Context) {
	var req pipeline.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	result, err := s.pipeline.Run(c.Request.Context(), req)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if result == nil {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *apiServer) listSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ids, err := s.pipeline.Sessions().List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": ids})
}

func (s *apiServer) getSession(c *gin.Context) {
	sess, err := s.pipeline.Sessions().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *apiServer) deleteSession(c *gin.Context) {
	if err := s.pipeline.Sessions().Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *apiServer) runRegression(c *gin.Context) {
	result, err := s.runner.RunSuite(c.Request.Context(), c.Param("suite"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// loadSession fetches an existing session for read-only personalization.
// A missing or empty ID yields a nil session, which the engine treats as
// the anonymous fast path. Writes the error response itself when the store
// fails; the false return tells the handler to stop.
func (s *apiServer) loadSession(c *gin.Context, id string) (*session.Session, bool) {
	if id == "" {
		return nil, true
	}
	sess, err := s.pipeline.Sessions().Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return sess, true
}
