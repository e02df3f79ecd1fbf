package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShepAlderson/copilot-orchestra/internal/domain"
)

type ingestRequest struct {
	Path      string   `json:"path"`
	FileTypes []string `json:"file_types"`
}

type queryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type queryResponse struct {
	Answer  string                   `json:"answer"`
	Sources []domain.RetrievedSource `json:"sources"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": serviceName,
		"version": Version,
		"endpoints": gin.H{
			"health": "/health",
			"ingest": "/ingest",
			"query":  "/query",
			"index":  "/index",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"ollama":       s.cfg.Ollama.Addr(),
		"vector_store": s.vectorStoreAddr(),
		"model":        s.cfg.Ollama.Model,
		"index_ready":  s.svc.Readiness().Ready(),
	})
}

func (s *Server) vectorStoreAddr() string {
	if s.cfg.VectorStore.Type == "bolt" {
		return "bolt:" + s.cfg.VectorStore.Bolt.Path
	}
	return s.cfg.VectorStore.Qdrant.Addr()
}

func (s *Server) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Path == "" {
		fail(c, http.StatusBadRequest, "Field 'path' is required")
		return
	}

	result, err := s.svc.Ingest(c.Request.Context(), req.Path, req.FileTypes)
	if err != nil {
		failFromError(c, err, "Ingestion failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "success",
		"documents_indexed": result.DocumentsIndexed,
		"path":              result.Path,
	})
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		fail(c, http.StatusBadRequest, "Field 'question' is required")
		return
	}
	if req.TopK == 0 {
		req.TopK = s.cfg.Query.TopK
	}

	result, err := s.svc.Query(c.Request.Context(), req.Question, req.TopK)
	if err != nil {
		failFromError(c, err, "Query failed")
		return
	}

	c.JSON(http.StatusOK, queryResponse{
		Answer:  result.Answer,
		Sources: result.Sources,
	})
}

func (s *Server) clearIndex(c *gin.Context) {
	if err := s.svc.Clear(c.Request.Context()); err != nil {
		failFromError(c, err, "Clear failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Index cleared successfully",
	})
}

// fail writes a structured error body in the {"detail": ...} shape.
func fail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

// failFromError maps the error taxonomy onto HTTP statuses. Internal
// failures are prefixed with the operation name and carry the
// underlying collaborator message verbatim.
func failFromError(c *gin.Context, err error, internalPrefix string) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		fail(c, http.StatusNotFound, err.Error())
	case domain.KindInvalidInput, domain.KindPrecondition:
		fail(c, http.StatusBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, internalPrefix+": "+err.Error())
	}
}
