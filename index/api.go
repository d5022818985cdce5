package index

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination bounds for GET /api/v1/persons.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// APIServer serves the index over a read-only HTTP API.
type APIServer struct {
	store *Store
}

// NewAPIServer creates a new API server backed by store.
func NewAPIServer(store *Store) *APIServer {
	return &APIServer{
		store: store,
	}
}

// SetupRouter configures the Gin router with all index API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/persons", s.HandleListPersons)
	api.GET("/persons/:id", s.HandleGetPerson)
	api.GET("/runs", s.HandleListRuns)

	return router
}

// ListPersonsResponse is the response for GET /api/v1/persons.
type ListPersonsResponse struct {
	Persons []Document `json:"persons"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
}

// ListRunsResponse is the response for GET /api/v1/runs.
type ListRunsResponse struct {
	Runs  []Run `json:"runs"`
	Total int   `json:"total"`
}

func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrPersonNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleListPersons handles GET /api/v1/persons. Query parameters: source,
// q, limit and offset.
func (s *APIServer) HandleListPersons(c *gin.Context) {
	limit, err := queryInt(c, "limit", DefaultLimit)
	if err != nil || limit < 1 || limit > MaxLimit {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter",
			"limit must be between 1 and "+strconv.Itoa(MaxLimit)))
		return
	}

	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("invalid_parameter", "offset must be non-negative"))
		return
	}

	filter := Filter{
		SourceCode: c.Query("source"),
		Q:          c.Query("q"),
		Limit:      limit,
		Offset:     offset,
	}

	total, err := s.store.Count(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	page, err := s.store.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListPersonsResponse{
		Persons: page,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// HandleGetPerson handles GET /api/v1/persons/:id.
func (s *APIServer) HandleGetPerson(c *gin.Context) {
	doc, err := s.store.Get(c.Param("id"))
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// HandleListRuns handles GET /api/v1/runs.
func (s *APIServer) HandleListRuns(c *gin.Context) {
	runs, err := s.store.ListRuns()
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListRunsResponse{
		Runs:  runs,
		Total: len(runs),
	})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
