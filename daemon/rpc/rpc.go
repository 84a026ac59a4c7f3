// Package jsonrpc serves the engine's operations over a JSON-RPC 2.0
// endpoint with basic-auth.
package jsonrpc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openfill/openfill/pkg/engine"
	"github.com/openfill/openfill/pkg/ledger"
	"github.com/openfill/openfill/pkg/opener"
	"github.com/openfill/openfill/pkg/reconciler"
	"github.com/openfill/openfill/pkg/resolver"
	"github.com/openfill/openfill/pkg/tracker"
)

type RPC interface {
	AddMethod(method Method)
	HandleJSONRPC(ctx *gin.Context)
	Run(addr string) error
}

type Method interface {
	Name() string
	Query(eng *engine.Engine, params json.RawMessage) (json.RawMessage, error)
}

type rpc struct {
	methods map[string]Method
	engine  *engine.Engine
	authsha [sha256.Size]byte
	logger  *zap.Logger
}

// Request defines a JSON-RPC 2.0 request object.
type Request struct {
	Version string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response defines a JSON-RPC 2.0 response object.
type Response struct {
	Version string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error defines a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Error codes
const (
	ErrorCodeParseError        = -32700
	ErrorMessageParseError     = "Parse error"
	ErrorCodeMethodNotFound    = -32601
	ErrorMessageMethodNotFound = "Method not found"
	ErrorCodeInvalidParams     = -32602
	ErrorMessageInvalidParams  = "Invalid params"
	ErrorCodeInternalError     = -32603
	ErrorMessageInternalError  = "Internal error"
)

func NewResponse(id interface{}, result json.RawMessage, err *Error) Response {
	return Response{
		Version: "2.0",
		ID:      id,
		Result:  result,
		Error:   err,
	}
}

func NewError(code int, message string, data string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewRpcServer(eng *engine.Engine, rpcUser, rpcPassword string, logger *zap.Logger) RPC {
	if rpcUser == "" || rpcPassword == "" {
		panic("RPC username and password must be specified")
	}

	login := rpcUser + ":" + rpcPassword
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))

	return &rpc{
		methods: make(map[string]Method),
		engine:  eng,
		authsha: sha256.Sum256([]byte(auth)),
		logger:  logger,
	}
}

func (r *rpc) AddMethod(method Method) {
	r.methods[method.Name()] = method
}

func (r *rpc) HandleJSONRPC(ctx *gin.Context) {
	req := Request{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, NewResponse(req.ID, nil, NewError(ErrorCodeParseError, ErrorMessageParseError, err.Error())))
		return
	}

	method, ok := r.methods[req.Method]
	if !ok {
		ctx.JSON(http.StatusNotFound, NewResponse(req.ID, nil, NewError(ErrorCodeMethodNotFound, ErrorMessageMethodNotFound, req.Method)))
		return
	}

	result, err := method.Query(r.engine, req.Params)
	if err != nil {
		code, message, status := classify(err)
		r.logger.Debug("rpc query failed", zap.String("method", req.Method), zap.Error(err))
		ctx.JSON(status, NewResponse(req.ID, nil, NewError(code, message, err.Error())))
		return
	}

	ctx.JSON(http.StatusOK, NewResponse(req.ID, result, nil))
}

// classify maps engine errors to JSON-RPC error codes. Caller mistakes come
// back as invalid params, everything unrecognized is an internal error.
func classify(err error) (code int, message string, httpStatus int) {
	switch {
	case errors.Is(err, resolver.ErrSchemaNotFound),
		errors.Is(err, resolver.ErrMalformedPayload),
		errors.Is(err, resolver.ErrInvalidOrder),
		errors.Is(err, opener.ErrAlreadyOpened),
		errors.Is(err, opener.ErrOpenDeadlineExceeded),
		errors.Is(err, opener.ErrUnauthorized),
		errors.Is(err, tracker.ErrUnknownOrder),
		errors.Is(err, tracker.ErrLegNotFound),
		errors.Is(err, tracker.ErrLegAlreadyFilled),
		errors.Is(err, tracker.ErrOrderExpired),
		errors.Is(err, reconciler.ErrNotFilled),
		errors.Is(err, reconciler.ErrNotExpirable),
		errors.Is(err, ledger.ErrUnknownOrder):
		return ErrorCodeInvalidParams, ErrorMessageInvalidParams, http.StatusBadRequest
	default:
		return ErrorCodeInternalError, ErrorMessageInternalError, http.StatusInternalServerError
	}
}

func (r *rpc) authenticateUser(ctx *gin.Context) {
	authhdr := ctx.GetHeader("Authorization")
	if len(authhdr) <= 0 {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized Invalid credentials"})
		return
	}
	authsha := sha256.Sum256([]byte(authhdr))
	cmp := subtle.ConstantTimeCompare(authsha[:], r.authsha[:])
	if cmp != 1 {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized Invalid credentials"})
		return
	}
}

func (r *rpc) Run(addr string) error {
	r.AddMethod(ResolveOrder())
	r.AddMethod(OpenOrder())
	r.AddMethod(FillOrder())
	r.AddMethod(GetOrder())
	r.AddMethod(ListOrders())
	r.AddMethod(SettleOrder())
	r.AddMethod(ExpireOrder())
	r.AddMethod(Status())

	s := gin.Default()
	s.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authRoutes := s.Group("/")
	authRoutes.Use(r.authenticateUser)
	authRoutes.POST("/", r.HandleJSONRPC)
	return s.Run(addr)
}
