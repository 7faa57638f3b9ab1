package server

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"

	"github.com/berfenger/amicomm/internal/core/domain"
	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/berfenger/amicomm/pkg/psem"
	"github.com/berfenger/amicomm/pkg/tlv"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
}

type deviceInfoBody struct {
	FirmwareVersion string                          `json:"firmware_version"`
	HardwareVersion string                          `json:"hardware_version"`
	Activation      string                          `json:"activation"`
	ReversePANID    bool                            `json:"reverse_pan_id"`
	Hardware        *commmodule.HardwareDescription `json:"hardware"`
}

type tlvBody struct {
	Identifier string                  `json:"identifier"`
	Raw        string                  `json:"raw"`
	Records    []commmodule.DecodedTLV `json:"records"`
	Error      string                  `json:"error,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	e.GET("/healthcheck", s.HealthCheckHandler)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	api := e.Group("/api")
	api.GET("/device", s.DeviceInfoHandler)
	api.GET("/diagnostics", s.DiagnosticsHandler)
	api.POST("/diagnostics/refresh", s.RefreshHandler)
	api.GET("/history", s.HistoryHandler)
	api.GET("/tlv/:identifier", s.TLVHandler)
	api.POST("/ip-stack/reset", s.ResetIPStackHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.request(domain.ActorHealthRequest{})
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DeviceInfoHandler(c echo.Context) error {
	res, err := s.request(domain.GetDeviceInfoRequest{})
	if err != nil {
		return s.fail(c, err)
	}
	resp, ok := res.(domain.GetDeviceInfoResponse)
	if !ok {
		return s.unexpected(c, res)
	}
	if resp.HasResponseError() {
		return s.fail(c, resp.GetResponseError())
	}
	return c.JSON(http.StatusOK, deviceInfoBody{
		FirmwareVersion: resp.FirmwareVersion.String(),
		HardwareVersion: resp.HardwareVersion.String(),
		Activation:      resp.Quirks.Activation.String(),
		ReversePANID:    resp.Quirks.ReversePANID,
		Hardware:        resp.Hardware,
	})
}

func (s *Server) DiagnosticsHandler(c echo.Context) error {
	res, err := s.request(domain.GetDiagnosticsSnapshotRequest{})
	if err != nil {
		return s.fail(c, err)
	}
	resp, ok := res.(domain.GetDiagnosticsSnapshotResponse)
	if !ok {
		return s.unexpected(c, res)
	}
	if resp.HasResponseError() {
		return s.fail(c, resp.GetResponseError())
	}
	return c.JSON(http.StatusOK, resp.Snapshot)
}

func (s *Server) RefreshHandler(c echo.Context) error {
	s.rootContext.Send(s.masterActor, domain.RefreshDiagnosticsRequest{})
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) HistoryHandler(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 0 {
			return c.JSON(http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
		}
		limit = l
	}
	res, err := s.request(domain.GetHistoryRequest{Limit: limit})
	if err != nil {
		return s.fail(c, err)
	}
	resp, ok := res.(domain.GetHistoryResponse)
	if !ok {
		return s.unexpected(c, res)
	}
	if resp.HasResponseError() {
		return s.fail(c, resp.GetResponseError())
	}
	entries := resp.Entries
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, entries)
}

// TLVHandler accepts either a raw identifier ("q=53") or a bare tag number.
// A malformed answer is still returned with whatever could be decoded.
func (s *Server) TLVHandler(c echo.Context) error {
	identifier := c.Param("identifier")
	if tag, err := strconv.ParseUint(identifier, 10, 8); err == nil {
		identifier = commmodule.TLVIdentifier(uint8(tag))
	}
	res, err := s.request(domain.ReadTLVRequest{Identifier: identifier})
	if err != nil {
		return s.fail(c, err)
	}
	resp, ok := res.(domain.ReadTLVResponse)
	if !ok {
		return s.unexpected(c, res)
	}
	var malformed *tlv.MalformedTLVError
	if resp.HasResponseError() && !errors.As(resp.GetResponseError(), &malformed) {
		return s.fail(c, resp.GetResponseError())
	}

	body := tlvBody{
		Identifier: identifier,
		Raw:        hex.EncodeToString(resp.Raw),
	}
	decoded, err := commmodule.DecodeRecords(resp.Records)
	body.Records = decoded
	if resp.HasResponseError() {
		body.Error = resp.GetResponseError().Error()
	} else if err != nil {
		body.Error = err.Error()
	}
	return c.JSON(http.StatusOK, body)
}

func (s *Server) ResetIPStackHandler(c echo.Context) error {
	res, err := s.request(domain.ResetIPStackRequest{})
	if err != nil {
		return s.fail(c, err)
	}
	resp, ok := res.(domain.ResetIPStackResponse)
	if !ok {
		return s.unexpected(c, res)
	}
	if resp.HasResponseError() {
		return s.fail(c, resp.GetResponseError())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) request(msg any) (any, error) {
	return s.rootContext.RequestFuture(s.masterActor, msg, s.requestTimeout).Result()
}

func (s *Server) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var perr *psem.ProcedureError
	var terr *psem.TransportError
	var aerr *commmodule.ActivationError
	switch {
	case errors.Is(err, commmodule.ErrInvalidIdentifier):
		status = http.StatusBadRequest
	case errors.Is(err, actor.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &aerr), errors.As(err, &perr), errors.As(err, &terr):
		status = http.StatusBadGateway
	}
	s.logger.Warn("request failed",
		zap.String("path", c.Path()),
		zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		zap.Int("status", status),
		zap.Error(err))
	return c.JSON(status, errorBody{Error: err.Error()})
}

func (s *Server) unexpected(c echo.Context, res any) error {
	s.logger.Error("unexpected actor response", zap.String("path", c.Path()), zap.Any("response", res))
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "unexpected response"})
}
