package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudx-io/opennegotiation/partyapi"
	"github.com/cloudx-io/opennegotiation/receipt"
	"github.com/cloudx-io/opennegotiation/store"
)

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/party", s.HandleParty)
	e.GET("/capabilities", s.Capabilities)
	e.GET("/healthz", s.Health)
	e.GET("/receipts", s.ListReceipts)
	e.GET("/receipts/:id", s.GetReceipt)
}

// Capabilities describes the configured strategy.
func (s *Server) Capabilities(c echo.Context) error {
	strategy, err := s.newStrategy()
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, partyapi.InfoFor(strategy))
}

// Health returns health status.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, partyapi.HealthResponse{
		Status:         "healthy",
		Strategy:       s.cfg.Party.Strategy,
		ActiveSessions: int(s.active.Load()),
		MaxSessions:    cap(s.semaphore),
		Timestamp:      s.now().UTC(),
	})
}

// GetReceipt returns the signed receipt of one session.
func (s *Server) GetReceipt(c echo.Context) error {
	if s.store == nil {
		return errorJSON(c, http.StatusNotFound, "receipts are disabled")
	}

	rec, err := s.store.GetReceipt(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrReceiptNotFound) {
		return errorJSON(c, http.StatusNotFound, err.Error())
	}
	if err != nil {
		log.Printf("ERROR: Failed to load receipt %s: %v", c.Param("id"), err)
		return errorJSON(c, http.StatusInternalServerError, "failed to load receipt")
	}
	return c.JSON(http.StatusOK, receiptResponse(rec))
}

// ListReceipts returns the most recent receipts.
func (s *Server) ListReceipts(c echo.Context) error {
	if s.store == nil {
		return errorJSON(c, http.StatusNotFound, "receipts are disabled")
	}

	records, err := s.store.ListReceipts(c.Request().Context(), 100)
	if err != nil {
		log.Printf("ERROR: Failed to list receipts: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to list receipts")
	}

	resp := make([]partyapi.ReceiptResponse, len(records))
	for i, rec := range records {
		resp[i] = receiptResponse(rec)
	}
	return c.JSON(http.StatusOK, resp)
}

func receiptResponse(rec receipt.Record) partyapi.ReceiptResponse {
	resp := partyapi.ReceiptResponse{
		SessionID: rec.SessionID,
		Receipt:   rec.Receipt.EncodeURLSafe().String(),
		PublicKey: rec.PublicKeyPEM,
		CreatedAt: rec.CreatedAt.UTC(),
	}
	if len(rec.Attestation) > 0 {
		resp.Attestation = rec.Attestation.EncodeBase64().String()
	}
	return resp
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, partyapi.ErrorResponse{Type: "error", Message: message})
}
