package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmynk/splitcheck/internal/httpx"
	"github.com/mmynk/splitcheck/internal/models"
)

type receiptResponse struct {
	Success bool            `json:"success"`
	Receipt *models.Receipt `json:"receipt"`
}

type createResponse struct {
	Success   bool            `json:"success"`
	ReceiptID string          `json:"receiptId"`
	Receipt   *models.Receipt `json:"receipt"`
}

type personResponse struct {
	Success  bool            `json:"success"`
	Receipt  *models.Receipt `json:"receipt"`
	PersonID string          `json:"personId"`
}

type listResponse struct {
	Success  bool                       `json:"success"`
	Receipts map[string]*models.Receipt `json:"receipts"`
}

// listReceipts returns every cloud receipt for the calling device.
func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get(HeaderDeviceID)
	if deviceID == "" {
		httpx.Error(w, http.StatusBadRequest, "missing device id")
		return
	}

	receipts, err := s.store.ListByDevice(r.Context(), deviceID)
	if err != nil {
		slog.Error("listReceipts failed", "device_id", deviceID, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Success: true, Receipts: receipts})
}

// createReceipt promotes a receipt into the cloud. The owner is stamped from
// the X-Device-ID header when the payload does not carry one.
func (s *Server) createReceipt(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Header.Get(HeaderDeviceID)
	if deviceID == "" {
		httpx.Error(w, http.StatusBadRequest, "missing device id")
		return
	}

	var body struct {
		Receipt *models.Receipt `json:"receipt"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid receipt data")
		return
	}
	if err := models.ValidateReceipt(body.Receipt); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt := body.Receipt.Clone()
	if receipt.DeviceID == "" {
		receipt.DeviceID = deviceID
	}
	if receipt.OwnerID == "" {
		receipt.OwnerID = deviceID
	}

	saved, err := s.store.Save(r.Context(), receipt)
	if err != nil {
		slog.Error("createReceipt failed", "receipt_id", receipt.ID, "error", err)
		httpx.RespondError(w, err)
		return
	}

	slog.Info("Receipt promoted to cloud", "receipt_id", saved.ID, "owner_id", saved.OwnerID)
	httpx.JSON(w, http.StatusOK, createResponse{
		Success:   true,
		ReceiptID: saved.ID,
		Receipt:   saved,
	})
}

// getReceipt returns the receipt the authorize middleware already loaded.
func (s *Server) getReceipt(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, receiptResponse{
		Success: true,
		Receipt: receiptFromContext(r.Context()),
	})
}

// updateReceipt applies a shallow top-level patch.
func (s *Server) updateReceipt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Updates *models.ReceiptPatch `json:"updates"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil || body.Updates == nil {
		httpx.Error(w, http.StatusBadRequest, "invalid updates object")
		return
	}
	if body.Updates.LineItems != nil {
		if err := models.ValidateLineItems(*body.Updates.LineItems); err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if body.Updates.Adjustments != nil {
		if err := models.ValidateAdjustments(*body.Updates.Adjustments); err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.applyPatch(w, r, *body.Updates)
}

// setLineItems replaces the receipt's line items.
func (s *Server) setLineItems(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LineItems []models.LineItem `json:"lineItems"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid line items data")
		return
	}
	if err := models.ValidateLineItems(body.LineItems); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	s.applyPatch(w, r, models.ReceiptPatch{LineItems: &body.LineItems})
}

// setAdjustments replaces the receipt's adjustments.
func (s *Server) setAdjustments(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Adjustments []models.Adjustment `json:"adjustments"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid adjustments data")
		return
	}
	if err := models.ValidateAdjustments(body.Adjustments); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	s.applyPatch(w, r, models.ReceiptPatch{Adjustments: &body.Adjustments})
}

// addPerson appends a person to the receipt, minting an id when the payload
// has none.
func (s *Server) addPerson(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Person *models.Person `json:"person"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil || body.Person == nil {
		httpx.Error(w, http.StatusBadRequest, "invalid person data")
		return
	}
	if body.Person.ID == "" {
		body.Person.ID = models.NewID()
	}
	if err := models.ValidatePerson(body.Person); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	receipt := receiptFromContext(r.Context())
	updated, err := s.store.AddPerson(r.Context(), receipt.ID, *body.Person)
	if err != nil {
		slog.Error("addPerson failed", "receipt_id", receipt.ID, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, personResponse{
		Success:  true,
		Receipt:  updated,
		PersonID: body.Person.ID,
	})
}

// removePerson removes a person from the receipt's people list.
func (s *Server) removePerson(w http.ResponseWriter, r *http.Request) {
	receipt := receiptFromContext(r.Context())
	personID := chi.URLParam(r, "personId")

	updated, err := s.store.RemovePerson(r.Context(), receipt.ID, personID)
	if err != nil {
		slog.Error("removePerson failed", "receipt_id", receipt.ID, "person_id", personID, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receiptResponse{Success: true, Receipt: updated})
}

// applyPatch runs a shallow merge and writes the canonical receipt back.
func (s *Server) applyPatch(w http.ResponseWriter, r *http.Request, patch models.ReceiptPatch) {
	receipt := receiptFromContext(r.Context())

	updated, err := s.store.Update(r.Context(), receipt.ID, patch)
	if err != nil {
		slog.Error("update failed", "receipt_id", receipt.ID, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, receiptResponse{Success: true, Receipt: updated})
}
