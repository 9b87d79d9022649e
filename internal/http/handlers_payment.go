package http

import (
	"errors"
	"net/http"

	applog "fleetdash/internal/log"
	"fleetdash/internal/services"
)

const (
	MsgInvalidPayment = "Invalid payment request."
	msgPaymentFailed  = "Could not record the payment. Please try again."
)

// handleRecordPayment appends a payment and answers with the refreshed
// driver panel.
func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	req, err := ParsePaymentForm(r)
	if err != nil {
		BadRequestError("Invalid request format.").Write(w)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	res, err := s.dashboard.RecordPayment(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPayment) {
			applog.FromContext(ctx).WarnContext(ctx, "Payment rejected",
				applog.FieldDriverID, req.DriverID,
				applog.FieldError, err)
			UnprocessableEntityError(MsgInvalidPayment).
				Header("HX-Retarget", "#notification").
				Header("HX-Reswap", "innerHTML").
				Write(w)
			return
		}
		s.events.LogError(ctx, "Payment append failed", err, applog.OpAppend,
			applog.NewFields().WithDriver(req.DriverID))
		InternalServerError(msgPaymentFailed).
			Header("HX-Retarget", "#notification").
			Header("HX-Reswap", "innerHTML").
			Write(w)
		return
	}

	rec := res.Record
	s.events.LogPaymentRecorded(ctx, rec.DriverID, rec.ID, rec.AmountPaid.Cents, rec.RemainingBalance.Cents, res.Ref)

	view := s.newDriverView(rec.DriverID, res.Summary)
	view.Message = res.Message

	NewHTMXResponse().
		TriggerSuccessNotification(res.Message).
		ApplyHeaders(w.Header())
	s.render(w, r, http.StatusOK, "driver_panel", view)
}
