package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"restopos/internal/domain"
	"restopos/internal/service"
	"restopos/internal/store"
)

const terminalPrefix = "/api/v1/terminals/"

func actorFrom(r *http.Request) (domain.Actor, error) {
	actor, ok := service.ActorFromContext(r.Context())
	if !ok || actor.BusinessID == "" {
		return domain.Actor{}, store.ErrUnauthorized
	}
	return actor, nil
}

// handleTerminalActions routes /api/v1/terminals/{terminal}/... to the
// session operations. Every mutation answers with the full terminal state.
func (a *API) handleTerminalActions(w http.ResponseWriter, r *http.Request) {
	parts := pathTail(r.URL.Path, terminalPrefix)
	if len(parts) < 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, errors.New("unknown terminal action"))
		return
	}
	terminal, action, rest := parts[0], parts[1], parts[2:]
	ctx := r.Context()

	switch {
	case action == "session" && len(rest) == 0:
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.TerminalSession(ctx, terminal) })

	case action == "tabs" && len(rest) == 0:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.AddTab(ctx, terminal) })

	case action == "tabs" && len(rest) >= 1:
		tabID, err := strconv.Atoi(rest[0])
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid tab id"))
			return
		}
		switch {
		case len(rest) == 1 && r.Method == http.MethodDelete:
			a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.RemoveTab(ctx, terminal, tabID) })
		case len(rest) == 2 && rest[1] == "activate" && r.Method == http.MethodPost:
			a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.ActivateTab(ctx, terminal, tabID) })
		default:
			writeMethodNotAllowed(w)
		}

	case action == "lines" && len(rest) == 0:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.AddLineRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.AddTabLine(ctx, terminal, req) })

	case action == "lines" && len(rest) == 1:
		lineID := rest[0]
		switch r.Method {
		case http.MethodPatch:
			var req domain.QuantityChangeRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			a.respondTerminal(w, func() (service.TerminalState, error) {
				return a.service.ChangeLineQuantity(ctx, terminal, lineID, req)
			})
		case http.MethodDelete:
			a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.RemoveTabLine(ctx, terminal, lineID) })
		default:
			writeMethodNotAllowed(w)
		}

	case action == "customer" && len(rest) == 0:
		switch r.Method {
		case http.MethodPut:
			var req domain.AssignCustomerRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.AssignTabCustomer(ctx, terminal, req) })
		case http.MethodDelete:
			a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.UnassignTabCustomer(ctx, terminal) })
		default:
			writeMethodNotAllowed(w)
		}

	case action == "discount" && len(rest) == 0:
		if r.Method != http.MethodPut {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.DiscountRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.ApplyTabDiscount(ctx, terminal, req) })

	case action == "split":
		a.handleSplit(w, r, terminal, rest)

	case action == "checkout" && len(rest) == 0:
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.CheckoutRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.service.Checkout(ctx, terminal, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case action == "payment" && len(rest) == 1 && rest[0] == "cancel":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.CancelPayment(ctx, terminal) })

	default:
		writeError(w, http.StatusNotFound, errors.New("unknown terminal action"))
	}
}

func (a *API) handleSplit(w http.ResponseWriter, r *http.Request, terminal string, rest []string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	ctx := r.Context()

	switch {
	case len(rest) == 1 && rest[0] == "start":
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.StartSplit(ctx, terminal) })
	case len(rest) == 1 && rest[0] == "checks":
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.AddSplitCheck(ctx, terminal) })
	case len(rest) == 1 && rest[0] == "move":
		var req domain.MoveItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.MoveSplitItem(ctx, terminal, req) })
	case len(rest) == 1 && rest[0] == "abandon":
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.AbandonSplit(ctx, terminal) })
	case len(rest) == 3 && rest[0] == "checks" && rest[2] == "pay":
		index, err := strconv.Atoi(rest[1])
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid check index"))
			return
		}
		a.respondTerminal(w, func() (service.TerminalState, error) { return a.service.PaySplitCheck(ctx, terminal, index) })
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown split action"))
	}
}

func (a *API) respondTerminal(w http.ResponseWriter, fn func() (service.TerminalState, error)) {
	state, err := fn()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
