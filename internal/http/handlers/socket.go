package handlers

import (
	"net/http"

	"pos-order-service/pkg/response"
)

// SocketStatus reports the connected websocket clients. Handy when a
// terminal claims it is not receiving updates.
func (h *Handler) SocketStatus(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"connectedClients": h.Hub.ClientCount(),
		"clients":          h.Hub.Snapshot(),
	}, "")
}
