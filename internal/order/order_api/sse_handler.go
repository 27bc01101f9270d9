package order_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// StreamTracking sends the order's tracking history, then every new entry
// as it is recorded, as Server-Sent Events.
func (h *Handler) StreamTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		h.badRequest(w, "Invalid order id", err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.Logger.Error("SSE", "Response writer does not support flushing")
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading history so no entry falls between the two.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	entries := h.Stream.Subscribe(ctx, id)

	history, err := h.History.List(ctx, id)
	if err != nil {
		h.sendError(w, r, "Failed to load tracking", err)
		return
	}

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"order\":%d}\n\n", id)
	if data, err := json.Marshal(history); err == nil {
		fmt.Fprintf(w, "event: history\ndata: %s\n\n", data)
	}
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Client connected to tracking for order #%d", id))

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize tracking entry: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: tracking\ndata: %s\n\n", data)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from tracking for order #%d", id))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
