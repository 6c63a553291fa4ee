package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rkgold/invoicer/internal/config"
	"github.com/rkgold/invoicer/internal/invoice"
	"github.com/rkgold/invoicer/internal/metrics"
	"github.com/rkgold/invoicer/internal/models"
	"github.com/rkgold/invoicer/internal/qr"
	"github.com/rkgold/invoicer/internal/session"
)

// scanCooldown suppresses live-camera deliveries after a successful scan
// so a tag left in frame does not append duplicate records.
const scanCooldown = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The server binds to the device loopback and serves its own UI.
		return true
	},
}

type Server struct {
	sess    *session.Session
	decoder qr.Decoder
	cfg     config.Config
	log     *slog.Logger
	logo    []byte
	srv     *http.Server
}

// client is one connected UI. gorilla connections allow a single writer,
// so every write goes through mu.
type client struct {
	conn     *websocket.Conn
	mu       sync.Mutex
	authed   bool
	lastScan time.Time
}

func New(sess *session.Session, decoder qr.Decoder, cfg config.Config, logo []byte, log *slog.Logger) *Server {
	s := &Server{
		sess:    sess,
		decoder: decoder,
		cfg:     cfg,
		log:     log,
		logo:    logo,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/invoice.pdf", s.handleInvoicePDF)
	mux.HandleFunc("/invoice.xlsx", s.handleInvoiceXLSX)
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))

	s.srv = &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	return s
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ---------------------------------------------------------------------------
// WebSocket session API

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	c := &client{conn: conn}
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read ended", "err", err)
			}
			return
		}

		var msg envelope
		if err := json.Unmarshal(message, &msg); err != nil {
			s.sendError(c, "invalid message format")
			continue
		}
		s.handleMessage(r.Context(), c, msg)
	}
}

func (s *Server) handleMessage(ctx context.Context, c *client, msg envelope) {
	if msg.Type == "login" {
		s.handleLogin(c, msg.Data)
		return
	}
	if s.gated() && !c.authed {
		s.sendError(c, "login required")
		return
	}

	switch msg.Type {
	case "scan":
		s.handleScan(ctx, c, msg.Data)
	case "scan_image":
		s.handleScanImage(ctx, c, msg.Data)
	case "update_item":
		s.handleUpdateItem(ctx, c, msg.Data)
	case "delete_item":
		s.handleDeleteItem(ctx, c, msg.Data)
	case "clear_items":
		s.sess.ClearItems(ctx)
		s.sendState(c)
	case "set_rates":
		s.handleSetRates(ctx, c, msg.Data)
	case "set_melting":
		s.handleSetMelting(ctx, c, msg.Data)
	case "update_charge":
		s.handleUpdateCharge(ctx, c, msg.Data)
	case "remove_charge":
		s.handleRemoveCharge(ctx, c, msg.Data)
	case "set_image":
		s.handleSetImage(ctx, c, msg.Data)
	case "remove_image":
		s.handleRemoveImage(ctx, c, msg.Data)
	case "set_form":
		s.handleSetForm(ctx, c, msg.Data)
	case "get_state":
		s.sendState(c)
	default:
		s.sendError(c, "unknown message type")
	}
}

func (s *Server) gated() bool {
	return s.cfg.Auth.LoginID != ""
}

func (s *Server) handleLogin(c *client, data json.RawMessage) {
	var req struct {
		LoginID  string `json:"login_id"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(c, "invalid login request")
		return
	}
	if s.gated() && (req.LoginID != s.cfg.Auth.LoginID || req.Password != s.cfg.Auth.Password) {
		s.sendError(c, "invalid login ID or password")
		return
	}
	c.authed = true
	s.sendMessage(c, "login_ok", nil)
	s.sendState(c)
}

func (s *Server) handleScan(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(c, "invalid scan payload")
		return
	}
	if time.Since(c.lastScan) < scanCooldown {
		// Same tag still in frame; drop silently.
		return
	}
	s.addScan(ctx, c, req.Text)
}

func (s *Server) handleScanImage(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Image == "" {
		s.sendError(c, "invalid image data")
		return
	}
	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		s.sendError(c, "invalid image format")
		return
	}
	text, err := s.decoder.Decode(ctx, imageData)
	if err != nil {
		s.log.Info("image decode failed", "err", err)
		s.sendError(c, "could not read a QR code from the image")
		return
	}
	s.addScan(ctx, c, text)
}

func (s *Server) addScan(ctx context.Context, c *client, payload string) {
	item, ok := s.sess.AddScan(ctx, payload)
	if !ok {
		metrics.ParseFailuresTotal.Inc()
		s.sendError(c, "invalid QR code format")
		return
	}
	metrics.ScansTotal.Inc()
	c.lastScan = time.Now()
	s.sendMessage(c, "item_added", item)
	s.sendState(c)
}

func (s *Server) handleUpdateItem(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
		session.ItemEdit
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		s.sendError(c, "invalid item update")
		return
	}
	if !s.sess.UpdateItem(ctx, req.ID, req.ItemEdit) {
		s.sendError(c, "item not found")
		return
	}
	s.sendState(c)
}

func (s *Server) handleDeleteItem(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		s.sendError(c, "invalid item id")
		return
	}
	if !s.sess.DeleteItem(ctx, req.ID) {
		s.sendError(c, "item not found")
		return
	}
	s.sendState(c)
}

func (s *Server) handleSetRates(ctx context.Context, c *client, data json.RawMessage) {
	var rates models.StoneRates
	if err := json.Unmarshal(data, &rates); err != nil {
		s.sendError(c, "invalid rates")
		return
	}
	s.sess.SetRates(ctx, rates)
	s.sendState(c)
}

func (s *Server) handleSetMelting(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		Melting float64 `json:"melting"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(c, "invalid melting value")
		return
	}
	s.sess.SetDefaultMelting(ctx, req.Melting)
	s.sendState(c)
}

func (s *Server) handleUpdateCharge(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
		session.ChargeEdit
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		s.sendError(c, "invalid charge update")
		return
	}
	if !s.sess.UpdateCharge(ctx, req.ID, req.ChargeEdit) {
		s.sendError(c, "charge not found")
		return
	}
	s.sendState(c)
}

func (s *Server) handleRemoveCharge(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		s.sendError(c, "invalid charge id")
		return
	}
	if !s.sess.RemoveCharge(ctx, req.ID) {
		s.sendError(c, "charge not found")
		return
	}
	s.sendState(c)
}

func (s *Server) handleSetImage(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		DesignNo string `json:"design_no"`
		Image    string `json:"image"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.DesignNo == "" || req.Image == "" {
		s.sendError(c, "invalid image association")
		return
	}
	s.sess.SetImage(ctx, req.DesignNo, req.Image)
	s.sendState(c)
}

func (s *Server) handleRemoveImage(ctx context.Context, c *client, data json.RawMessage) {
	var req struct {
		DesignNo string `json:"design_no"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.DesignNo == "" {
		s.sendError(c, "invalid design number")
		return
	}
	s.sess.RemoveImage(ctx, req.DesignNo)
	s.sendState(c)
}

func (s *Server) handleSetForm(ctx context.Context, c *client, data json.RawMessage) {
	var form models.InvoiceForm
	if err := json.Unmarshal(data, &form); err != nil {
		s.sendError(c, "invalid form data")
		return
	}
	s.sess.SetInvoiceForm(ctx, form)
	s.sendState(c)
}

func (s *Server) sendState(c *client) {
	s.sendMessage(c, "state", s.sess.State())
}

func (s *Server) sendMessage(c *client, messageType string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := map[string]any{
		"type": messageType,
		"data": data,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		s.log.Debug("websocket write failed", "type", messageType, "err", err)
	}
}

func (s *Server) sendError(c *client, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := map[string]any{
		"type":    "error",
		"message": message,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		s.log.Debug("websocket write failed", "type", "error", "err", err)
	}
}

// ---------------------------------------------------------------------------
// Invoice downloads
//
// Document generation is long-running relative to the UI; it runs on the
// request goroutine, never on the socket loop, and has no cancellation.

func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	req, ok := s.invoiceRequest(w, r)
	if !ok {
		return
	}
	req.Logo = s.logo

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+invoice.PDFFilename(req)+`"`)
	if err := invoice.WritePDF(w, req); err != nil {
		s.log.Error("pdf generation failed", "err", err)
		return
	}
	metrics.InvoicesTotal.WithLabelValues("pdf").Inc()
}

func (s *Server) handleInvoiceXLSX(w http.ResponseWriter, r *http.Request) {
	req, ok := s.invoiceRequest(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+invoice.XLSXFilename(req)+`"`)
	if err := invoice.WriteXLSX(w, req); err != nil {
		s.log.Error("xlsx generation failed", "err", err)
		return
	}
	metrics.InvoicesTotal.WithLabelValues("xlsx").Inc()
}

// invoiceRequest validates the form inputs before any document work and
// remembers them for the next session.
func (s *Server) invoiceRequest(w http.ResponseWriter, r *http.Request) (models.InvoiceRequest, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return models.InvoiceRequest{}, false
	}

	party := r.FormValue("party_name")
	slip := r.FormValue("slip_number")
	req := s.sess.InvoiceRequest(party, slip)

	if err := invoice.Validate(req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		var verr *invoice.ValidationError
		if errors.As(err, &verr) {
			_ = json.NewEncoder(w).Encode(map[string]any{"fields": verr.Fields})
		} else {
			_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error()})
		}
		return models.InvoiceRequest{}, false
	}

	s.sess.SetInvoiceForm(r.Context(), models.InvoiceForm{PartyName: party, SlipNumber: slip})
	return req, true
}
